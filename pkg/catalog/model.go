package catalog

// Item is a priced product the stand can sell. ID is its position in the catalog.
type Item struct {
	ID    int    `json:"id" cbor:"id"`
	Name  string `json:"name" cbor:"name"`
	Price int    `json:"price" cbor:"price"`
}
