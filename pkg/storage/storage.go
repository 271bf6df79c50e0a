// Package storage persists the stand's four records (catalog, ledger,
// settings and shop) through a byte-oriented Backend and a Codec.
//
// Load never fails because a record is missing: it fills a schema-valid
// default instead. Delete of a missing record returns ErrNotFound, which
// callers treat as a warning.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by backends when a record has never been saved.
var ErrNotFound = errors.New("record not found")

// Kind names one independently addressable record.
type Kind string

const (
	KindCatalog  Kind = "catalog"
	KindLedger   Kind = "ledger"
	KindSettings Kind = "settings"
	KindShop     Kind = "shop"
)

// Kinds lists every record kind in save order.
var Kinds = []Kind{KindSettings, KindShop, KindCatalog, KindLedger}

// Backend stores encoded records by kind.
type Backend interface {
	Put(ctx context.Context, kind Kind, data []byte) error
	Get(ctx context.Context, kind Kind) ([]byte, error)
	Remove(ctx context.Context, kind Kind) error
}

// Record is implemented by the pointer types in records.go.
type Record interface {
	Kind() Kind
	setDefaults()
	normalize()
}

// Gateway encodes records and hands them to a backend.
type Gateway struct {
	backend Backend
	codec   Codec
}

// NewGateway pairs a backend with a codec. A nil codec means JSON.
func NewGateway(backend Backend, codec Codec) *Gateway {
	if codec == nil {
		codec = JSON{}
	}
	return &Gateway{backend: backend, codec: codec}
}

// Save overwrites the record of r's kind.
func (g *Gateway) Save(ctx context.Context, r Record) error {
	data, err := g.codec.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.Kind(), err)
	}
	if err := g.backend.Put(ctx, r.Kind(), data); err != nil {
		return fmt.Errorf("save %s: %w", r.Kind(), err)
	}
	return nil
}

// Load fills r from the backend, or with defaults when nothing was saved yet.
func (g *Gateway) Load(ctx context.Context, r Record) error {
	data, err := g.backend.Get(ctx, r.Kind())
	if errors.Is(err, ErrNotFound) || (err == nil && len(data) == 0) {
		r.setDefaults()
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", r.Kind(), err)
	}
	r.setDefaults()
	if err := g.codec.Unmarshal(data, r); err != nil {
		return fmt.Errorf("decode %s: %w", r.Kind(), err)
	}
	r.normalize()
	return nil
}

// Delete removes the record of kind. A missing record yields an error matching ErrNotFound.
func (g *Gateway) Delete(ctx context.Context, kind Kind) error {
	if err := g.backend.Remove(ctx, kind); err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return nil
}
