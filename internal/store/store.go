package store

import "QuantChannel/internal/model"

// Store persists analysis records. Records are immutable: saving a record
// for a symbol+interval that already exists replaces it wholesale.
type Store interface {
	Save(rec *model.AnalysisRecord) error
	Close() error
}

// Noop is used when persistence is not configured.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) Save(_ *model.AnalysisRecord) error { return nil }
func (n *Noop) Close() error                       { return nil }
