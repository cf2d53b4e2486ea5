package store

import (
	"context"
	"errors"

	"github.com/kilianp07/conformance/core/conformance"
	"github.com/kilianp07/conformance/core/model"
)

// MultiStore fans results out to several stores.
type MultiStore struct {
	stores []conformance.ResultStore
}

// NewMultiStore returns a store writing to every non-nil store in order.
func NewMultiStore(stores ...conformance.ResultStore) *MultiStore {
	out := make([]conformance.ResultStore, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiStore{stores: out}
}

// Put writes to every store and joins the failures.
func (m *MultiStore) Put(ctx context.Context, res model.FitnessResult) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Put(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every store.
func (m *MultiStore) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
