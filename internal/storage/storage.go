package storage

import (
	"context"

	"chemstalk/internal/types"
)

// Store is the persistence sink and query surface for chemical items.
//
// Writes are single-item and final: a failed insert rolls back and the
// item is considered dropped, never retried.
type Store interface {
	// Insert persists one normalized item.
	Insert(ctx context.Context, item *types.ChemicalItem) error

	// DeleteByCompany removes all items stored for a company.
	DeleteByCompany(ctx context.Context, companyName string) (int64, error)

	// FindByCAS returns all stored items for a CAS number, newest first.
	FindByCAS(ctx context.Context, casNumber string) ([]types.StoredChemical, error)

	// Close releases the backend connection.
	Close(ctx context.Context) error
}
