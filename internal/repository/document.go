package repository

import (
	"context"

	"docsign/internal/model"
)

// DefaultRecentLimit is used by ListRecent when no positive limit is given.
const DefaultRecentLimit = 4

// DocumentRepository is the document registry: the only source of truth for document metadata.
// No business logic here, strictly persistence operations. Every list is ordered newest first.
type DocumentRepository interface {
	// Initialize creates the schema if it does not exist yet. Safe to call on every start.
	Initialize(ctx context.Context) error

	// Create inserts a new row and returns it with the registry-assigned ID and timestamp.
	Create(ctx context.Context, filename, storagePath, category string) (*model.Document, error)

	// FindByID returns model.ErrNotFound when no row has the given ID.
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// ListByCategory matches the category exactly.
	ListByCategory(ctx context.Context, category string) ([]model.Document, error)

	// ListRecent returns at most limit rows across all categories.
	ListRecent(ctx context.Context, limit int) ([]model.Document, error)

	ListAll(ctx context.Context) ([]model.Document, error)

	// CountByFilename reports how many rows reference the stored file.
	CountByFilename(ctx context.Context, filename string) (int, error)

	// MarkSigned sets the signed flag and reports whether a row matched.
	MarkSigned(ctx context.Context, id int64) (bool, error)

	// Delete removes a row in a single statement and reports whether it existed.
	Delete(ctx context.Context, id int64) (bool, error)
}
