package storage

import (
	"context"
	"io"
	"time"

	"docsign/internal/model"
)

// Package storage holds the file store: original uploads and signature images on a local
// filesystem. It knows nothing about the registry.

// ObjectInfo contains basic information about a stored file.
type ObjectInfo struct {
	Name         string
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Storage maps sanitized filenames (and document IDs for signatures) to files under one root.
// Every method that takes a filename rejects names that are not already safe base names.
type Storage interface {
	// Save writes the whole content under filename; readers never observe a partial file.
	Save(ctx context.Context, filename string, r io.Reader) error
	Exists(ctx context.Context, filename string) (bool, error)
	// Delete is idempotent: a missing file is not an error.
	Delete(ctx context.Context, filename string) error
	// ReadPath resolves filename to an absolute path inside the root.
	ReadPath(ctx context.Context, filename string) (string, error)
	// Open streams a stored file. The caller must close the reader.
	Open(ctx context.Context, filename string) (io.ReadCloser, ObjectInfo, error)

	SaveSignature(ctx context.Context, id int64, data []byte) error
	SignaturePath(ctx context.Context, id int64) (string, error)
	OpenSignature(ctx context.Context, id int64) (io.ReadCloser, ObjectInfo, error)
	DeleteSignature(ctx context.Context, id int64) error

	// Scan lists the regular files directly under the root. It never fails; problems are
	// reported in the Status field.
	Scan(ctx context.Context) model.StoreScan
}
