package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"

	"docsign/internal/database"
	"docsign/internal/database/migration"
	"docsign/internal/model"
	"docsign/internal/repository"
)

const table = "documents"

var columns = []string{"id", "filename", "path", "category", "created_at", "signed"}

// DocumentStore is a database/sql implementation of repository.DocumentRepository.
// Queries are built with squirrel so the same code serves SQLite and PostgreSQL.
type DocumentStore struct {
	db      *sql.DB
	dialect database.Dialect
	qb      sq.StatementBuilderType
	now     func() time.Time
	log     logrus.FieldLogger
}

// NewDocumentStore creates a registry over an opened database.
func NewDocumentStore(db *sql.DB, dialect database.Dialect, log logrus.FieldLogger) *DocumentStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	var placeholder sq.PlaceholderFormat = sq.Question
	if dialect == database.DialectPostgres {
		placeholder = sq.Dollar
	}
	return &DocumentStore{
		db:      db,
		dialect: dialect,
		qb:      sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
		log:     log,
	}
}

var _ repository.DocumentRepository = (*DocumentStore)(nil)

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorage, err)
}

// Initialize runs the idempotent schema migration.
func (r *DocumentStore) Initialize(ctx context.Context) error {
	if err := migration.EnsureMigrated(ctx, r.db, r.dialect, r.log); err != nil {
		return storageErr("initialize registry", err)
	}
	return nil
}

// Create inserts a new document row. created_at comes from the registry clock and signed starts false.
func (r *DocumentStore) Create(ctx context.Context, filename, storagePath, category string) (*model.Document, error) {
	if strings.TrimSpace(category) == "" {
		return nil, model.ErrInvalidCategory
	}
	createdAt := r.now().UTC()

	q, args, err := r.qb.Insert(table).
		Columns("filename", "path", "category", "created_at", "signed").
		Values(filename, storagePath, category, createdAt, false).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, storageErr("build insert", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return nil, storageErr("insert document", err)
	}

	return &model.Document{
		ID:          id,
		Filename:    filename,
		StoragePath: storagePath,
		Category:    category,
		CreatedAt:   createdAt,
		Signed:      false,
	}, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentStore) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	q, args, err := r.qb.Select(columns...).From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, storageErr("build select", err)
	}

	d, err := scanDocument(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %d: %w", id, model.ErrNotFound)
		}
		return nil, storageErr("find document", err)
	}
	return d, nil
}

// ListByCategory returns the documents of one category, newest first.
func (r *DocumentStore) ListByCategory(ctx context.Context, category string) ([]model.Document, error) {
	return r.list(ctx, r.newestFirst().Where(sq.Eq{"category": category}))
}

// ListRecent returns the latest documents regardless of category.
func (r *DocumentStore) ListRecent(ctx context.Context, limit int) ([]model.Document, error) {
	if limit <= 0 {
		limit = repository.DefaultRecentLimit
	}
	return r.list(ctx, r.newestFirst().Limit(uint64(limit)))
}

// ListAll returns every document, newest first.
func (r *DocumentStore) ListAll(ctx context.Context) ([]model.Document, error) {
	return r.list(ctx, r.newestFirst())
}

// CountByFilename counts the rows that point at the same stored file.
func (r *DocumentStore) CountByFilename(ctx context.Context, filename string) (int, error) {
	q, args, err := r.qb.Select("COUNT(*)").From(table).Where(sq.Eq{"filename": filename}).ToSql()
	if err != nil {
		return 0, storageErr("build count", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, storageErr("count documents", err)
	}
	return n, nil
}

// MarkSigned flips the signed flag. Re-signing still matches the row, so the call is idempotent.
func (r *DocumentStore) MarkSigned(ctx context.Context, id int64) (bool, error) {
	q, args, err := r.qb.Update(table).Set("signed", true).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, storageErr("build update", err)
	}
	return r.execAffected(ctx, "mark signed", q, args)
}

// Delete removes a row. The affected-row count of the single DELETE decides the result,
// so concurrent deletes of one ID report true exactly once.
func (r *DocumentStore) Delete(ctx context.Context, id int64) (bool, error) {
	q, args, err := r.qb.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, storageErr("build delete", err)
	}
	return r.execAffected(ctx, "delete document", q, args)
}

func (r *DocumentStore) newestFirst() sq.SelectBuilder {
	return r.qb.Select(columns...).From(table).OrderBy("created_at DESC", "id DESC")
}

func (r *DocumentStore) execAffected(ctx context.Context, op, q string, args []any) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, storageErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(op, err)
	}
	return n > 0, nil
}

func (r *DocumentStore) list(ctx context.Context, b sq.SelectBuilder) ([]model.Document, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, storageErr("build select", err)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr("list documents", err)
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, storageErr("scan document", err)
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list documents", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var d model.Document
	if err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.StoragePath,
		&d.Category,
		&d.CreatedAt,
		&d.Signed,
	); err != nil {
		return nil, err
	}
	return &d, nil
}
