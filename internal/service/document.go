package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docsign/internal/model"
	"docsign/internal/repository"
	"docsign/internal/storage"
)

var ErrReaderNil = fmt.Errorf("%w: reader is nil", model.ErrValidation)

var tracer = otel.Tracer("docsign/internal/service")

// endSpan records err on the span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// DocumentService defines the use cases for handling documents. It is the only component that
// touches both the file store and the registry and owns the ordering between them.
type DocumentService interface {
	// Add stores the upload under its sanitized name, then records it in the registry.
	// A failed file write aborts before the registry is touched. A failed insert removes the
	// file again unless a file with that name was already there before the upload.
	Add(ctx context.Context, r io.Reader, originalFilename, category string) (*model.Document, error)

	Get(ctx context.Context, id int64) (*model.Document, error)
	ListByCategory(ctx context.Context, category string) ([]model.Document, error)
	ListRecent(ctx context.Context, limit int) ([]model.Document, error)
	ListAll(ctx context.Context) ([]model.Document, error)

	// Sign marks the document signed and, when signature bytes are given, stores them.
	// A failed artifact save does not undo the signed flag; it is reported in the result.
	Sign(ctx context.Context, id int64, signature []byte) (*model.SignResult, error)

	// Delete removes the registry row and then cleans up the files on a best-effort basis.
	// It reports whether the row existed.
	Delete(ctx context.Context, id int64) (bool, error)

	// PurgeAll removes every document and returns how many rows were deleted.
	PurgeAll(ctx context.Context) (int, error)

	// Open and OpenByID stream an original file. The caller must close the reader.
	Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error)
	OpenByID(ctx context.Context, id int64) (io.ReadCloser, storage.ObjectInfo, error)

	// Signature streams the signature image of a document.
	Signature(ctx context.Context, id int64) (io.ReadCloser, storage.ObjectInfo, error)

	// ScanStore lists the files physically present in the store.
	ScanStore(ctx context.Context) model.StoreScan
}

// Options tunes a documentService.
type Options struct {
	// PathPrefix builds the informational storage_path column: PathPrefix + filename.
	PathPrefix string
	Logger     logrus.FieldLogger
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store      storage.Storage
	repo       repository.DocumentRepository
	pathPrefix string
	files      *keyedLocks
	log        logrus.FieldLogger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, opts Options) DocumentService {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &documentService{
		store:      store,
		repo:       repo,
		pathPrefix: opts.PathPrefix,
		files:      newKeyedLocks(),
		log:        log.WithField("component", "document_service"),
	}
}

func (s *documentService) Add(ctx context.Context, r io.Reader, originalFilename, category string) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Add", trace.WithAttributes(
		attribute.String("document.category", category),
	))
	defer func() { endSpan(span, err) }()

	category = strings.TrimSpace(category)
	if category == "" {
		return nil, model.ErrInvalidCategory
	}
	if r == nil {
		return nil, ErrReaderNil
	}
	filename, err := storage.SanitizeFilename(originalFilename)
	if err != nil {
		return nil, err
	}

	// Held until the row exists so a concurrent release cannot drop the new bytes.
	unlock := s.files.Lock(filename)
	defer unlock()

	existed, err := s.store.Exists(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("check file: %w", err)
	}
	if err := s.store.Save(ctx, filename, r); err != nil {
		return nil, fmt.Errorf("save file: %w", err)
	}

	doc, err = s.repo.Create(ctx, filename, s.pathPrefix+filename, category)
	if err != nil {
		if existed {
			// The name already belonged to an earlier upload; its row still points here.
			s.log.WithFields(logrus.Fields{"event": "add_insert_failed", "filename": filename}).
				WithError(err).Warn("registry insert failed, keeping shared file")
			return nil, fmt.Errorf("registry insert failed: %w", err)
		}
		if delErr := s.store.Delete(ctx, filename); delErr != nil {
			s.log.WithFields(logrus.Fields{"event": "add_rollback_failed", "filename": filename}).
				WithError(delErr).Error("orphan file left in store")
			return nil, fmt.Errorf("registry insert failed: %w; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("registry insert failed: %w", err)
	}

	span.SetAttributes(attribute.Int64("document.id", doc.ID))
	s.log.WithFields(logrus.Fields{"event": "document_added", "id": doc.ID, "filename": filename, "category": category}).
		Info("document added")
	return doc, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	if id <= 0 {
		return nil, model.ErrInvalidID
	}
	return s.repo.FindByID(ctx, id)
}

// ListByCategory matches the trimmed category, the same form Add stores.
func (s *documentService) ListByCategory(ctx context.Context, category string) ([]model.Document, error) {
	return s.repo.ListByCategory(ctx, strings.TrimSpace(category))
}

func (s *documentService) ListRecent(ctx context.Context, limit int) ([]model.Document, error) {
	if limit <= 0 {
		limit = repository.DefaultRecentLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

func (s *documentService) ListAll(ctx context.Context) ([]model.Document, error) {
	return s.repo.ListAll(ctx)
}

func (s *documentService) Sign(ctx context.Context, id int64, signature []byte) (_ *model.SignResult, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Sign", trace.WithAttributes(attribute.Int64("document.id", id)))
	defer func() { endSpan(span, err) }()

	if id <= 0 {
		return nil, model.ErrInvalidID
	}
	ok, err := s.repo.MarkSigned(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, model.ErrNotFound)
	}

	res := &model.SignResult{ID: id, Signed: true}
	if len(signature) == 0 {
		return res, nil
	}
	if err := s.store.SaveSignature(ctx, id, signature); err != nil {
		s.log.WithFields(logrus.Fields{"event": "signature_save_failed", "id": id}).
			WithError(err).Warn("document signed without signature image")
		res.SignatureError = err.Error()
		return res, nil
	}
	res.SignatureSaved = true
	return res, nil
}

func (s *documentService) Delete(ctx context.Context, id int64) (_ bool, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Delete", trace.WithAttributes(attribute.Int64("document.id", id)))
	defer func() { endSpan(span, err) }()

	if id <= 0 {
		return false, nil
	}

	doc, err := s.repo.FindByID(ctx, id)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		s.log.WithFields(logrus.Fields{"event": "delete_lookup_failed", "id": id}).
			WithError(err).Warn("could not resolve filename before delete")
	}

	if doc != nil {
		unlock := s.files.Lock(doc.Filename)
		defer unlock()
	}

	existed, delErr := s.repo.Delete(ctx, id)

	if doc != nil {
		s.releaseFile(ctx, doc.Filename)
		s.removeSignature(ctx, id)
	}

	if delErr != nil {
		return false, delErr
	}
	return existed, nil
}

func (s *documentService) PurgeAll(ctx context.Context) (_ int, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.PurgeAll")
	defer func() { endSpan(span, err) }()

	docs, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, d := range docs {
		if s.purgeOne(ctx, d) {
			removed++
		}
	}

	span.SetAttributes(attribute.Int("documents.removed", removed))
	s.log.WithFields(logrus.Fields{"event": "purge_all", "listed": len(docs), "removed": removed}).Info("purge finished")
	return removed, nil
}

// purgeOne removes one listed document under its filename lock and reports whether the row went away.
func (s *documentService) purgeOne(ctx context.Context, d model.Document) bool {
	unlock := s.files.Lock(d.Filename)
	defer unlock()

	if err := s.store.Delete(ctx, d.Filename); err != nil {
		s.log.WithFields(logrus.Fields{"event": "purge_file_failed", "id": d.ID, "filename": d.Filename}).
			WithError(err).Warn("file delete failed")
	}
	s.removeSignature(ctx, d.ID)

	ok, err := s.repo.Delete(ctx, d.ID)
	if err != nil {
		s.log.WithFields(logrus.Fields{"event": "purge_row_failed", "id": d.ID}).
			WithError(err).Warn("registry delete failed")
		return false
	}
	return ok
}

func (s *documentService) Open(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error) {
	if err := storage.ValidateFilename(filename); err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	return s.store.Open(ctx, filename)
}

func (s *documentService) OpenByID(ctx context.Context, id int64) (io.ReadCloser, storage.ObjectInfo, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	return s.Open(ctx, doc.Filename)
}

func (s *documentService) Signature(ctx context.Context, id int64) (io.ReadCloser, storage.ObjectInfo, error) {
	if id <= 0 {
		return nil, storage.ObjectInfo{}, model.ErrInvalidID
	}
	return s.store.OpenSignature(ctx, id)
}

func (s *documentService) ScanStore(ctx context.Context) model.StoreScan {
	return s.store.Scan(ctx)
}

// releaseFile deletes a stored file once no registry row references it any more.
// Callers hold the filename lock. Errors are logged and swallowed: the row deletion is the meaningful outcome.
func (s *documentService) releaseFile(ctx context.Context, filename string) {
	log := s.log.WithFields(logrus.Fields{"event": "file_cleanup", "filename": filename})

	refs, err := s.repo.CountByFilename(ctx, filename)
	if err != nil {
		log.WithError(err).Warn("could not count file references, keeping file")
		return
	}
	if refs > 0 {
		log.WithField("refs", refs).Debug("file still referenced")
		return
	}
	if err := s.store.Delete(ctx, filename); err != nil {
		log.WithError(err).Warn("file delete failed")
	}
}

func (s *documentService) removeSignature(ctx context.Context, id int64) {
	if err := s.store.DeleteSignature(ctx, id); err != nil {
		s.log.WithFields(logrus.Fields{"event": "signature_cleanup", "id": id}).
			WithError(err).Warn("signature delete failed")
	}
}
