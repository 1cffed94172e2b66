package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"docsign/internal/model"
	repoMocks "docsign/internal/repository/mocks"
	"docsign/internal/storage"
	storeMocks "docsign/internal/storage/mocks"
)

const prefix = "//localhost/data/"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) DocumentService {
	return NewDocumentService(mStore, mRepo, Options{PathPrefix: prefix, Logger: quietLogger()})
}

func TestDocumentService_Add(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name             string
		originalFilename string
		category         string
		nilReader        bool
		setupMocks       func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantErr          error
		wantErrMsg       string
	}{
		{
			name:             "happy path sanitizes the name",
			originalFilename: "../My Report.pdf",
			category:         " contracts ",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Exists", mock.Anything, "My_Report.pdf").Return(false, nil)
				mStore.On("Save", mock.Anything, "My_Report.pdf", mock.Anything).Return(nil)
				mRepo.On("Create", mock.Anything, "My_Report.pdf", prefix+"My_Report.pdf", "contracts").
					Return(&model.Document{ID: 1, Filename: "My_Report.pdf", Category: "contracts"}, nil)
			},
		},
		{
			name:             "validation error - empty category",
			originalFilename: "a.pdf",
			category:         "   ",
			setupMocks:       func(*storeMocks.MockStorage, *repoMocks.MockDocumentRepository) {},
			wantErr:          model.ErrInvalidCategory,
		},
		{
			name:             "validation error - nil reader",
			originalFilename: "a.pdf",
			category:         "c",
			nilReader:        true,
			setupMocks:       func(*storeMocks.MockStorage, *repoMocks.MockDocumentRepository) {},
			wantErr:          ErrReaderNil,
		},
		{
			name:             "validation error - nothing left after sanitizing",
			originalFilename: "../..",
			category:         "c",
			setupMocks:       func(*storeMocks.MockStorage, *repoMocks.MockDocumentRepository) {},
			wantErr:          model.ErrUnsafeFilename,
		},
		{
			name:             "file write failure never touches the registry",
			originalFilename: "a.pdf",
			category:         "c",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Exists", mock.Anything, "a.pdf").Return(false, nil)
				mStore.On("Save", mock.Anything, "a.pdf", mock.Anything).
					Return(errors.Join(model.ErrIO, errors.New("disk full")))
			},
			wantErr: model.ErrIO,
		},
		{
			name:             "registry failure rolls back the new file",
			originalFilename: "a.pdf",
			category:         "c",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Exists", mock.Anything, "a.pdf").Return(false, nil)
				mStore.On("Save", mock.Anything, "a.pdf", mock.Anything).Return(nil)
				mRepo.On("Create", mock.Anything, "a.pdf", prefix+"a.pdf", "c").Return(nil, model.ErrStorage)
				mStore.On("Delete", mock.Anything, "a.pdf").Return(nil)
			},
			wantErr: model.ErrStorage,
		},
		{
			name:             "registry failure with failed rollback",
			originalFilename: "a.pdf",
			category:         "c",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Exists", mock.Anything, "a.pdf").Return(false, nil)
				mStore.On("Save", mock.Anything, "a.pdf", mock.Anything).Return(nil)
				mRepo.On("Create", mock.Anything, "a.pdf", prefix+"a.pdf", "c").Return(nil, errors.New("db fail"))
				mStore.On("Delete", mock.Anything, "a.pdf").Return(errors.New("delete fail"))
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
		{
			name:             "registry failure keeps a file shared with an earlier upload",
			originalFilename: "a.pdf",
			category:         "c",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Exists", mock.Anything, "a.pdf").Return(true, nil)
				mStore.On("Save", mock.Anything, "a.pdf", mock.Anything).Return(nil)
				mRepo.On("Create", mock.Anything, "a.pdf", prefix+"a.pdf", "c").Return(nil, errors.New("db fail"))
			},
			wantErrMsg: "registry insert failed: db fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := newTestService(mStore, mRepo)
			tt.setupMocks(mStore, mRepo)

			var r io.Reader = strings.NewReader("content")
			if tt.nilReader {
				r = nil
			}
			doc, err := svc.Add(ctx, r, tt.originalFilename, tt.category)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
			case tt.wantErrMsg != "":
				assert.ErrorContains(t, err, tt.wantErrMsg)
				assert.Nil(t, doc)
			default:
				assert.NoError(t, err)
				assert.NotNil(t, doc)
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
			if tt.wantErr != nil && errors.Is(tt.wantErr, model.ErrValidation) {
				mStore.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
				mRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         int64
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   1,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.Document{ID: 1}, nil)
			},
		},
		{
			name:       "validation - non positive id",
			id:         0,
			setupMocks: func(*repoMocks.MockDocumentRepository) {},
			wantErr:    model.ErrInvalidID,
		},
		{
			name: "not found",
			id:   999,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", mock.Anything, int64(999)).Return(nil, model.ErrNotFound)
			},
			wantErr: model.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := newTestService(nil, mRepo)
			tt.setupMocks(mRepo)

			doc, err := svc.Get(ctx, tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.id, doc.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_ListRecent_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := newTestService(nil, mRepo)

	mRepo.On("ListRecent", mock.Anything, 4).Return([]model.Document{}, nil)

	docs, err := svc.ListRecent(ctx, 0)

	assert.NoError(t, err)
	assert.Empty(t, docs)
	mRepo.AssertExpectations(t)
}

func TestDocumentService_ListByCategory_TrimsLikeAdd(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := newTestService(nil, mRepo)

	mRepo.On("ListByCategory", mock.Anything, "contracts").
		Return([]model.Document{{ID: 1, Category: "contracts"}}, nil)

	docs, err := svc.ListByCategory(ctx, " contracts ")

	assert.NoError(t, err)
	assert.Len(t, docs, 1)
	mRepo.AssertExpectations(t)
}

func TestDocumentService_Sign(t *testing.T) {
	ctx := context.Background()
	sig := []byte{0x89, 'P', 'N', 'G'}

	t.Run("unknown id never touches the store", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("MarkSigned", mock.Anything, int64(9)).Return(false, nil)

		res, err := newTestService(mStore, mRepo).Sign(ctx, 9, sig)

		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.Nil(t, res)
		mStore.AssertNotCalled(t, "SaveSignature", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("signed without signature data", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("MarkSigned", mock.Anything, int64(1)).Return(true, nil)

		res, err := newTestService(mStore, mRepo).Sign(ctx, 1, nil)

		assert.NoError(t, err)
		assert.True(t, res.Signed)
		assert.False(t, res.SignatureSaved)
		mStore.AssertNotCalled(t, "SaveSignature", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("signed with signature", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("MarkSigned", mock.Anything, int64(1)).Return(true, nil)
		mStore.On("SaveSignature", mock.Anything, int64(1), sig).Return(nil)

		res, err := newTestService(mStore, mRepo).Sign(ctx, 1, sig)

		assert.NoError(t, err)
		assert.True(t, res.Signed)
		assert.True(t, res.SignatureSaved)
		mStore.AssertExpectations(t)
	})

	t.Run("artifact failure keeps the signed flag", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("MarkSigned", mock.Anything, int64(1)).Return(true, nil)
		mStore.On("SaveSignature", mock.Anything, int64(1), sig).Return(model.ErrIO)

		res, err := newTestService(mStore, mRepo).Sign(ctx, 1, sig)

		assert.NoError(t, err)
		assert.True(t, res.Signed)
		assert.False(t, res.SignatureSaved)
		assert.NotEmpty(t, res.SignatureError)
		mRepo.AssertExpectations(t)
	})

	t.Run("registry failure", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("MarkSigned", mock.Anything, int64(1)).Return(false, model.ErrStorage)

		_, err := newTestService(nil, mRepo).Sign(ctx, 1, sig)

		assert.ErrorIs(t, err, model.ErrStorage)
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()
	doc := &model.Document{ID: 1, Filename: "a.pdf"}

	t.Run("existing document", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", mock.Anything, int64(1)).Return(doc, nil)
		mRepo.On("Delete", mock.Anything, int64(1)).Return(true, nil)
		mRepo.On("CountByFilename", mock.Anything, "a.pdf").Return(0, nil)
		mStore.On("Delete", mock.Anything, "a.pdf").Return(nil)
		mStore.On("DeleteSignature", mock.Anything, int64(1)).Return(nil)

		existed, err := newTestService(mStore, mRepo).Delete(ctx, 1)

		assert.NoError(t, err)
		assert.True(t, existed)
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("unknown id is side-effect free", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", mock.Anything, int64(999)).Return(nil, model.ErrNotFound)
		mRepo.On("Delete", mock.Anything, int64(999)).Return(false, nil)

		existed, err := newTestService(mStore, mRepo).Delete(ctx, 999)

		assert.NoError(t, err)
		assert.False(t, existed)
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mStore.AssertNotCalled(t, "DeleteSignature", mock.Anything, mock.Anything)
	})

	t.Run("file still referenced by another row is kept", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", mock.Anything, int64(1)).Return(doc, nil)
		mRepo.On("Delete", mock.Anything, int64(1)).Return(true, nil)
		mRepo.On("CountByFilename", mock.Anything, "a.pdf").Return(1, nil)
		mStore.On("DeleteSignature", mock.Anything, int64(1)).Return(nil)

		existed, err := newTestService(mStore, mRepo).Delete(ctx, 1)

		assert.NoError(t, err)
		assert.True(t, existed)
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("file cleanup failure is swallowed", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", mock.Anything, int64(1)).Return(doc, nil)
		mRepo.On("Delete", mock.Anything, int64(1)).Return(true, nil)
		mRepo.On("CountByFilename", mock.Anything, "a.pdf").Return(0, nil)
		mStore.On("Delete", mock.Anything, "a.pdf").Return(model.ErrIO)
		mStore.On("DeleteSignature", mock.Anything, int64(1)).Return(model.ErrIO)

		existed, err := newTestService(mStore, mRepo).Delete(ctx, 1)

		assert.NoError(t, err)
		assert.True(t, existed)
	})

	t.Run("registry failure still attempts cleanup", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", mock.Anything, int64(1)).Return(doc, nil)
		mRepo.On("Delete", mock.Anything, int64(1)).Return(false, model.ErrStorage)
		mRepo.On("CountByFilename", mock.Anything, "a.pdf").Return(0, nil)
		mStore.On("Delete", mock.Anything, "a.pdf").Return(nil)
		mStore.On("DeleteSignature", mock.Anything, int64(1)).Return(nil)

		existed, err := newTestService(mStore, mRepo).Delete(ctx, 1)

		assert.ErrorIs(t, err, model.ErrStorage)
		assert.False(t, existed)
		mStore.AssertExpectations(t)
	})
}

func TestDocumentService_PurgeAll(t *testing.T) {
	ctx := context.Background()

	t.Run("continues past individual failures", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("ListAll", mock.Anything).Return([]model.Document{
			{ID: 3, Filename: "c.pdf"},
			{ID: 2, Filename: "b.pdf"},
			{ID: 1, Filename: "a.pdf"},
		}, nil)
		mStore.On("Delete", mock.Anything, "c.pdf").Return(nil)
		mStore.On("Delete", mock.Anything, "b.pdf").Return(model.ErrIO)
		mStore.On("Delete", mock.Anything, "a.pdf").Return(nil)
		mStore.On("DeleteSignature", mock.Anything, mock.AnythingOfType("int64")).Return(nil)
		mRepo.On("Delete", mock.Anything, int64(3)).Return(true, nil)
		mRepo.On("Delete", mock.Anything, int64(2)).Return(true, nil)
		mRepo.On("Delete", mock.Anything, int64(1)).Return(false, model.ErrStorage)

		removed, err := newTestService(mStore, mRepo).PurgeAll(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 2, removed)
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("listing failure fails the purge", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("ListAll", mock.Anything).Return(nil, model.ErrStorage)

		_, err := newTestService(nil, mRepo).PurgeAll(ctx)

		assert.ErrorIs(t, err, model.ErrStorage)
	})
}

func TestDocumentService_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects traversal before reaching the store", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)

		_, _, err := newTestService(mStore, nil).Open(ctx, "../../etc/passwd")

		assert.ErrorIs(t, err, model.ErrUnsafeFilename)
		mStore.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
	})

	t.Run("by id resolves through the registry", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", mock.Anything, int64(4)).Return(&model.Document{ID: 4, Filename: "d.pdf"}, nil)
		mStore.On("Open", mock.Anything, "d.pdf").
			Return(io.NopCloser(strings.NewReader("pdf")), storage.ObjectInfo{Name: "d.pdf", Size: 3}, nil)

		rc, info, err := newTestService(mStore, mRepo).OpenByID(ctx, 4)

		assert.NoError(t, err)
		assert.Equal(t, "d.pdf", info.Name)
		rc.Close()
	})
}

func TestDocumentService_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))

	svc := newTestService(new(storeMocks.MockStorage), new(repoMocks.MockDocumentRepository))
	_, err := svc.Add(context.Background(), strings.NewReader("x"), "a.pdf", " ")
	assert.ErrorIs(t, err, model.ErrInvalidCategory)

	var add sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == "DocumentService.Add" {
			add = s
		}
	}
	if assert.NotNil(t, add) {
		assert.Equal(t, codes.Error, add.Status().Code)
	}
}
