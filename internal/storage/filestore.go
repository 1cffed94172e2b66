package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"docsign/internal/config"
	"docsign/internal/model"
)

// SignatureDir is the subdirectory of the root holding signature images.
const SignatureDir = "signatures"

// FileStore implements Storage on a local directory.
// It is safe for concurrent use; writes go through a temp file and an atomic rename.
type FileStore struct {
	root    string
	sigRoot string
	fsync   bool
}

var _ Storage = (*FileStore)(nil)

// NewFileStore resolves the root to an absolute path and creates it and the signature
// directory if they are missing.
func NewFileStore(cfg config.StorageConfig) (*FileStore, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	fsStore := &FileStore{root: root, sigRoot: filepath.Join(root, SignatureDir), fsync: cfg.Fsync}
	if err := os.MkdirAll(fsStore.sigRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w: %w", model.ErrIO, err)
	}
	return fsStore, nil
}

// Root returns the absolute store directory.
func (s *FileStore) Root() string { return s.root }

func ioErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrIO, err)
}

// path validates filename and joins it to the root, refusing anything that would land outside.
func (s *FileStore) path(filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	p := filepath.Join(s.root, filename)
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel != filename {
		return "", model.ErrUnsafeFilename
	}
	return p, nil
}

func (s *FileStore) signaturePath(id int64) (string, error) {
	if id <= 0 {
		return "", model.ErrInvalidID
	}
	return filepath.Join(s.sigRoot, strconv.FormatInt(id, 10)+".png"), nil
}

// Save writes r to filename, replacing any previous file with the same name.
func (s *FileStore) Save(_ context.Context, filename string, r io.Reader) error {
	p, err := s.path(filename)
	if err != nil {
		return err
	}
	return s.writeAtomic(s.root, p, r)
}

// Exists reports whether filename is a regular file in the store.
func (s *FileStore) Exists(_ context.Context, filename string) (bool, error) {
	p, err := s.path(filename)
	if err != nil {
		return false, err
	}
	st, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, ioErr("stat file", err)
	}
	return st.Mode().IsRegular(), nil
}

// Delete removes filename. A missing file is not an error.
func (s *FileStore) Delete(_ context.Context, filename string) error {
	p, err := s.path(filename)
	if err != nil {
		return err
	}
	return removeIfExists(p)
}

// ReadPath resolves filename to the absolute path of an existing file.
func (s *FileStore) ReadPath(_ context.Context, filename string) (string, error) {
	p, err := s.path(filename)
	if err != nil {
		return "", err
	}
	if _, err := statRegular(p); err != nil {
		return "", err
	}
	return p, nil
}

// Open streams filename along with its size and a content type derived from the extension.
func (s *FileStore) Open(ctx context.Context, filename string) (io.ReadCloser, ObjectInfo, error) {
	p, err := s.path(filename)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return openFile(p)
}

// SaveSignature stores the raw image bytes as <root>/signatures/<id>.png.
func (s *FileStore) SaveSignature(_ context.Context, id int64, data []byte) error {
	p, err := s.signaturePath(id)
	if err != nil {
		return err
	}
	return s.writeAtomic(s.sigRoot, p, bytes.NewReader(data))
}

// SignaturePath resolves the signature image of a document.
func (s *FileStore) SignaturePath(_ context.Context, id int64) (string, error) {
	p, err := s.signaturePath(id)
	if err != nil {
		return "", err
	}
	if _, err := statRegular(p); err != nil {
		return "", err
	}
	return p, nil
}

// OpenSignature streams the signature image of a document.
func (s *FileStore) OpenSignature(_ context.Context, id int64) (io.ReadCloser, ObjectInfo, error) {
	p, err := s.signaturePath(id)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return openFile(p)
}

// DeleteSignature removes a signature image if present.
func (s *FileStore) DeleteSignature(_ context.Context, id int64) error {
	p, err := s.signaturePath(id)
	if err != nil {
		return err
	}
	return removeIfExists(p)
}

// Scan lists visible regular files under the root, sorted by name.
// Temp files and the signature directory are skipped.
func (s *FileStore) Scan(_ context.Context) model.StoreScan {
	res := model.StoreScan{Root: s.root, Files: []string{}}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			res.Status = "error: store root not found"
		} else {
			res.Status = "error: " + err.Error()
		}
		return res
	}

	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		res.Files = append(res.Files, e.Name())
	}
	res.Status = model.StoreScanOK
	return res
}

// writeAtomic copies r into a hidden temp file inside dir and renames it onto dst.
func (s *FileStore) writeAtomic(dir, dst string, r io.Reader) (err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioErr("create dir", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return ioErr("create temp file", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		return ioErr("write file", err)
	}
	if s.fsync {
		if err = tmp.Sync(); err != nil {
			return ioErr("sync file", err)
		}
	}
	if err = tmp.Close(); err != nil {
		return ioErr("close file", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return ioErr("chmod file", err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return ioErr("rename file", err)
	}
	return nil
}

func removeIfExists(p string) error {
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioErr("remove file", err)
	}
	return nil
}

func statRegular(p string) (fs.FileInfo, error) {
	st, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(p), model.ErrNotFound)
	}
	if err != nil {
		return nil, ioErr("stat file", err)
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", filepath.Base(p), model.ErrNotFound)
	}
	return st, nil
}

func openFile(p string) (io.ReadCloser, ObjectInfo, error) {
	st, err := statRegular(p)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, fmt.Errorf("%s: %w", filepath.Base(p), model.ErrNotFound)
		}
		return nil, ObjectInfo{}, ioErr("open file", err)
	}
	return f, ObjectInfo{
		Name:         st.Name(),
		Path:         p,
		Size:         st.Size(),
		ContentType:  ContentTypeFor(st.Name()),
		LastModified: st.ModTime(),
	}, nil
}

// ContentTypeFor picks the response MIME type from the file extension.
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
