package model

import "time"

// Document is the registry record for one uploaded file.
// StoragePath is informational only; the real location is always derived from Filename.
type Document struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	Signed      bool      `json:"signed"`
}

// SignResult reports the two independent outcomes of signing a document.
type SignResult struct {
	ID             int64  `json:"id"`
	Signed         bool   `json:"signed"`
	SignatureSaved bool   `json:"signature_saved"`
	SignatureError string `json:"signature_error,omitempty"`
}

// StoreScan is the read-only listing of files physically present in the file store.
type StoreScan struct {
	Root   string   `json:"root_path"`
	Files  []string `json:"files"`
	Status string   `json:"status"`
}

// StoreScanOK is the status reported when the store root could be listed.
const StoreScanOK = "ok"
