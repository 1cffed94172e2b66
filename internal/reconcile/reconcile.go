package reconcile

import (
	"context"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"docsign/internal/model"
)

// Source is the read-only view of the registry and the file store needed for a diff.
type Source interface {
	ListAll(ctx context.Context) ([]model.Document, error)
	ScanStore(ctx context.Context) model.StoreScan
}

// Report describes how the registry and the file store disagree.
type Report struct {
	Root          string   `json:"root_path"`
	StoreStatus   string   `json:"store_status"`
	RegistryCount int      `json:"registry_count"`
	FileCount     int      `json:"file_count"`
	MissingFiles  []string `json:"missing_files"`
	OrphanFiles   []string `json:"orphan_files"`
}

// Consistent is true when every row has its file and every file has a row.
func (r Report) Consistent() bool {
	return r.StoreStatus == model.StoreScanOK && len(r.MissingFiles) == 0 && len(r.OrphanFiles) == 0
}

// Run compares registry filenames with the files present in the store.
// Several rows may share one filename; it counts once.
func Run(ctx context.Context, src Source) (Report, error) {
	docs, err := src.ListAll(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list registry: %w", err)
	}
	scan := src.ScanStore(ctx)

	registered := mapset.NewThreadUnsafeSet[string]()
	for _, d := range docs {
		registered.Add(d.Filename)
	}
	present := mapset.NewThreadUnsafeSet[string](scan.Files...)

	rep := Report{
		Root:          scan.Root,
		StoreStatus:   scan.Status,
		RegistryCount: len(docs),
		FileCount:     len(scan.Files),
		MissingFiles:  sorted(registered.Difference(present)),
		OrphanFiles:   []string{},
	}
	// An unreadable store says nothing about orphans.
	if scan.Status == model.StoreScanOK {
		rep.OrphanFiles = sorted(present.Difference(registered))
	}
	return rep, nil
}

func sorted(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	return out
}
