package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pranav-ddreg/vitalic-docstore/internal/repository"
	"github.com/pranav-ddreg/vitalic-docstore/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// dirMode is the permission pattern stamped on directory entries so empty
// folders survive the round trip on extraction.
const dirMode = fs.ModeDir | 0o755

// Export is a fully assembled archive ready to stream to the client.
type Export struct {
	FileName string
	Data     []byte
}

// ExportService re-zips arbitrary subtrees of the document store.
type ExportService interface {
	// ExportSubtree assembles an in-memory ZIP of the subtree rooted at
	// rootID. rootID may be a folder id, or an external owner id whose root
	// folders become the archive's top-level directories. Fail-fast: any
	// member fetch error aborts the whole export.
	ExportSubtree(ctx context.Context, rootID primitive.ObjectID) (*Export, error)
}

// exportService implements ExportService.
type exportService struct {
	tree       TreeService
	folderRepo repository.FolderRepository
	store      storage.ObjectStore
	log        *zap.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(
	tree TreeService,
	folderRepo repository.FolderRepository,
	store storage.ObjectStore,
	log *zap.Logger,
) ExportService {
	return &exportService{
		tree:       tree,
		folderRepo: folderRepo,
		store:      store,
		log:        log,
	}
}

func (s *exportService) ExportSubtree(ctx context.Context, rootID primitive.ObjectID) (*Export, error) {
	name := "archive"

	folder, err := s.folderRepo.GetByID(ctx, rootID)
	switch {
	case err == nil:
		name = folder.Title
	case errors.Is(err, repository.ErrNotFound):
		// Maybe an external owner: it must have at least one root folder.
		roots, lerr := s.folderRepo.ListByParent(ctx, rootID, repository.ChildFilter{})
		if lerr != nil {
			return nil, lerr
		}
		if len(roots) == 0 {
			return nil, ErrNodeNotFound
		}
	default:
		return nil, err
	}

	entries, err := s.tree.RecursiveList(ctx, rootID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, entry := range entries {
		if entry.Kind == NodeKindFolder {
			header := &zip.FileHeader{Name: entry.Path, Method: zip.Store}
			header.SetMode(dirMode)
			if _, err := zw.CreateHeader(header); err != nil {
				return nil, fmt.Errorf("add directory %s: %w", entry.Path, err)
			}
			continue
		}

		data, err := s.store.GetObject(ctx, entry.Storage.Key)
		if err != nil {
			// No partial archives: one missing member fails the export.
			return nil, fmt.Errorf("fetch member %s: %w", entry.Path, err)
		}

		w, err := zw.Create(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("add member %s: %w", entry.Path, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write member %s: %w", entry.Path, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	s.log.Info("subtree exported",
		zap.String("rootId", rootID.Hex()),
		zap.Int("entries", len(entries)),
		zap.Int("bytes", buf.Len()))

	return &Export{FileName: name + ".zip", Data: buf.Bytes()}, nil
}
