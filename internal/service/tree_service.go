package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pranav-ddreg/vitalic-docstore/internal/domain"
	"github.com/pranav-ddreg/vitalic-docstore/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrNodeNotFound  = errors.New("folder or file not found")
	ErrInvalidParent = errors.New("parent is neither a folder nor a recognized record")
	ErrDuplicateName = errors.New("a sibling folder with this title already exists")
)

// NodeKind discriminates the two tree node variants in listings.
type NodeKind string

const (
	NodeKindFolder NodeKind = "folder"
	NodeKindFile   NodeKind = "file"
)

// Child is one entry of a folder listing. Exactly one of Folder/File is set.
// HasChildren is only meaningful for folders.
type Child struct {
	Kind        NodeKind
	Folder      *domain.Folder
	File        *domain.File
	HasChildren bool
}

// TreeEntry is one element of a recursive subtree listing. Paths are
// slash-joined and relative to the walk root; folder entries carry a trailing
// slash and appear only for empty folders, so exports can recreate them.
type TreeEntry struct {
	Path    string
	Kind    NodeKind
	Storage *domain.StorageRef
}

// Crumb is one segment of a breadcrumb trail.
type Crumb struct {
	ID   primitive.ObjectID `json:"_id"`
	Name string             `json:"name"`
}

// ListOptions controls ListChildren filtering and ordering.
type ListOptions struct {
	Search     string
	Descending bool
}

// TreeService owns the folder/file hierarchy: creation, idempotent folder
// lookup, browsing, breadcrumbs, recursive listing and deletion.
type TreeService interface {
	CreateFolder(ctx context.Context, parentID primitive.ObjectID, title string) (*domain.Folder, error)
	FindOrCreateFolder(ctx context.Context, parentID primitive.ObjectID, title string) (*domain.Folder, error)
	CreateFile(ctx context.Context, parentID primitive.ObjectID, title, extension string, ref domain.StorageRef, uploaded bool) (*domain.File, error)
	MarkFileUploaded(ctx context.Context, id primitive.ObjectID) error
	GetFolder(ctx context.Context, id primitive.ObjectID) (*domain.Folder, error)
	GetFile(ctx context.Context, id primitive.ObjectID) (*domain.File, error)
	ListChildren(ctx context.Context, parentID primitive.ObjectID, opts ListOptions) ([]Child, error)
	RecursiveList(ctx context.Context, rootID primitive.ObjectID) ([]TreeEntry, error)
	Breadcrumb(ctx context.Context, nodeID primitive.ObjectID) ([]Crumb, error)
	DeleteRecursive(ctx context.Context, nodeID primitive.ObjectID) error
	DeleteChildren(ctx context.Context, parentID primitive.ObjectID) error
	CountSubtree(ctx context.Context, rootID primitive.ObjectID) (files, folders int64, err error)
}

// treeService implements TreeService over the folder and file repositories.
type treeService struct {
	folderRepo repository.FolderRepository
	fileRepo   repository.FileRepository
	owners     repository.OwnerRegistry
}

// NewTreeService creates a new TreeService.
func NewTreeService(
	folderRepo repository.FolderRepository,
	fileRepo repository.FileRepository,
	owners repository.OwnerRegistry,
) TreeService {
	return &treeService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		owners:     owners,
	}
}

// validParent accepts an existing folder or an id found in one of the
// business-record collections.
func (s *treeService) validParent(ctx context.Context, parentID primitive.ObjectID) error {
	_, err := s.folderRepo.GetByID(ctx, parentID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	known, err := s.owners.Known(ctx, parentID)
	if err != nil {
		return err
	}
	if !known {
		return ErrInvalidParent
	}
	return nil
}

// CreateFolder creates a folder after validating the parent. Sibling folder
// titles are unique; a collision surfaces as ErrDuplicateName.
func (s *treeService) CreateFolder(ctx context.Context, parentID primitive.ObjectID, title string) (*domain.Folder, error) {
	if title == "" {
		return nil, errors.New("folder title is required")
	}
	if err := s.validParent(ctx, parentID); err != nil {
		return nil, err
	}

	folder := &domain.Folder{Title: title, Parent: parentID}
	id, err := s.folderRepo.Create(ctx, folder)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	folder.ID = id
	return folder, nil
}

// FindOrCreateFolder returns the existing folder with an exact-match title
// under parentID, creating it when absent. Ingestion relies on this so that
// re-processing or interleaved archive paths never produce duplicate siblings.
func (s *treeService) FindOrCreateFolder(ctx context.Context, parentID primitive.ObjectID, title string) (*domain.Folder, error) {
	if title == "" {
		return nil, errors.New("folder title is required")
	}
	return s.folderRepo.FindOrCreate(ctx, parentID, title)
}

// CreateFile records a file node. Files are never deduplicated by name.
func (s *treeService) CreateFile(ctx context.Context, parentID primitive.ObjectID, title, extension string, ref domain.StorageRef, uploaded bool) (*domain.File, error) {
	if title == "" {
		return nil, errors.New("file title is required")
	}
	if err := s.validParent(ctx, parentID); err != nil {
		return nil, err
	}

	file := &domain.File{
		Title:      title,
		Extension:  extension,
		Parent:     parentID,
		Storage:    ref,
		IsUploaded: uploaded,
	}
	id, err := s.fileRepo.Create(ctx, file)
	if err != nil {
		return nil, err
	}
	file.ID = id
	return file, nil
}

// MarkFileUploaded confirms a file's payload reached the object store.
func (s *treeService) MarkFileUploaded(ctx context.Context, id primitive.ObjectID) error {
	err := s.fileRepo.MarkUploaded(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNodeNotFound
	}
	return err
}

func (s *treeService) GetFolder(ctx context.Context, id primitive.ObjectID) (*domain.Folder, error) {
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	return folder, nil
}

func (s *treeService) GetFile(ctx context.Context, id primitive.ObjectID) (*domain.File, error) {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	return file, nil
}

// ListChildren returns the direct children of a parent for browsing, folders
// tagged with whether they have further children.
func (s *treeService) ListChildren(ctx context.Context, parentID primitive.ObjectID, opts ListOptions) ([]Child, error) {
	filter := repository.ChildFilter{Search: opts.Search, Descending: opts.Descending}

	folders, err := s.folderRepo.ListByParent(ctx, parentID, filter)
	if err != nil {
		return nil, err
	}
	files, err := s.fileRepo.ListByParent(ctx, parentID, filter)
	if err != nil {
		return nil, err
	}

	children := make([]Child, 0, len(folders)+len(files))
	for i := range folders {
		folder := folders[i]
		nFolders, err := s.folderRepo.CountByParent(ctx, folder.ID)
		if err != nil {
			return nil, err
		}
		nFiles, err := s.fileRepo.CountByParent(ctx, folder.ID)
		if err != nil {
			return nil, err
		}
		children = append(children, Child{
			Kind:        NodeKindFolder,
			Folder:      &folder,
			HasChildren: nFolders+nFiles > 0,
		})
	}
	for i := range files {
		children = append(children, Child{Kind: NodeKindFile, File: &files[i]})
	}
	return children, nil
}

// RecursiveList walks the subtree depth-first and produces path entries for
// export: one per file, plus a trailing-slash marker for each empty folder.
func (s *treeService) RecursiveList(ctx context.Context, rootID primitive.ObjectID) ([]TreeEntry, error) {
	var entries []TreeEntry
	if err := s.walk(ctx, rootID, "", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *treeService) walk(ctx context.Context, folderID primitive.ObjectID, prefix string, out *[]TreeEntry) error {
	folders, err := s.folderRepo.ListByParent(ctx, folderID, repository.ChildFilter{})
	if err != nil {
		return err
	}
	files, err := s.fileRepo.ListByParent(ctx, folderID, repository.ChildFilter{})
	if err != nil {
		return err
	}

	// An empty non-root folder still yields a marker entry so exports can
	// recreate the directory.
	if len(folders) == 0 && len(files) == 0 && prefix != "" {
		*out = append(*out, TreeEntry{Path: prefix, Kind: NodeKindFolder})
		return nil
	}

	for i := range files {
		ref := files[i].Storage
		*out = append(*out, TreeEntry{
			Path:    prefix + files[i].Name(),
			Kind:    NodeKindFile,
			Storage: &ref,
		})
	}
	for i := range folders {
		if err := s.walk(ctx, folders[i].ID, prefix+folders[i].Title+"/", out); err != nil {
			return err
		}
	}
	return nil
}

// Breadcrumb returns the trail from just below the root down to the node,
// root excluded. For a file, the trail ends with the file itself.
func (s *treeService) Breadcrumb(ctx context.Context, nodeID primitive.ObjectID) ([]Crumb, error) {
	var tail *Crumb
	startID := nodeID

	folder, err := s.folderRepo.GetByID(ctx, nodeID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// Not a folder; a file starts the walk from its parent folder.
		file, ferr := s.fileRepo.GetByID(ctx, nodeID)
		if ferr != nil {
			if errors.Is(ferr, repository.ErrNotFound) {
				return nil, ErrNodeNotFound
			}
			return nil, ferr
		}
		tail = &Crumb{ID: file.ID, Name: file.Name()}
		startID = file.Parent
		folder, err = s.folderRepo.GetByID(ctx, startID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Orphaned file: no folder chain to report.
				if tail != nil {
					return []Crumb{*tail}, nil
				}
				return nil, ErrNodeNotFound
			}
			return nil, err
		}
	}

	// Collect the chain upward until the parent no longer resolves to a
	// folder, then drop the last element (the root, excluded by contract).
	var chain []Crumb
	for {
		chain = append(chain, Crumb{ID: folder.ID, Name: folder.Title})
		parent, err := s.folderRepo.GetByID(ctx, folder.Parent)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				break
			}
			return nil, err
		}
		folder = parent
	}
	chain = chain[:len(chain)-1]

	// Reverse to read root-to-leaf.
	crumbs := make([]Crumb, 0, len(chain)+1)
	for i := len(chain) - 1; i >= 0; i-- {
		crumbs = append(crumbs, chain[i])
	}
	if tail != nil {
		crumbs = append(crumbs, *tail)
	}
	return crumbs, nil
}

// DeleteRecursive removes a folder and all its descendants (files before their
// folder, subfolders before their parent), or a single file. Object-store
// payloads are retained; storage lifecycle is a separate retention concern.
func (s *treeService) DeleteRecursive(ctx context.Context, nodeID primitive.ObjectID) error {
	_, err := s.folderRepo.GetByID(ctx, nodeID)
	if err == nil {
		return s.deleteFolderTree(ctx, nodeID)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	err = s.fileRepo.Delete(ctx, nodeID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNodeNotFound
	}
	return err
}

// DeleteChildren empties a folder, keeping the folder itself.
func (s *treeService) DeleteChildren(ctx context.Context, parentID primitive.ObjectID) error {
	if _, err := s.folderRepo.GetByID(ctx, parentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNodeNotFound
		}
		return err
	}
	return s.deleteContents(ctx, parentID)
}

func (s *treeService) deleteFolderTree(ctx context.Context, folderID primitive.ObjectID) error {
	if err := s.deleteContents(ctx, folderID); err != nil {
		return err
	}
	if err := s.folderRepo.Delete(ctx, folderID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete folder %s: %w", folderID.Hex(), err)
	}
	return nil
}

func (s *treeService) deleteContents(ctx context.Context, folderID primitive.ObjectID) error {
	files, err := s.fileRepo.ListByParent(ctx, folderID, repository.ChildFilter{})
	if err != nil {
		return err
	}
	for i := range files {
		if err := s.fileRepo.Delete(ctx, files[i].ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("delete file %s: %w", files[i].ID.Hex(), err)
		}
	}

	folders, err := s.folderRepo.ListByParent(ctx, folderID, repository.ChildFilter{})
	if err != nil {
		return err
	}
	for i := range folders {
		if err := s.deleteFolderTree(ctx, folders[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// CountSubtree counts all descendant files and folders under a root. Computed
// on read so pollers see the tree's current state even mid-ingestion.
func (s *treeService) CountSubtree(ctx context.Context, rootID primitive.ObjectID) (int64, int64, error) {
	var files, folders int64
	queue := []primitive.ObjectID{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		nFiles, err := s.fileRepo.CountByParent(ctx, id)
		if err != nil {
			return 0, 0, err
		}
		files += nFiles

		children, err := s.folderRepo.ListByParent(ctx, id, repository.ChildFilter{})
		if err != nil {
			return 0, 0, err
		}
		folders += int64(len(children))
		for i := range children {
			queue = append(queue, children[i].ID)
		}
	}
	return files, folders, nil
}
