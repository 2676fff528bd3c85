package repository

import (
	"context"

	"github.com/pranav-ddreg/vitalic-docstore/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ChildFilter narrows and orders ListByParent queries.
type ChildFilter struct {
	// Search is a case-insensitive substring match on title. Empty means no filter.
	Search string
	// Descending reverses the title sort (ascending by default).
	Descending bool
}

// FolderRepository defines the interface for folder nodes of the document tree.
type FolderRepository interface {
	Create(ctx context.Context, folder *domain.Folder) (primitive.ObjectID, error)
	// FindOrCreate returns the folder with the given exact title under parent,
	// creating it if absent. Implementations must be atomic (upsert under the
	// unique (parent,title) index) so concurrent ingestion jobs never produce
	// duplicate sibling folders.
	FindOrCreate(ctx context.Context, parent primitive.ObjectID, title string) (*domain.Folder, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Folder, error)
	ListByParent(ctx context.Context, parent primitive.ObjectID, filter ChildFilter) ([]domain.Folder, error)
	CountByParent(ctx context.Context, parent primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// FileRepository defines the interface for file nodes of the document tree.
type FileRepository interface {
	Create(ctx context.Context, file *domain.File) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.File, error)
	ListByParent(ctx context.Context, parent primitive.ObjectID, filter ChildFilter) ([]domain.File, error)
	CountByParent(ctx context.Context, parent primitive.ObjectID) (int64, error)
	// MarkUploaded flips isUploaded once the object-store write is confirmed.
	MarkUploaded(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UploadJobRepository defines the interface for ingestion job records.
type UploadJobRepository interface {
	Create(ctx context.Context, job *domain.UploadJob) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.UploadJob, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.UploadJob, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.JobStatus, reason string) error
}

// OwnerRegistry resolves which business-record collection a tree root's parent
// id belongs to. Candidates are probed in a fixed priority order.
type OwnerRegistry interface {
	// Resolve returns the kind of the owning record, or domain.OwnerKindFolder
	// when no candidate collection contains the id (the documented fallback).
	Resolve(ctx context.Context, id primitive.ObjectID) (domain.OwnerKind, error)
	// Known reports whether some candidate collection actually contains the id.
	Known(ctx context.Context, id primitive.ObjectID) (bool, error)
}
