package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pranav-ddreg/vitalic-docstore/internal/domain"
	"github.com/pranav-ddreg/vitalic-docstore/internal/repository"
	"github.com/pranav-ddreg/vitalic-docstore/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- in-memory folder repository ---

type memFolderRepo struct {
	mu      sync.Mutex
	folders map[primitive.ObjectID]*domain.Folder
	deleted []primitive.ObjectID
}

func newMemFolderRepo() *memFolderRepo {
	return &memFolderRepo{folders: make(map[primitive.ObjectID]*domain.Folder)}
}

func (r *memFolderRepo) Create(ctx context.Context, folder *domain.Folder) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.folders {
		if f.Parent == folder.Parent && f.Title == folder.Title {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	id := primitive.NewObjectID()
	stored := *folder
	stored.ID = id
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.folders[id] = &stored
	return id, nil
}

func (r *memFolderRepo) FindOrCreate(ctx context.Context, parent primitive.ObjectID, title string) (*domain.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.folders {
		if f.Parent == parent && f.Title == title {
			copied := *f
			return &copied, nil
		}
	}
	id := primitive.NewObjectID()
	f := &domain.Folder{ID: id, Title: title, Parent: parent, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.folders[id] = f
	copied := *f
	return &copied, nil
}

func (r *memFolderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *f
	return &copied, nil
}

func (r *memFolderRepo) ListByParent(ctx context.Context, parent primitive.ObjectID, filter repository.ChildFilter) ([]domain.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Folder
	for _, f := range r.folders {
		if f.Parent != parent {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(f.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Descending {
			return out[i].Title > out[j].Title
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (r *memFolderRepo) CountByParent(ctx context.Context, parent primitive.ObjectID) (int64, error) {
	children, _ := r.ListByParent(ctx, parent, repository.ChildFilter{})
	return int64(len(children)), nil
}

func (r *memFolderRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.folders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.folders, id)
	r.deleted = append(r.deleted, id)
	return nil
}

// --- in-memory file repository ---

type memFileRepo struct {
	mu      sync.Mutex
	files   map[primitive.ObjectID]*domain.File
	deleted []primitive.ObjectID
}

func newMemFileRepo() *memFileRepo {
	return &memFileRepo{files: make(map[primitive.ObjectID]*domain.File)}
}

func (r *memFileRepo) Create(ctx context.Context, file *domain.File) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	stored := *file
	stored.ID = id
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.files[id] = &stored
	return id, nil
}

func (r *memFileRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *f
	return &copied, nil
}

func (r *memFileRepo) ListByParent(ctx context.Context, parent primitive.ObjectID, filter repository.ChildFilter) ([]domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.File
	for _, f := range r.files {
		if f.Parent != parent {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(f.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Descending {
			return out[i].Title > out[j].Title
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (r *memFileRepo) CountByParent(ctx context.Context, parent primitive.ObjectID) (int64, error) {
	children, _ := r.ListByParent(ctx, parent, repository.ChildFilter{})
	return int64(len(children)), nil
}

func (r *memFileRepo) MarkUploaded(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.IsUploaded = true
	return nil
}

func (r *memFileRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.files, id)
	r.deleted = append(r.deleted, id)
	return nil
}

// --- in-memory upload job repository ---

type memJobRepo struct {
	mu       sync.Mutex
	jobs     map[primitive.ObjectID]*domain.UploadJob
	statuses []domain.JobStatus
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[primitive.ObjectID]*domain.UploadJob)}
}

func (r *memJobRepo) Create(ctx context.Context, job *domain.UploadJob) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	stored := *job
	stored.ID = id
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.jobs[id] = &stored
	return id, nil
}

func (r *memJobRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.UploadJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *j
	return &copied, nil
}

func (r *memJobRepo) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.UploadJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.UploadJob
	for _, j := range r.jobs {
		if j.OwnerID == ownerID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r *memJobRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.JobStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	j.Status = status
	j.FailureReason = reason
	j.UpdatedAt = time.Now()
	r.statuses = append(r.statuses, status)
	return nil
}

// --- owner registry fake ---

type fakeOwnerRegistry struct {
	kinds map[primitive.ObjectID]domain.OwnerKind
	err   error
}

func newFakeOwnerRegistry() *fakeOwnerRegistry {
	return &fakeOwnerRegistry{kinds: make(map[primitive.ObjectID]domain.OwnerKind)}
}

func (f *fakeOwnerRegistry) Resolve(ctx context.Context, id primitive.ObjectID) (domain.OwnerKind, error) {
	if f.err != nil {
		return "", f.err
	}
	if kind, ok := f.kinds[id]; ok {
		return kind, nil
	}
	return domain.OwnerKindFolder, nil
}

func (f *fakeOwnerRegistry) Known(ctx context.Context, id primitive.ObjectID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.kinds[id]
	return ok, nil
}

// --- object store fake ---

type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	createUploadErr   error
	completeErr       error
	getErr            error
	putErr            error
	putCalls          int
	failPutAfter      int
	completedParts    []storage.CompletedPart
	abortedUploads    []string
	presignedParts    []int32
	presignedDownload string
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (s *memObjectStore) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	if s.createUploadErr != nil {
		return "", s.createUploadErr
	}
	return "upload-" + key, nil
}

func (s *memObjectStore) PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presignedParts = append(s.presignedParts, partNumber)
	return fmt.Sprintf("https://store.local/%s?part=%d", key, partNumber), nil
}

func (s *memObjectStore) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []storage.CompletedPart) (string, error) {
	if s.completeErr != nil {
		return "", s.completeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completedParts = append([]storage.CompletedPart(nil), parts...)
	s.objects[key] = []byte("assembled")
	return "https://store.local/" + key, nil
}

func (s *memObjectStore) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortedUploads = append(s.abortedUploads, uploadID)
	return nil
}

func (s *memObjectStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (s *memObjectStore) PutObject(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	if s.failPutAfter > 0 && s.putCalls > s.failPutAfter {
		return "", storage.ErrStoreUnavailable
	}
	s.objects[key] = append([]byte(nil), data...)
	return "https://store.local/" + key, nil
}

func (s *memObjectStore) DeleteObject(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memObjectStore) HeadObject(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.ObjectInfo{Size: int64(len(data)), LastModified: time.Now(), ETag: "etag"}, nil
}

func (s *memObjectStore) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	if s.presignedDownload != "" {
		return s.presignedDownload, nil
	}
	return "https://store.local/presigned/" + key, nil
}

func (s *memObjectStore) Bucket() string {
	return "test-bucket"
}
