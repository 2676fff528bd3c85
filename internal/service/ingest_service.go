package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/pranav-ddreg/vitalic-docstore/internal/domain"
	"github.com/pranav-ddreg/vitalic-docstore/internal/repository"
	"github.com/pranav-ddreg/vitalic-docstore/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrJobNotFound = errors.New("upload job not found")
)

// acceptedExtensions is the allowlist for archive members. Entries with any
// other extension are skipped silently: no node, no object-store write.
var acceptedExtensions = map[string]bool{
	"doc": true, "docx": true, "pdf": true,
	"xls": true, "xlsx": true,
	"jpg": true, "jpeg": true, "png": true,
	"xml": true,
}

// JobStatusView is the polling read of an ingestion job. FileCount and
// FolderCount are computed from the tree at read time, so they reflect
// progress even mid-ingestion.
type JobStatusView struct {
	JobID       primitive.ObjectID `json:"jobId"`
	Status      domain.JobStatus   `json:"status"`
	FileName    string             `json:"fileName"`
	FileCount   int64              `json:"fileCount"`
	FolderCount int64              `json:"folderCount"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// IngestService runs archive extraction jobs and answers status polls.
type IngestService interface {
	// Run executes one job to completion or failure. It is invoked on a
	// worker, detached from the HTTP request that created the job.
	Run(ctx context.Context, jobID primitive.ObjectID)
	Status(ctx context.Context, jobID primitive.ObjectID) (*JobStatusView, error)
	ListJobs(ctx context.Context, ownerID primitive.ObjectID) ([]domain.UploadJob, error)
}

// ingestService implements IngestService.
type ingestService struct {
	jobRepo repository.UploadJobRepository
	tree    TreeService
	store   storage.ObjectStore
	log     *zap.Logger
}

// NewIngestService creates a new IngestService.
func NewIngestService(
	jobRepo repository.UploadJobRepository,
	tree TreeService,
	store storage.ObjectStore,
	log *zap.Logger,
) IngestService {
	return &ingestService{
		jobRepo: jobRepo,
		tree:    tree,
		store:   store,
		log:     log,
	}
}

// Run drives the job through pending -> in-progress -> processing ->
// completed/failed. Extraction is not transactional: a failure mid-walk leaves
// the nodes created so far in place and the job in failed state for the
// caller to inspect.
func (s *ingestService) Run(ctx context.Context, jobID primitive.ObjectID) {
	log := s.log.With(zap.String("jobId", jobID.Hex()))

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		// No record to fail against; log and stop.
		log.Error("ingestion job record not found", zap.Error(err))
		return
	}

	if err := s.jobRepo.UpdateStatus(ctx, jobID, domain.JobStatusInProgress, ""); err != nil {
		log.Error("mark job in-progress", zap.Error(err))
		return
	}

	fileCount, folderCount, err := s.extract(ctx, job, log)
	if err != nil {
		log.Error("ingestion failed", zap.Error(err))
		if uerr := s.jobRepo.UpdateStatus(ctx, jobID, domain.JobStatusFailed, err.Error()); uerr != nil {
			log.Error("mark job failed", zap.Error(uerr))
		}
		return
	}

	if err := s.jobRepo.UpdateStatus(ctx, jobID, domain.JobStatusCompleted, ""); err != nil {
		log.Error("mark job completed", zap.Error(err))
		return
	}
	log.Info("ingestion completed",
		zap.Int("files", fileCount), zap.Int("folders", folderCount))
}

func (s *ingestService) extract(ctx context.Context, job *domain.UploadJob, log *zap.Logger) (int, int, error) {
	data, err := s.store.GetObject(ctx, job.ObjectKey)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch archive: %w", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, 0, fmt.Errorf("open archive: %w", err)
	}

	if err := s.jobRepo.UpdateStatus(ctx, job.ID, domain.JobStatusProcessing, ""); err != nil {
		return 0, 0, err
	}

	log.Info("extracting archive",
		zap.String("key", job.ObjectKey), zap.Int("members", len(reader.File)))

	var fileCount, folderCount int
	for _, entry := range reader.File {
		created, madeFolders, err := s.ingestEntry(ctx, job, entry)
		if err != nil {
			return fileCount, folderCount, fmt.Errorf("entry %q: %w", entry.Name, err)
		}
		if created {
			fileCount++
		}
		folderCount += madeFolders
	}
	return fileCount, folderCount, nil
}

// ingestEntry walks one archive member's internal path from the job's root.
// The current parent is an explicit local, reset per entry; sibling entries
// sharing a prefix converge on the same folders through the idempotent lookup.
func (s *ingestService) ingestEntry(ctx context.Context, job *domain.UploadJob, entry *zip.File) (bool, int, error) {
	isDir := strings.HasSuffix(entry.Name, "/") || entry.FileInfo().IsDir()

	segments := splitArchivePath(entry.Name)
	if len(segments) == 0 {
		return false, 0, nil
	}

	parent := job.RootFolderID
	folders := 0
	for i, segment := range segments {
		last := i == len(segments)-1
		if last && !isDir && strings.Contains(segment, ".") {
			ok, err := s.ingestFile(ctx, job, parent, segment, entry)
			return ok, folders, err
		}

		folder, err := s.tree.FindOrCreateFolder(ctx, parent, segment)
		if err != nil {
			return false, folders, err
		}
		folders++
		parent = folder.ID
	}
	return false, folders, nil
}

// ingestFile records one qualifying member's file node and uploads its
// payload. The node starts unuploaded and is only confirmed once the
// object-store write succeeds, so a crash mid-member leaves an honest record.
func (s *ingestService) ingestFile(ctx context.Context, job *domain.UploadJob, parent primitive.ObjectID, segment string, entry *zip.File) (bool, error) {
	name, ext := splitExtension(segment)
	if !acceptedExtensions[ext] {
		return false, nil
	}

	data, err := readEntry(entry)
	if err != nil {
		return false, fmt.Errorf("read member: %w", err)
	}

	key := objectKeyFor(job.DestinationPath, name, ext)
	ref := domain.StorageRef{Bucket: job.Bucket, Key: key}
	file, err := s.tree.CreateFile(ctx, parent, name, ext, ref, false)
	if err != nil {
		return false, fmt.Errorf("record file node: %w", err)
	}

	if _, err := s.store.PutObject(ctx, key, data, ""); err != nil {
		return false, fmt.Errorf("store member: %w", err)
	}

	if err := s.tree.MarkFileUploaded(ctx, file.ID); err != nil {
		return false, fmt.Errorf("confirm upload: %w", err)
	}
	return true, nil
}

// splitArchivePath normalizes a ZIP member name into clean path segments.
func splitArchivePath(name string) []string {
	trimmed := strings.Trim(path.Clean("/"+name), "/")
	if trimmed == "" || trimmed == "." {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// splitExtension separates a filename into base name and lowercase extension
// without the dot.
func splitExtension(filename string) (string, string) {
	ext := path.Ext(filename)
	name := strings.TrimSuffix(filename, ext)
	return name, strings.ToLower(strings.TrimPrefix(ext, "."))
}

// objectKeyFor derives the destination key for an extracted member: the job's
// destination prefix plus the member name, collision-avoided with a random
// suffix before the extension.
func objectKeyFor(destinationPath, name, ext string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return path.Join(destinationPath, fmt.Sprintf("%s_%s.%s", name, suffix, ext))
}

// readEntry decompresses one archive member fully into memory.
func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Status answers a poll for one job.
func (s *ingestService) Status(ctx context.Context, jobID primitive.ObjectID) (*JobStatusView, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	files, folders, err := s.tree.CountSubtree(ctx, job.RootFolderID)
	if err != nil {
		return nil, err
	}

	return &JobStatusView{
		JobID:       job.ID,
		Status:      job.Status,
		FileName:    job.DisplayName,
		FileCount:   files,
		FolderCount: folders,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}, nil
}

// ListJobs returns the ingestion history for one user.
func (s *ingestService) ListJobs(ctx context.Context, ownerID primitive.ObjectID) ([]domain.UploadJob, error) {
	return s.jobRepo.ListByOwner(ctx, ownerID)
}
