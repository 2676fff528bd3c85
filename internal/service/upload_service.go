package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pranav-ddreg/vitalic-docstore/internal/domain"
	"github.com/pranav-ddreg/vitalic-docstore/internal/jobs"
	"github.com/pranav-ddreg/vitalic-docstore/internal/repository"
	"github.com/pranav-ddreg/vitalic-docstore/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrUploadBusy = errors.New("ingestion queue is full, retry later")
)

const (
	archivePrefix   = "archives"
	extractedPrefix = "extracted"
	directPrefix    = "documents"
)

// UploadSession is the client's handle on an in-flight multipart upload. The
// coordinator is stateless between calls; the client echoes key and uploadId
// back on every subsequent request.
type UploadSession struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	UploadID string `json:"uploadId"`
}

// CompleteArchiveInput finalizes an archive upload and starts ingestion.
type CompleteArchiveInput struct {
	Key       string
	UploadID  string
	Parts     []storage.CompletedPart
	ParentID  primitive.ObjectID
	FileName  string
	OwnerID   primitive.ObjectID
	CompanyID primitive.ObjectID
}

// CompleteArchiveResult is returned to the client immediately; ingestion
// continues out-of-band and is observed via the job-status poll.
type CompleteArchiveResult struct {
	Location       string             `json:"location"`
	Bucket         string             `json:"bucket"`
	Key            string             `json:"key"`
	JobID          primitive.ObjectID `json:"jobId"`
	RootFolderID   primitive.ObjectID `json:"rootFolderId"`
	RootFolderName string             `json:"rootFolderName"`
}

// CompleteDirectInput finalizes a single-file upload: one File node, no
// ingestion job.
type CompleteDirectInput struct {
	Key      string
	UploadID string
	Parts    []storage.CompletedPart
	ParentID primitive.ObjectID
	FileName string
}

// UploadService coordinates the client-facing multipart upload protocol and
// hands completed archives off to the ingestion workers.
type UploadService interface {
	Initiate(ctx context.Context, filename, contentType string) (*UploadSession, error)
	InitiateDirect(ctx context.Context, filename, contentType string) (*UploadSession, error)
	PresignPart(ctx context.Context, key, uploadID string, partNumber int32) (string, error)
	Complete(ctx context.Context, in CompleteArchiveInput) (*CompleteArchiveResult, error)
	CompleteDirect(ctx context.Context, in CompleteDirectInput) (*domain.File, error)
	Abort(ctx context.Context, key, uploadID string) error
}

// uploadService implements UploadService.
type uploadService struct {
	store   storage.ObjectStore
	tree    TreeService
	jobRepo repository.UploadJobRepository
	owners  repository.OwnerRegistry
	ingest  IngestService
	runner  *jobs.Runner
	log     *zap.Logger
}

// NewUploadService creates a new UploadService.
func NewUploadService(
	store storage.ObjectStore,
	tree TreeService,
	jobRepo repository.UploadJobRepository,
	owners repository.OwnerRegistry,
	ingest IngestService,
	runner *jobs.Runner,
	log *zap.Logger,
) UploadService {
	return &uploadService{
		store:   store,
		tree:    tree,
		jobRepo: jobRepo,
		owners:  owners,
		ingest:  ingest,
		runner:  runner,
		log:     log,
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFilename keeps object keys printable and URL-safe.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(path.Base(name))
	return unsafeKeyChars.ReplaceAllString(name, "_")
}

// objectKey builds a collision-resistant key: timestamp, random id, sanitized
// original filename.
func objectKey(prefix, filename string) string {
	return fmt.Sprintf("%s/%d_%s_%s",
		prefix, time.Now().Unix(), uuid.New().String()[:8], sanitizeFilename(filename))
}

func (s *uploadService) initiate(ctx context.Context, prefix, filename, contentType string) (*UploadSession, error) {
	if filename == "" {
		return nil, errors.New("filename is required")
	}

	key := objectKey(prefix, filename)
	uploadID, err := s.store.CreateMultipartUpload(ctx, key, contentType)
	if err != nil {
		return nil, err
	}
	return &UploadSession{
		Bucket:   s.store.Bucket(),
		Key:      key,
		UploadID: uploadID,
	}, nil
}

// Initiate opens a multipart upload session for an archive.
func (s *uploadService) Initiate(ctx context.Context, filename, contentType string) (*UploadSession, error) {
	return s.initiate(ctx, archivePrefix, filename, contentType)
}

// InitiateDirect opens a multipart upload session for a single document.
func (s *uploadService) InitiateDirect(ctx context.Context, filename, contentType string) (*UploadSession, error) {
	return s.initiate(ctx, directPrefix, filename, contentType)
}

// PresignPart returns a direct-upload URL for one part. Part number range
// validation stays with the caller.
func (s *uploadService) PresignPart(ctx context.Context, key, uploadID string, partNumber int32) (string, error) {
	if key == "" || uploadID == "" {
		return "", errors.New("key and uploadId are required")
	}
	return s.store.PresignUploadPart(ctx, key, uploadID, partNumber)
}

// sortParts orders parts ascending by part number; the store rejects
// unordered or non-contiguous lists, and ordering is our responsibility.
func sortParts(parts []storage.CompletedPart) []storage.CompletedPart {
	sorted := make([]storage.CompletedPart, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PartNumber < sorted[j].PartNumber
	})
	return sorted
}

// rootTitle derives the root folder name from the upload's display name with
// its extension stripped.
func rootTitle(fileName string) string {
	title := strings.TrimSuffix(fileName, path.Ext(fileName))
	if title == "" {
		title = fileName
	}
	return title
}

// Complete finalizes the multipart upload, materializes the tree root, records
// the ingestion job, and submits it to the workers. It returns before
// extraction starts; the client polls the job for progress.
func (s *uploadService) Complete(ctx context.Context, in CompleteArchiveInput) (*CompleteArchiveResult, error) {
	if in.Key == "" || in.UploadID == "" || in.FileName == "" {
		return nil, errors.New("key, uploadId, and fileName are required")
	}
	if len(in.Parts) == 0 {
		return nil, errors.New("at least one completed part is required")
	}

	location, err := s.store.CompleteMultipartUpload(ctx, in.Key, in.UploadID, sortParts(in.Parts))
	if err != nil {
		return nil, err
	}

	ownerKind, err := s.owners.Resolve(ctx, in.ParentID)
	if err != nil {
		return nil, err
	}

	root, err := s.tree.FindOrCreateFolder(ctx, in.ParentID, rootTitle(in.FileName))
	if err != nil {
		return nil, err
	}

	job := &domain.UploadJob{
		ObjectKey:       in.Key,
		Bucket:          s.store.Bucket(),
		OwnerID:         in.OwnerID,
		CompanyID:       in.CompanyID,
		DisplayName:     in.FileName,
		OwnerKind:       ownerKind,
		RootFolderID:    root.ID,
		DestinationPath: path.Join(extractedPrefix, uuid.New().String()),
		Status:          domain.JobStatusPending,
	}
	jobID, err := s.jobRepo.Create(ctx, job)
	if err != nil {
		return nil, err
	}

	err = s.runner.Submit(func(taskCtx context.Context) {
		s.ingest.Run(taskCtx, jobID)
	})
	if err != nil {
		// The upload itself succeeded; the job record stays queryable in its
		// failed state so the client knows to retry.
		reason := fmt.Sprintf("not scheduled: %v", err)
		if uerr := s.jobRepo.UpdateStatus(ctx, jobID, domain.JobStatusFailed, reason); uerr != nil {
			s.log.Error("mark unscheduled job failed", zap.Error(uerr))
		}
		return nil, ErrUploadBusy
	}

	s.log.Info("archive upload completed, ingestion scheduled",
		zap.String("key", in.Key),
		zap.String("jobId", jobID.Hex()),
		zap.String("ownerKind", string(ownerKind)))

	return &CompleteArchiveResult{
		Location:       location,
		Bucket:         s.store.Bucket(),
		Key:            in.Key,
		JobID:          jobID,
		RootFolderID:   root.ID,
		RootFolderName: root.Title,
	}, nil
}

// CompleteDirect finalizes a single-file multipart upload and records its
// File node in place.
func (s *uploadService) CompleteDirect(ctx context.Context, in CompleteDirectInput) (*domain.File, error) {
	if in.Key == "" || in.UploadID == "" || in.FileName == "" {
		return nil, errors.New("key, uploadId, and fileName are required")
	}
	if len(in.Parts) == 0 {
		return nil, errors.New("at least one completed part is required")
	}

	location, err := s.store.CompleteMultipartUpload(ctx, in.Key, in.UploadID, sortParts(in.Parts))
	if err != nil {
		return nil, err
	}

	name, ext := splitExtension(sanitizeFilename(in.FileName))
	ref := domain.StorageRef{Bucket: s.store.Bucket(), Key: in.Key, Location: location}
	return s.tree.CreateFile(ctx, in.ParentID, name, ext, ref, true)
}

// Abort cancels an in-flight multipart upload. Best-effort by contract.
func (s *uploadService) Abort(ctx context.Context, key, uploadID string) error {
	if key == "" || uploadID == "" {
		return errors.New("key and uploadId are required")
	}
	return s.store.AbortMultipartUpload(ctx, key, uploadID)
}
