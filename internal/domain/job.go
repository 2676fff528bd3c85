package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobStatus is the lifecycle state of an archive ingestion job.
// pending -> in-progress -> processing -> completed | failed.
// Processing is a finer-grained marker set during the archive walk; pollers
// may treat it the same as in-progress. Failed is terminal: a failed job is
// never resumed, the client retries with a fresh upload.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in-progress"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// UploadJob records one completed multipart upload that triggered ingestion.
// It is the durable handoff point between the HTTP request that finalized the
// upload and the detached worker that extracts the archive.
type UploadJob struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ObjectKey       string             `bson:"objectKey" json:"objectKey"`
	Bucket          string             `bson:"bucket" json:"bucket"`
	OwnerID         primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	CompanyID       primitive.ObjectID `bson:"companyId,omitempty" json:"companyId,omitempty"`
	DisplayName     string             `bson:"displayName" json:"displayName"`
	OwnerKind       OwnerKind          `bson:"ownerKind" json:"ownerKind"`
	RootFolderID    primitive.ObjectID `bson:"rootFolderId" json:"rootFolderId"`
	DestinationPath string             `bson:"destinationPath" json:"destinationPath"`
	Status          JobStatus          `bson:"status" json:"status"`
	FailureReason   string             `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
