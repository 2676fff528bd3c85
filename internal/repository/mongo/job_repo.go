package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/pranav-ddreg/vitalic-docstore/internal/domain"
	"github.com/pranav-ddreg/vitalic-docstore/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const jobCollectionName = "upload_jobs"

// mongoUploadJobRepository implements repository.UploadJobRepository
type mongoUploadJobRepository struct {
	collection *mongo.Collection
}

// NewMongoUploadJobRepository creates a new UploadJob repository backed by MongoDB.
func NewMongoUploadJobRepository(db *mongo.Database) repository.UploadJobRepository {
	return &mongoUploadJobRepository{
		collection: db.Collection(jobCollectionName),
	}
}

// Create inserts a new ingestion job record in pending state.
func (r *mongoUploadJobRepository) Create(ctx context.Context, job *domain.UploadJob) (primitive.ObjectID, error) {
	if job.ObjectKey == "" || job.RootFolderID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("upload job requires objectKey and rootFolderId")
	}

	job.ID = primitive.NewObjectID()
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, job)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a job record by its ID.
func (r *mongoUploadJobRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.UploadJob, error) {
	var job domain.UploadJob
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// ListByOwner returns all jobs initiated by a user, newest first.
func (r *mongoUploadJobRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.UploadJob, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []domain.UploadJob
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// UpdateStatus transitions the job record. An empty reason clears any previous
// failure reason.
func (r *mongoUploadJobRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.JobStatus, reason string) error {
	set := bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if reason != "" {
		set["failureReason"] = reason
	} else {
		update["$unset"] = bson.M{"failureReason": ""}
	}

	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureUploadJobIndexes creates necessary indexes for the upload_jobs collection.
func EnsureUploadJobIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "rootFolderId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
