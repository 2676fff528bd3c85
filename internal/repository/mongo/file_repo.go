package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/pranav-ddreg/vitalic-docstore/internal/domain"
	"github.com/pranav-ddreg/vitalic-docstore/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const fileCollectionName = "files"

// mongoFileRepository implements repository.FileRepository
type mongoFileRepository struct {
	collection *mongo.Collection
}

// NewMongoFileRepository creates a new File repository backed by MongoDB.
func NewMongoFileRepository(db *mongo.Database) repository.FileRepository {
	return &mongoFileRepository{
		collection: db.Collection(fileCollectionName),
	}
}

// Create inserts a new file node. Files are never deduplicated by name, so no
// uniqueness constraint applies here.
func (r *mongoFileRepository) Create(ctx context.Context, file *domain.File) (primitive.ObjectID, error) {
	if file.Title == "" || file.Parent == primitive.NilObjectID || file.Storage.Key == "" {
		return primitive.NilObjectID, errors.New("file requires title, parent, and storage key")
	}

	file.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	file.CreatedAt = now
	file.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, file)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a file by its ID.
func (r *mongoFileRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.File, error) {
	var file domain.File
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&file)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &file, nil
}

// ListByParent returns the direct child files of parent, ordered by title.
func (r *mongoFileRepository) ListByParent(ctx context.Context, parent primitive.ObjectID, filter repository.ChildFilter) ([]domain.File, error) {
	query := bson.M{"parent": parent}
	if filter.Search != "" {
		query["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
	}

	order := 1
	if filter.Descending {
		order = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "title", Value: order}})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var files []domain.File
	if err := cursor.All(ctx, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// CountByParent counts direct child files.
func (r *mongoFileRepository) CountByParent(ctx context.Context, parent primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"parent": parent})
}

// MarkUploaded flips the isUploaded flag after the object-store write is confirmed.
func (r *mongoFileRepository) MarkUploaded(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"isUploaded": true, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a single file record. The object-store payload is retained;
// storage lifecycle is a separate retention concern.
func (r *mongoFileRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureFileIndexes creates necessary indexes for the files collection.
func EnsureFileIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "parent", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "storage.key", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
