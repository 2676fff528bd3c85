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

const folderCollectionName = "folders"

// mongoFolderRepository implements repository.FolderRepository
type mongoFolderRepository struct {
	collection *mongo.Collection
}

// NewMongoFolderRepository creates a new Folder repository backed by MongoDB.
func NewMongoFolderRepository(db *mongo.Database) repository.FolderRepository {
	return &mongoFolderRepository{
		collection: db.Collection(folderCollectionName),
	}
}

// Create inserts a new folder node.
func (r *mongoFolderRepository) Create(ctx context.Context, folder *domain.Folder) (primitive.ObjectID, error) {
	if folder.Title == "" || folder.Parent == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("folder requires title and parent")
	}

	folder.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	folder.CreatedAt = now
	folder.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, folder)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// FindOrCreate upserts on the (parent, title) pair. The unique index created in
// EnsureFolderIndexes makes this safe under concurrent ingestion jobs: two
// racing upserts converge on a single document.
func (r *mongoFolderRepository) FindOrCreate(ctx context.Context, parent primitive.ObjectID, title string) (*domain.Folder, error) {
	now := time.Now().UTC()
	filter := bson.M{"parent": parent, "title": title}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"parent":    parent,
			"title":     title,
			"createdAt": now,
			"updatedAt": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var folder domain.Folder
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&folder)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// GetByID retrieves a folder by its ID.
func (r *mongoFolderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Folder, error) {
	var folder domain.Folder
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&folder)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &folder, nil
}

// ListByParent returns the direct child folders of parent, ordered by title.
func (r *mongoFolderRepository) ListByParent(ctx context.Context, parent primitive.ObjectID, filter repository.ChildFilter) ([]domain.Folder, error) {
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

	var folders []domain.Folder
	if err := cursor.All(ctx, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// CountByParent counts direct child folders.
func (r *mongoFolderRepository) CountByParent(ctx context.Context, parent primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"parent": parent})
}

// Delete removes a single folder record. It does not touch descendants; the
// service layer owns recursive deletion ordering.
func (r *mongoFolderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureFolderIndexes creates necessary indexes for the folders collection.
// The unique (parent, title) index backs FindOrCreate's idempotency.
func EnsureFolderIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "parent", Value: 1}, {Key: "title", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "parent", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
