package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Folder is a directory node in the document tree. Parent points either at
// another Folder or, for tree roots, at the business record that owns the tree
// (a renewal, a variation, or a plain container). A root is recognized by its
// parent id not resolving to any Folder.
type Folder struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title     string             `bson:"title" json:"title"`
	Parent    primitive.ObjectID `bson:"parent" json:"parent"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// File is a leaf node. Title and Extension are stored separately; Extension is
// lowercase without the leading dot. The payload itself lives in object
// storage at Storage.Key.
type File struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title      string             `bson:"title" json:"title"`
	Extension  string             `bson:"extension" json:"extension"`
	Parent     primitive.ObjectID `bson:"parent" json:"parent"`
	Storage    StorageRef         `bson:"storage" json:"storage"`
	IsUploaded bool               `bson:"isUploaded" json:"isUploaded"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// StorageRef locates a file's payload in the object store.
type StorageRef struct {
	Bucket   string `bson:"bucket" json:"bucket"`
	Key      string `bson:"key" json:"key"`
	Location string `bson:"location,omitempty" json:"location,omitempty"`
}

// Name returns the display filename including the extension.
func (f *File) Name() string {
	if f.Extension == "" {
		return f.Title
	}
	return f.Title + "." + f.Extension
}
