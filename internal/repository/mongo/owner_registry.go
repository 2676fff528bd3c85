package mongo

import (
	"context"

	"github.com/pranav-ddreg/vitalic-docstore/internal/domain"
	"github.com/pranav-ddreg/vitalic-docstore/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ownerProbe pairs a candidate collection with the kind it implies. Probes run
// in slice order; the first hit wins.
type ownerProbe struct {
	collection string
	kind       domain.OwnerKind
}

// mongoOwnerRegistry implements repository.OwnerRegistry by probing the
// business-record collections that can own a document tree. The collections
// themselves belong to other parts of the system; only existence is checked.
type mongoOwnerRegistry struct {
	db     *mongo.Database
	probes []ownerProbe
}

// NewMongoOwnerRegistry creates an OwnerRegistry over the default probe order:
// renewals first, then variations.
func NewMongoOwnerRegistry(db *mongo.Database) repository.OwnerRegistry {
	return &mongoOwnerRegistry{
		db: db,
		probes: []ownerProbe{
			{collection: "renewals", kind: domain.OwnerKindRenewal},
			{collection: "variations", kind: domain.OwnerKindVariation},
		},
	}
}

// Resolve probes candidates in priority order and falls back to
// domain.OwnerKindFolder when none contain the id.
func (r *mongoOwnerRegistry) Resolve(ctx context.Context, id primitive.ObjectID) (domain.OwnerKind, error) {
	for _, probe := range r.probes {
		n, err := r.db.Collection(probe.collection).CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return "", err
		}
		if n > 0 {
			return probe.kind, nil
		}
	}
	return domain.OwnerKindFolder, nil
}

// Known reports whether any candidate collection contains the id.
func (r *mongoOwnerRegistry) Known(ctx context.Context, id primitive.ObjectID) (bool, error) {
	for _, probe := range r.probes {
		n, err := r.db.Collection(probe.collection).CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}
