package profile

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRepository struct {
	coll *mongo.Collection
}

// mongoProfile keys the stored document by uid.
type mongoProfile struct {
	ID      string `bson:"_id"`
	Profile `bson:",inline"`
}

// NewMongoRepository creates a profile repository over a MongoDB collection.
func NewMongoRepository(db *mongo.Database, collection string) Repository {
	return &mongoRepository{coll: db.Collection(collection)}
}

func (r *mongoRepository) Put(ctx context.Context, p *Profile) error {
	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"_id": p.UID},
		mongoProfile{ID: p.UID, Profile: *p},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *mongoRepository) FindAll(ctx context.Context) ([]Document, error) {
	cursor, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]Document, 0)
	for cursor.Next(ctx) {
		var m bson.M
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}
		// _id is the storage key, not part of the record.
		delete(m, "_id")
		docs = append(docs, Document(m))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *mongoRepository) ListKeys(ctx context.Context) ([]string, error) {
	ids, err := r.coll.Distinct(ctx, "_id", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list profile keys: %w", err)
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := id.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys, nil
}
