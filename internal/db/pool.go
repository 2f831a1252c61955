package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vtokenlabs/liquid-staking-service/internal/db/model"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

func (db *Database) FindPool(ctx context.Context, asset types.Asset) (*types.Pool, error) {
	client := db.collection(model.PoolCollection)
	var doc model.PoolDocument
	err := client.FindOne(ctx, bson.M{"_id": asset.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     asset.String(),
				Message: "pool not found",
			}
		}
		return nil, err
	}
	return doc.ToPool()
}

func (db *Database) FindPools(ctx context.Context) ([]types.Pool, error) {
	client := db.collection(model.PoolCollection)
	opts := options.Find().SetSort(bson.M{"_id": 1})
	cursor, err := client.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []model.PoolDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	pools := make([]types.Pool, 0, len(docs))
	for i := range docs {
		p, err := docs[i].ToPool()
		if err != nil {
			return nil, err
		}
		pools = append(pools, *p)
	}
	return pools, nil
}

func (db *Database) InsertPool(ctx context.Context, pool types.Pool) error {
	client := db.collection(model.PoolCollection)
	_, err := client.InsertOne(ctx, model.NewPoolDocument(pool))
	if err != nil {
		return asDuplicateKeyError(err, pool.Asset.String(), "pool already exists")
	}
	return nil
}

func (db *Database) SavePool(ctx context.Context, pool types.Pool) error {
	client := db.collection(model.PoolCollection)
	filter := bson.M{"_id": pool.Asset.String()}
	_, err := client.ReplaceOne(ctx, filter, model.NewPoolDocument(pool), options.Replace().SetUpsert(true))
	return err
}
