package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vtokenlabs/liquid-staking-service/internal/db/model"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

func (db *Database) InsertUnlockingRecord(ctx context.Context, record types.UnlockingRecord) error {
	client := db.collection(model.UnlockingRecordCollection)
	_, err := client.InsertOne(ctx, model.NewUnlockingRecordDocument(record))
	if err != nil {
		return asDuplicateKeyError(err, fmt.Sprint(record.ID), "unlocking record already exists")
	}
	return nil
}

func (db *Database) FindUnlockingRecord(ctx context.Context, id uint64) (*types.UnlockingRecord, error) {
	client := db.collection(model.UnlockingRecordCollection)
	var doc model.UnlockingRecordDocument
	err := client.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     fmt.Sprint(id),
				Message: "unlocking record not found",
			}
		}
		return nil, err
	}
	return doc.ToUnlockingRecord()
}

func (db *Database) FindUnlockingRecordsByOwner(
	ctx context.Context, asset types.Asset, owner string,
) ([]types.UnlockingRecord, error) {
	filter := bson.M{"asset": asset.String(), "owner": owner}
	return db.findUnlockingRecords(ctx, filter, 0)
}

func (db *Database) CountUnlockingRecordsByOwner(ctx context.Context, asset types.Asset, owner string) (int64, error) {
	client := db.collection(model.UnlockingRecordCollection)
	return client.CountDocuments(ctx, bson.M{"asset": asset.String(), "owner": owner})
}

func (db *Database) FindMaturedUnlockingRecords(
	ctx context.Context, asset types.Asset, now types.TimeUnit, limit int64,
) ([]types.UnlockingRecord, error) {
	filter := bson.M{
		"asset":           asset.String(),
		"unlock_at.kind":  now.Kind,
		"unlock_at.value": bson.M{"$lte": now.Value},
	}
	return db.findUnlockingRecords(ctx, filter, limit)
}

func (db *Database) DeleteUnlockingRecord(ctx context.Context, id uint64) error {
	client := db.collection(model.UnlockingRecordCollection)
	res, err := client.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return &NotFoundError{
			Key:     fmt.Sprint(id),
			Message: "unlocking record not found",
		}
	}
	return nil
}

// Records are always returned in creation order.
func (db *Database) findUnlockingRecords(ctx context.Context, filter bson.M, limit int64) ([]types.UnlockingRecord, error) {
	client := db.collection(model.UnlockingRecordCollection)
	opts := options.Find().SetSort(bson.M{"_id": 1})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := client.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []model.UnlockingRecordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	records := make([]types.UnlockingRecord, 0, len(docs))
	for i := range docs {
		r, err := docs[i].ToUnlockingRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, nil
}
