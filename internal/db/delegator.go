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

func (db *Database) FindDelegatorLedger(
	ctx context.Context, asset types.Asset, delegator types.Delegator,
) (*types.DelegatorLedger, error) {
	client := db.collection(model.DelegatorLedgerCollection)
	id := model.DelegatorLedgerId(asset, delegator)
	var doc model.DelegatorLedgerDocument
	err := client.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     id,
				Message: "delegator ledger not found",
			}
		}
		return nil, err
	}
	return doc.ToDelegatorLedger()
}

func (db *Database) FindDelegatorLedgers(ctx context.Context, asset types.Asset) ([]types.DelegatorLedger, error) {
	client := db.collection(model.DelegatorLedgerCollection)
	opts := options.Find().SetSort(bson.M{"_id": 1})
	cursor, err := client.Find(ctx, bson.M{"asset": asset.String()}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []model.DelegatorLedgerDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ledgers := make([]types.DelegatorLedger, 0, len(docs))
	for i := range docs {
		l, err := docs[i].ToDelegatorLedger()
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, *l)
	}
	return ledgers, nil
}

func (db *Database) InsertDelegatorLedger(ctx context.Context, ledger types.DelegatorLedger) error {
	client := db.collection(model.DelegatorLedgerCollection)
	doc := model.NewDelegatorLedgerDocument(ledger)
	if _, err := client.InsertOne(ctx, doc); err != nil {
		return asDuplicateKeyError(err, doc.ID, "delegator ledger already exists")
	}
	return nil
}

func (db *Database) SaveDelegatorLedger(ctx context.Context, ledger types.DelegatorLedger) error {
	client := db.collection(model.DelegatorLedgerCollection)
	doc := model.NewDelegatorLedgerDocument(ledger)
	res, err := client.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &NotFoundError{
			Key:     doc.ID,
			Message: "delegator ledger not found",
		}
	}
	return nil
}

func (db *Database) DeleteDelegatorLedger(ctx context.Context, asset types.Asset, delegator types.Delegator) error {
	client := db.collection(model.DelegatorLedgerCollection)
	id := model.DelegatorLedgerId(asset, delegator)
	res, err := client.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return &NotFoundError{
			Key:     id,
			Message: "delegator ledger not found",
		}
	}
	return nil
}
