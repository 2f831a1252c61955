package db

import (
	"context"
	"errors"

	sdkmath "cosmossdk.io/math"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vtokenlabs/liquid-staking-service/internal/db/model"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

func (db *Database) FindBalance(ctx context.Context, asset types.Asset, account string) (sdkmath.Int, error) {
	client := db.collection(model.BalanceCollection)
	var doc model.BalanceDocument
	err := client.FindOne(ctx, bson.M{"_id": model.BalanceId(asset.String(), account)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return sdkmath.ZeroInt(), nil
		}
		return sdkmath.Int{}, err
	}
	return types.ParseAmount(doc.Amount)
}

// SaveBalance removes the document once the balance reaches zero.
func (db *Database) SaveBalance(ctx context.Context, asset types.Asset, account string, amount sdkmath.Int) error {
	client := db.collection(model.BalanceCollection)
	id := model.BalanceId(asset.String(), account)
	if amount.IsZero() {
		_, err := client.DeleteOne(ctx, bson.M{"_id": id})
		return err
	}
	doc := model.BalanceDocument{
		ID:      id,
		Asset:   asset.String(),
		Account: account,
		Amount:  amount.String(),
	}
	_, err := client.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

func (db *Database) FindTotalIssuance(ctx context.Context, asset types.Asset) (sdkmath.Int, error) {
	client := db.collection(model.IssuanceCollection)
	var doc model.IssuanceDocument
	err := client.FindOne(ctx, bson.M{"_id": asset.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return sdkmath.ZeroInt(), nil
		}
		return sdkmath.Int{}, err
	}
	return types.ParseAmount(doc.Amount)
}

func (db *Database) SaveTotalIssuance(ctx context.Context, asset types.Asset, amount sdkmath.Int) error {
	client := db.collection(model.IssuanceCollection)
	doc := model.IssuanceDocument{Asset: asset.String(), Amount: amount.String()}
	_, err := client.ReplaceOne(ctx, bson.M{"_id": asset.String()}, doc, options.Replace().SetUpsert(true))
	return err
}
