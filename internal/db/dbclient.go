package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/db/model"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type Database struct {
	DbName string
	Client *mongo.Client
	cfg    config.DbConfig
}

var _ DBClient = (*Database)(nil)

type DbResultMap[T any] struct {
	Data            []T    `json:"data"`
	PaginationToken string `json:"paginationToken"`
}

func New(ctx context.Context, cfg config.DbConfig) (*Database, error) {
	clientOps := options.Client().ApplyURI(cfg.Address)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return nil, err
	}

	return &Database{
		DbName: cfg.DbName,
		Client: client,
		cfg:    cfg,
	}, nil
}

func (db *Database) collection(name string) *mongo.Collection {
	return db.Client.Database(db.DbName).Collection(name)
}

func (db *Database) Ping(ctx context.Context) error {
	err := db.Client.Ping(ctx, nil)
	if err != nil {
		return err
	}
	return nil
}

// RunAtomic runs fn inside a mongo transaction. A ctx that already carries a
// session joins it.
func (db *Database) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	_, err := TxWithRetries(
		ctx, &dbTransactionClient{db.Client}, db.cfg.MaxTxAttempts,
		func(sessCtx mongo.SessionContext) (interface{}, error) {
			return nil, fn(sessCtx)
		},
	)
	return err
}

func (db *Database) NextSequence(ctx context.Context, name string) (uint64, error) {
	client := db.collection(model.CounterCollection)
	filter := bson.M{"_id": name}
	update := bson.M{"$inc": bson.M{"value": int64(1)}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter model.CounterDocument
	if err := client.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return 0, err
	}
	return uint64(counter.Value), nil
}

func (db *Database) FindChainInfo(ctx context.Context) (*types.ChainInfo, error) {
	client := db.collection(model.ChainInfoCollection)
	var doc model.ChainInfoDocument
	err := client.FindOne(ctx, bson.M{"_id": model.ChainInfoId}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &types.ChainInfo{}, nil
		}
		return nil, err
	}
	return &types.ChainInfo{Height: doc.Height}, nil
}

func (db *Database) SaveChainInfo(ctx context.Context, info types.ChainInfo) error {
	client := db.collection(model.ChainInfoCollection)
	doc := model.ChainInfoDocument{ID: model.ChainInfoId, Height: info.Height}
	_, err := client.ReplaceOne(ctx, bson.M{"_id": model.ChainInfoId}, doc, options.Replace().SetUpsert(true))
	return err
}

// ToResultMapWithPaginationToken builds the result map with pagination token.
// It will return the result map with pagination token if the result length is equal to the fetch limit
// Otherwise it will return the result map without pagination token. i.e pagination token will be empty string
func ToResultMapWithPaginationToken[T any](cfg config.DbConfig, result []T, paginationKeyBuilder func(T) (string, error)) (*DbResultMap[T], error) {
	if len(result) > 0 && len(result) == int(cfg.MaxPaginationLimit) {
		paginationToken, err := paginationKeyBuilder(result[len(result)-1])
		if err != nil {
			return nil, err
		}
		return &DbResultMap[T]{
			Data:            result,
			PaginationToken: paginationToken,
		}, nil
	}

	return &DbResultMap[T]{
		Data:            result,
		PaginationToken: "",
	}, nil
}
