package model

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
)

const (
	PoolCollection             = "pools"
	UnlockingRecordCollection  = "unlocking_records"
	BalanceCollection          = "balances"
	IssuanceCollection         = "issuance"
	DelegatorLedgerCollection  = "delegator_ledgers"
	QueryCollection            = "queries"
	CounterCollection          = "counters"
	ChainInfoCollection        = "chain_info"
	UnprocessableMsgCollection = "unprocessable_messages"
)

type index struct {
	Indexes map[string]int
	Unique  bool
}

var collections = map[string][]index{
	PoolCollection: {{Indexes: map[string]int{}}},
	UnlockingRecordCollection: {
		{Indexes: map[string]int{"asset": 1, "owner": 1}, Unique: false},
		{Indexes: map[string]int{"asset": 1, "unlock_at.kind": 1, "unlock_at.value": 1}, Unique: false},
	},
	BalanceCollection:         {{Indexes: map[string]int{"asset": 1, "account": 1}, Unique: true}},
	IssuanceCollection:        {{Indexes: map[string]int{}}},
	DelegatorLedgerCollection: {{Indexes: map[string]int{"asset": 1}, Unique: false}},
	QueryCollection: {
		{Indexes: map[string]int{"status": 1, "timeout_at": 1}, Unique: false},
		{Indexes: map[string]int{"asset": 1, "delegator_key": 1, "status": 1}, Unique: false},
	},
	CounterCollection:          {{Indexes: map[string]int{}}},
	ChainInfoCollection:        {{Indexes: map[string]int{}}},
	UnprocessableMsgCollection: {{Indexes: map[string]int{}}},
}

func Setup(ctx context.Context, cfg *config.DbConfig) error {
	clientOps := options.Client().ApplyURI(cfg.Address)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx) // nolint:errcheck

	// Create a context with timeout.
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Access a database and create collections.
	database := client.Database(cfg.DbName)

	// Collections must exist before they can be used inside a transaction.
	for collection := range collections {
		createCollection(ctx, database, collection)
	}

	for name, idxs := range collections {
		for _, idx := range idxs {
			createIndex(ctx, database, name, idx)
		}
	}

	log.Info().Msg("Collections and Indexes created successfully.")
	return nil
}

func createCollection(ctx context.Context, database *mongo.Database, collectionName string) {
	names, err := database.ListCollectionNames(ctx, bson.M{"name": collectionName})
	if err == nil && len(names) > 0 {
		log.Debug().Msg("Collection already exists: " + collectionName)
		return
	}

	if err := database.CreateCollection(ctx, collectionName); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to create collection: " + collectionName)
		return
	}

	log.Debug().Msg("Collection created successfully: " + collectionName)
}

func createIndex(ctx context.Context, database *mongo.Database, collectionName string, idx index) {
	if len(idx.Indexes) == 0 {
		return
	}

	indexKeys := bson.D{}
	for k, v := range idx.Indexes {
		indexKeys = append(indexKeys, bson.E{Key: k, Value: v})
	}

	index := mongo.IndexModel{
		Keys:    indexKeys,
		Options: options.Index().SetUnique(idx.Unique),
	}

	if _, err := database.Collection(collectionName).Indexes().CreateOne(ctx, index); err != nil {
		log.Debug().Msg(fmt.Sprintf("Failed to create index on collection '%s': %v", collectionName, err))
		return
	}

	log.Debug().Msg("Index created successfully on collection: " + collectionName)
}
