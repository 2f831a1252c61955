//go:build integration

package db_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/db/model"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

const (
	mongoDatabase = "test-database"

	// this version corresponds to docker tag for mongodb
	// it should be in sync with mongo version used in production
	mongoVersion = "7.0.5"
)

var testDB *db.Database

func TestMain(m *testing.M) {
	// first setup container with MongoDb
	dbConfig, cleanup, err := setupMongoContainer()
	if err != nil {
		log.Fatalf("failed to setup mongo container: %v", err)
	}

	// apply migrations
	err = model.Setup(context.Background(), dbConfig)
	if err != nil {
		cleanup()
		log.Fatalf("failed to init mongo database: %v", err)
	}

	// using config from container mongo initialize client used in tests
	testDB, err = setupClient(dbConfig)
	if err != nil {
		cleanup()
		log.Fatalf("failed to setup client: %v", err)
	}

	// integration tests run on this line
	code := m.Run()
	cleanup()

	os.Exit(code)
}

// setupMongoContainer starts a single node replica set, transactions are not
// available on a standalone mongod.
func setupMongoContainer() (*config.DbConfig, func(), error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, nil, err
	}

	// there can be only 1 container with the same name, so we add
	// random string in the end in case there is still old container running
	containerName := "mongo-integration-tests-db-" + gofakeit.LetterN(3)
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:       containerName,
		Repository: "mongo",
		Tag:        mongoVersion,
		Cmd:        []string{"--replSet", "rs0", "--bind_ip_all"},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		err := pool.Purge(resource)
		if err != nil {
			log.Fatalf("failed to purge resource: %v", err)
		}
	}

	// get host port (randomly chosen) that is mapped to mongo port inside container
	hostPort := resource.GetPort("27017/tcp")
	address := fmt.Sprintf("mongodb://localhost:%s/?directConnection=true", hostPort)

	err = pool.Retry(func() error {
		return initiateReplicaSet(address)
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &config.DbConfig{
		DbName:             mongoDatabase,
		Address:            address,
		MaxPaginationLimit: 2,
		MaxTxAttempts:      3,
	}, cleanup, nil
}

func initiateReplicaSet(address string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(address))
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx) // nolint:errcheck

	admin := client.Database("admin")
	var status bson.M
	if err := admin.RunCommand(ctx, bson.D{{Key: "replSetGetStatus", Value: 1}}).Decode(&status); err != nil {
		initErr := admin.RunCommand(ctx, bson.D{{Key: "replSetInitiate", Value: bson.M{
			"_id":     "rs0",
			"members": bson.A{bson.M{"_id": 0, "host": "localhost:27017"}},
		}}}).Err()
		if initErr != nil {
			return initErr
		}
		return fmt.Errorf("replica set initiated, waiting for primary")
	}

	var hello bson.M
	if err := admin.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return err
	}
	if primary, _ := hello["isWritablePrimary"].(bool); !primary {
		return fmt.Errorf("replica set has no primary yet")
	}
	return nil
}

func setupClient(cfg *config.DbConfig) (*db.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return db.New(ctx, *cfg)
}

func TestRunAtomicCommitsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	asset := types.Asset("KSM" + gofakeit.LetterN(4))

	err := testDB.RunAtomic(ctx, func(ctx context.Context) error {
		if err := testDB.SaveBalance(ctx, asset, "alice", sdkmath.NewInt(100)); err != nil {
			return err
		}
		return testDB.SaveTotalIssuance(ctx, asset, sdkmath.NewInt(100))
	})
	require.NoError(t, err)

	err = testDB.RunAtomic(ctx, func(ctx context.Context) error {
		if err := testDB.SaveBalance(ctx, asset, "alice", sdkmath.NewInt(1)); err != nil {
			return err
		}
		return types.ErrInsufficientBalance
	})
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	bal, err := testDB.FindBalance(ctx, asset, "alice")
	require.NoError(t, err)
	assert.Equal(t, "100", bal.String())
}

func TestNextSequenceIsMonotonic(t *testing.T) {
	ctx := context.Background()
	name := "seq-" + gofakeit.LetterN(6)
	first, err := testDB.NextSequence(ctx, name)
	require.NoError(t, err)
	second, err := testDB.NextSequence(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)
}

func TestPoolRoundTrip(t *testing.T) {
	ctx := context.Background()
	pool := types.Pool{
		Asset:           types.Asset("DOT" + gofakeit.LetterN(4)),
		TokenPool:       sdkmath.NewInt(1_000),
		MinimumMint:     sdkmath.NewInt(10),
		MinimumRedeem:   sdkmath.NewInt(5),
		UnlockDuration:  types.NewTimeUnit(types.Era, 28),
		OngoingTimeUnit: types.NewTimeUnit(types.Era, 100),
		Fees: types.Fees{
			Mint:   sdkmath.LegacyMustNewDecFromStr("0.001"),
			Redeem: sdkmath.LegacyMustNewDecFromStr("0.002"),
		},
		RemoteTotal: sdkmath.ZeroInt(),
	}
	require.NoError(t, testDB.InsertPool(ctx, pool))
	assert.True(t, db.IsDuplicateKeyError(testDB.InsertPool(ctx, pool)))

	got, err := testDB.FindPool(ctx, pool.Asset)
	require.NoError(t, err)
	assert.Equal(t, "1000", got.TokenPool.String())
	assert.True(t, got.Fees.Redeem.Equal(pool.Fees.Redeem))
	assert.Equal(t, pool.UnlockDuration, got.UnlockDuration)

	_, err = testDB.FindPool(ctx, "MISSING")
	assert.True(t, db.IsNotFoundError(err))
}

func TestMaturedUnlockingRecords(t *testing.T) {
	ctx := context.Background()
	asset := types.Asset("KSM" + gofakeit.LetterN(4))
	for i, era := range []uint32{5, 3, 9} {
		require.NoError(t, testDB.InsertUnlockingRecord(ctx, types.UnlockingRecord{
			ID:          uint64(1000 + i),
			Owner:       "alice",
			Asset:       asset,
			TokenAmount: sdkmath.NewInt(10),
			UnlockAt:    types.NewTimeUnit(types.Era, era),
		}))
	}

	matured, err := testDB.FindMaturedUnlockingRecords(ctx, asset, types.NewTimeUnit(types.Era, 5), 10)
	require.NoError(t, err)
	require.Len(t, matured, 2)
	assert.Equal(t, uint64(1000), matured[0].ID)
	assert.Equal(t, uint64(1001), matured[1].ID)

	count, err := testDB.CountUnlockingRecordsByOwner(ctx, asset, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, testDB.DeleteUnlockingRecord(ctx, 1000))
	assert.True(t, db.IsNotFoundError(testDB.DeleteUnlockingRecord(ctx, 1000)))
}

func TestQueryLifecycle(t *testing.T) {
	ctx := context.Background()
	asset := types.Asset("KSM" + gofakeit.LetterN(4))
	d, err := types.NewDelegator(types.DerivativeIndex, "1")
	require.NoError(t, err)
	id, err := testDB.NextSequence(ctx, "query-"+gofakeit.LetterN(6))
	require.NoError(t, err)

	q := types.PendingQuery{
		ID:        id + 5000,
		Asset:     asset,
		Delegator: d,
		Kind:      types.OpBond,
		Mutation: types.GuardedMutation{Request: types.StakingRequest{
			Asset: asset, Delegator: d, Operation: types.OpBond, Amount: sdkmath.NewInt(50),
		}},
		Status:    types.QueryPending,
		TimeoutAt: 10,
	}
	require.NoError(t, testDB.InsertQuery(ctx, q))

	pending, err := testDB.CountPendingQueriesByDelegator(ctx, asset, d)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	expired, err := testDB.FindExpiredQueries(ctx, 10, 100)
	require.NoError(t, err)
	found := false
	for _, e := range expired {
		if e.ID == q.ID {
			found = true
			assert.Equal(t, "50", e.Mutation.Request.Amount.String())
		}
	}
	assert.True(t, found)

	late := types.QueryResponse{QueryID: q.ID, Success: true}
	require.NoError(t, testDB.ResolveQuery(ctx, q.ID, []types.QueryStatus{types.QueryPending}, types.QueryResolution{
		Status: types.QueryTimedOut, ResolvedAt: 11, LateResponse: &late,
	}))
	err = testDB.ResolveQuery(ctx, q.ID, []types.QueryStatus{types.QueryPending}, types.QueryResolution{
		Status: types.QueryConfirmed, ResolvedAt: 12,
	})
	assert.True(t, db.IsNotFoundError(err))

	got, err := testDB.FindQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, types.QueryTimedOut, got.Status)
	require.NotNil(t, got.LateResponse)
	assert.True(t, got.LateResponse.Success)
}
