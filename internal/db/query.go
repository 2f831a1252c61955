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

func (db *Database) InsertQuery(ctx context.Context, query types.PendingQuery) error {
	client := db.collection(model.QueryCollection)
	doc, err := model.NewQueryDocument(query)
	if err != nil {
		return err
	}
	if _, err := client.InsertOne(ctx, doc); err != nil {
		return asDuplicateKeyError(err, fmt.Sprint(query.ID), "query already exists")
	}
	return nil
}

func (db *Database) FindQuery(ctx context.Context, id uint64) (*types.PendingQuery, error) {
	client := db.collection(model.QueryCollection)
	var doc model.QueryDocument
	err := client.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     fmt.Sprint(id),
				Message: "query not found",
			}
		}
		return nil, err
	}
	return doc.ToPendingQuery()
}

// FindQueries lists queries by id, newest first. An empty status lists every
// query.
func (db *Database) FindQueries(
	ctx context.Context, status types.QueryStatus, paginationToken string,
) (*DbResultMap[types.PendingQuery], error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status.ToString()
	}
	if paginationToken != "" {
		decoded, err := model.DecodePaginationToken[model.QueryPagination](paginationToken)
		if err != nil {
			return nil, &InvalidPaginationTokenError{
				Message: "Invalid pagination token",
			}
		}
		filter["_id"] = bson.M{"$lt": decoded.LastID}
	}
	opts := options.Find().SetSort(bson.M{"_id": -1}).SetLimit(db.cfg.MaxPaginationLimit)

	queries, err := db.findQueries(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return ToResultMapWithPaginationToken(db.cfg, queries, func(q types.PendingQuery) (string, error) {
		return model.BuildQueryPaginationToken(q.ID)
	})
}

func (db *Database) FindExpiredQueries(ctx context.Context, height uint64, limit int64) ([]types.PendingQuery, error) {
	filter := bson.M{
		"status":     types.QueryPending.ToString(),
		"timeout_at": bson.M{"$lte": height},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timeout_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return db.findQueries(ctx, filter, opts)
}

func (db *Database) CountPendingQueriesByDelegator(
	ctx context.Context, asset types.Asset, delegator types.Delegator,
) (int64, error) {
	client := db.collection(model.QueryCollection)
	return client.CountDocuments(ctx, bson.M{
		"asset":         asset.String(),
		"delegator_key": delegator.Key(),
		"status":        types.QueryPending.ToString(),
	})
}

func (db *Database) CountPendingQueries(ctx context.Context, asset types.Asset) (int64, error) {
	client := db.collection(model.QueryCollection)
	filter := bson.M{"status": types.QueryPending.ToString()}
	if asset != "" {
		filter["asset"] = asset.String()
	}
	return client.CountDocuments(ctx, filter)
}

func (db *Database) ResolveQuery(
	ctx context.Context, id uint64, eligiblePreviousStates []types.QueryStatus, resolution types.QueryResolution,
) error {
	client := db.collection(model.QueryCollection)
	states := make([]string, len(eligiblePreviousStates))
	for i, s := range eligiblePreviousStates {
		states[i] = s.ToString()
	}
	late, err := model.EncodeLateResponse(resolution.LateResponse)
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": states},
	}
	set := bson.M{
		"status":      resolution.Status.ToString(),
		"resolved_at": resolution.ResolvedAt,
	}
	if resolution.Failure != "" {
		set["failure"] = resolution.Failure
	}
	if late != "" {
		set["late_response"] = late
	}
	res, err := client.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &NotFoundError{
			Key:     fmt.Sprint(id),
			Message: "query not found or not in an eligible state",
		}
	}
	return nil
}

func (db *Database) SaveLateResponse(ctx context.Context, id uint64, response types.QueryResponse) error {
	late, err := model.EncodeLateResponse(&response)
	if err != nil {
		return err
	}
	return db.updateQuery(ctx, id, bson.M{"late_response": late})
}

func (db *Database) SetRetriedBy(ctx context.Context, id, retriedBy uint64) error {
	return db.updateQuery(ctx, id, bson.M{"retried_by": retriedBy})
}

func (db *Database) updateQuery(ctx context.Context, id uint64, set bson.M) error {
	client := db.collection(model.QueryCollection)
	res, err := client.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &NotFoundError{
			Key:     fmt.Sprint(id),
			Message: "query not found",
		}
	}
	return nil
}

func (db *Database) findQueries(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]types.PendingQuery, error) {
	client := db.collection(model.QueryCollection)
	cursor, err := client.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []model.QueryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	queries := make([]types.PendingQuery, 0, len(docs))
	for i := range docs {
		q, err := docs[i].ToPendingQuery()
		if err != nil {
			return nil, err
		}
		queries = append(queries, *q)
	}
	return queries, nil
}
