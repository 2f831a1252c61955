package model

import (
	"encoding/json"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type QueryDocument struct {
	ID           uint64          `bson:"_id"` // Primary key
	Asset        string          `bson:"asset"`
	Delegator    types.Delegator `bson:"delegator"`
	DelegatorKey string          `bson:"delegator_key"`
	Kind         string          `bson:"kind"`
	Destination  string          `bson:"destination"`
	// guarded mutation and late response are kept as json, they carry amounts
	Mutation     string `bson:"mutation"`
	Status       string `bson:"status"`
	CreatedAt    uint64 `bson:"created_at"`
	TimeoutAt    uint64 `bson:"timeout_at"`
	ResolvedAt   uint64 `bson:"resolved_at"`
	Failure      string `bson:"failure,omitempty"`
	LateResponse string `bson:"late_response,omitempty"`
	RetryOf      uint64 `bson:"retry_of,omitempty"`
	RetriedBy    uint64 `bson:"retried_by,omitempty"`
}

func NewQueryDocument(q types.PendingQuery) (*QueryDocument, error) {
	mutation, err := json.Marshal(q.Mutation)
	if err != nil {
		return nil, err
	}
	late, err := EncodeLateResponse(q.LateResponse)
	if err != nil {
		return nil, err
	}
	return &QueryDocument{
		ID:           q.ID,
		Asset:        q.Asset.String(),
		Delegator:    q.Delegator,
		DelegatorKey: q.Delegator.Key(),
		Kind:         q.Kind.String(),
		Destination:  q.Destination,
		Mutation:     string(mutation),
		Status:       q.Status.ToString(),
		CreatedAt:    q.CreatedAt,
		TimeoutAt:    q.TimeoutAt,
		ResolvedAt:   q.ResolvedAt,
		Failure:      q.Failure,
		LateResponse: late,
		RetryOf:      q.RetryOf,
		RetriedBy:    q.RetriedBy,
	}, nil
}

func EncodeLateResponse(r *types.QueryResponse) (string, error) {
	if r == nil {
		return "", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *QueryDocument) ToPendingQuery() (*types.PendingQuery, error) {
	q := types.PendingQuery{
		ID:          d.ID,
		Asset:       types.Asset(d.Asset),
		Delegator:   d.Delegator,
		Kind:        types.OperationKind(d.Kind),
		Destination: d.Destination,
		Status:      types.QueryStatus(d.Status),
		CreatedAt:   d.CreatedAt,
		TimeoutAt:   d.TimeoutAt,
		ResolvedAt:  d.ResolvedAt,
		Failure:     d.Failure,
		RetryOf:     d.RetryOf,
		RetriedBy:   d.RetriedBy,
	}
	if err := json.Unmarshal([]byte(d.Mutation), &q.Mutation); err != nil {
		return nil, err
	}
	if d.LateResponse != "" {
		var r types.QueryResponse
		if err := json.Unmarshal([]byte(d.LateResponse), &r); err != nil {
			return nil, err
		}
		q.LateResponse = &r
	}
	return &q, nil
}
