package model

import (
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type UnlockingRecordDocument struct {
	ID          uint64         `bson:"_id"` // Primary key
	Owner       string         `bson:"owner"`
	Asset       string         `bson:"asset"`
	TokenAmount string         `bson:"token_amount"`
	UnlockAt    types.TimeUnit `bson:"unlock_at"`
	CreatedAt   uint64         `bson:"created_at"`
	IsFee       bool           `bson:"is_fee"`
}

func NewUnlockingRecordDocument(r types.UnlockingRecord) *UnlockingRecordDocument {
	return &UnlockingRecordDocument{
		ID:          r.ID,
		Owner:       r.Owner,
		Asset:       r.Asset.String(),
		TokenAmount: intToString(r.TokenAmount),
		UnlockAt:    r.UnlockAt,
		CreatedAt:   r.CreatedAt,
		IsFee:       r.IsFee,
	}
}

func (d *UnlockingRecordDocument) ToUnlockingRecord() (*types.UnlockingRecord, error) {
	amount, err := intFromString("token_amount", d.TokenAmount)
	if err != nil {
		return nil, err
	}
	return &types.UnlockingRecord{
		ID:          d.ID,
		Owner:       d.Owner,
		Asset:       types.Asset(d.Asset),
		TokenAmount: amount,
		UnlockAt:    d.UnlockAt,
		CreatedAt:   d.CreatedAt,
		IsFee:       d.IsFee,
	}, nil
}
