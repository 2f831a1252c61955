package model

import (
	"fmt"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type UnlockChunkDocument struct {
	Amount   string         `bson:"amount"`
	UnlockAt types.TimeUnit `bson:"unlock_at"`
}

type DelegatorLedgerDocument struct {
	ID          string                `bson:"_id"` // asset|scheme:value
	Asset       string                `bson:"asset"`
	Delegator   types.Delegator       `bson:"delegator"`
	Bonded      string                `bson:"bonded"`
	Total       string                `bson:"total"`
	Unlocking   []UnlockChunkDocument `bson:"unlocking"`
	Targets     []string              `bson:"targets"`
	Dirty       bool                  `bson:"dirty"`
	DirtyReason string                `bson:"dirty_reason,omitempty"`
	CreatedAt   uint64                `bson:"created_at"`
	UpdatedAt   uint64                `bson:"updated_at"`
}

func DelegatorLedgerId(asset types.Asset, d types.Delegator) string {
	return fmt.Sprintf("%s|%s", asset, d.Key())
}

func NewDelegatorLedgerDocument(l types.DelegatorLedger) *DelegatorLedgerDocument {
	chunks := make([]UnlockChunkDocument, 0, len(l.Unlocking))
	for _, c := range l.Unlocking {
		chunks = append(chunks, UnlockChunkDocument{Amount: intToString(c.Amount), UnlockAt: c.UnlockAt})
	}
	targets := l.Targets
	if targets == nil {
		targets = []string{}
	}
	return &DelegatorLedgerDocument{
		ID:          DelegatorLedgerId(l.Asset, l.Delegator),
		Asset:       l.Asset.String(),
		Delegator:   l.Delegator,
		Bonded:      intToString(l.Bonded),
		Total:       intToString(l.Total),
		Unlocking:   chunks,
		Targets:     targets,
		Dirty:       l.Dirty,
		DirtyReason: l.DirtyReason,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func (d *DelegatorLedgerDocument) ToDelegatorLedger() (*types.DelegatorLedger, error) {
	l := types.DelegatorLedger{
		Asset:       types.Asset(d.Asset),
		Delegator:   d.Delegator,
		Unlocking:   make([]types.UnlockChunk, 0, len(d.Unlocking)),
		Targets:     append([]string{}, d.Targets...),
		Dirty:       d.Dirty,
		DirtyReason: d.DirtyReason,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	var err error
	if l.Bonded, err = intFromString("bonded", d.Bonded); err != nil {
		return nil, err
	}
	if l.Total, err = intFromString("total", d.Total); err != nil {
		return nil, err
	}
	for _, c := range d.Unlocking {
		amount, err := intFromString("unlocking", c.Amount)
		if err != nil {
			return nil, err
		}
		l.Unlocking = append(l.Unlocking, types.UnlockChunk{Amount: amount, UnlockAt: c.UnlockAt})
	}
	return &l, nil
}
