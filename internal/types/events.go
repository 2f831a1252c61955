package types

import (
	sdkmath "cosmossdk.io/math"
)

type EventType string

const (
	MintedEventType                 EventType = "Minted"
	RedeemStartedEventType          EventType = "RedeemStarted"
	RedeemMaturedEventType          EventType = "RedeemMatured"
	RebondedByUnlockIdEventType     EventType = "RebondedByUnlockId"
	TimeUnitUpdatedEventType        EventType = "TimeUnitUpdated"
	PoolConfigUpdatedEventType      EventType = "PoolConfigUpdated"
	DelegatorInitializedEventType   EventType = "DelegatorInitialized"
	DelegatorRemovedEventType       EventType = "DelegatorRemoved"
	LocalTransferEventType          EventType = "LocalTransfer"
	XcmSentEventType                EventType = "XcmSent"
	QueryConfirmedEventType         EventType = "QueryConfirmed"
	QueryFailedEventType            EventType = "QueryFailed"
	QueryTimedOutEventType          EventType = "QueryTimedOut"
	QueryManuallyFailedEventType    EventType = "QueryManuallyFailed"
	QueryRetriedEventType           EventType = "QueryRetried"
	LedgerMarkedDirtyEventType      EventType = "LedgerMarkedDirty"
	ExchangeRateDivergenceEventType EventType = "ExchangeRateDivergence"
)

type Event interface {
	GetEventType() EventType
}

type eventHeader struct {
	EventType EventType `json:"event_type"`
	Height    uint64    `json:"height"`
}

func (h eventHeader) GetEventType() EventType {
	return h.EventType
}

func header(t EventType, height uint64) eventHeader {
	return eventHeader{EventType: t, Height: height}
}

type MintedEvent struct {
	eventHeader
	Asset        Asset       `json:"asset"`
	Account      string      `json:"account"`
	TokenAmount  sdkmath.Int `json:"token_amount"`
	Fee          sdkmath.Int `json:"fee"`
	VTokenAmount sdkmath.Int `json:"vtoken_amount"`
}

func NewMintedEvent(height uint64, asset Asset, account string, amount, fee, minted sdkmath.Int) *MintedEvent {
	return &MintedEvent{header(MintedEventType, height), asset, account, amount, fee, minted}
}

type RedeemStartedEvent struct {
	eventHeader
	Asset        Asset       `json:"asset"`
	Account      string      `json:"account"`
	UnlockID     uint64      `json:"unlock_id"`
	VTokenAmount sdkmath.Int `json:"vtoken_amount"`
	TokenAmount  sdkmath.Int `json:"token_amount"`
	Fee          sdkmath.Int `json:"fee"`
	UnlockAt     TimeUnit    `json:"unlock_at"`
}

func NewRedeemStartedEvent(
	height uint64, asset Asset, account string, unlockID uint64,
	vtokenAmount, tokenAmount, fee sdkmath.Int, unlockAt TimeUnit,
) *RedeemStartedEvent {
	return &RedeemStartedEvent{
		header(RedeemStartedEventType, height), asset, account, unlockID,
		vtokenAmount, tokenAmount, fee, unlockAt,
	}
}

type RedeemMaturedEvent struct {
	eventHeader
	Asset       Asset       `json:"asset"`
	Account     string      `json:"account"`
	UnlockID    uint64      `json:"unlock_id"`
	TokenAmount sdkmath.Int `json:"token_amount"`
}

func NewRedeemMaturedEvent(height uint64, rec UnlockingRecord) *RedeemMaturedEvent {
	return &RedeemMaturedEvent{
		header(RedeemMaturedEventType, height), rec.Asset, rec.Owner, rec.ID, rec.TokenAmount,
	}
}

type RebondedByUnlockIdEvent struct {
	eventHeader
	Asset        Asset       `json:"asset"`
	Account      string      `json:"account"`
	UnlockID     uint64      `json:"unlock_id"`
	TokenAmount  sdkmath.Int `json:"token_amount"`
	VTokenAmount sdkmath.Int `json:"vtoken_amount"`
}

func NewRebondedByUnlockIdEvent(
	height uint64, rec UnlockingRecord, vtokenAmount sdkmath.Int,
) *RebondedByUnlockIdEvent {
	return &RebondedByUnlockIdEvent{
		header(RebondedByUnlockIdEventType, height), rec.Asset, rec.Owner, rec.ID,
		rec.TokenAmount, vtokenAmount,
	}
}

type TimeUnitUpdatedEvent struct {
	eventHeader
	Asset    Asset    `json:"asset"`
	Previous TimeUnit `json:"previous"`
	Current  TimeUnit `json:"current"`
}

func NewTimeUnitUpdatedEvent(height uint64, asset Asset, previous, current TimeUnit) *TimeUnitUpdatedEvent {
	return &TimeUnitUpdatedEvent{header(TimeUnitUpdatedEventType, height), asset, previous, current}
}

type PoolConfigUpdatedEvent struct {
	eventHeader
	Asset Asset  `json:"asset"`
	Field string `json:"field"`
	Value string `json:"value"`
}

func NewPoolConfigUpdatedEvent(height uint64, asset Asset, field, value string) *PoolConfigUpdatedEvent {
	return &PoolConfigUpdatedEvent{header(PoolConfigUpdatedEventType, height), asset, field, value}
}

type DelegatorEvent struct {
	eventHeader
	Asset     Asset     `json:"asset"`
	Delegator Delegator `json:"delegator"`
}

func NewDelegatorInitializedEvent(height uint64, asset Asset, d Delegator) *DelegatorEvent {
	return &DelegatorEvent{header(DelegatorInitializedEventType, height), asset, d}
}

func NewDelegatorRemovedEvent(height uint64, asset Asset, d Delegator) *DelegatorEvent {
	return &DelegatorEvent{header(DelegatorRemovedEventType, height), asset, d}
}

type LocalTransferEvent struct {
	eventHeader
	Asset     Asset         `json:"asset"`
	Operation OperationKind `json:"operation"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Amount    sdkmath.Int   `json:"amount"`
}

func NewLocalTransferEvent(
	height uint64, asset Asset, op OperationKind, from, to string, amount sdkmath.Int,
) *LocalTransferEvent {
	return &LocalTransferEvent{header(LocalTransferEventType, height), asset, op, from, to, amount}
}

type QueryEvent struct {
	eventHeader
	QueryID   uint64        `json:"query_id"`
	Asset     Asset         `json:"asset"`
	Delegator Delegator     `json:"delegator"`
	Operation OperationKind `json:"operation"`
	Detail    string        `json:"detail,omitempty"`
	// set on QueryRetried
	RetryQueryID uint64 `json:"retry_query_id,omitempty"`
}

func NewQueryEvent(t EventType, height uint64, q PendingQuery, detail string) *QueryEvent {
	return &QueryEvent{
		eventHeader: header(t, height),
		QueryID:     q.ID,
		Asset:       q.Asset,
		Delegator:   q.Delegator,
		Operation:   q.Kind,
		Detail:      detail,
	}
}

type LedgerMarkedDirtyEvent struct {
	eventHeader
	Asset     Asset     `json:"asset"`
	Delegator Delegator `json:"delegator"`
	QueryID   uint64    `json:"query_id"`
	Reason    string    `json:"reason"`
}

func NewLedgerMarkedDirtyEvent(height uint64, l DelegatorLedger, queryID uint64) *LedgerMarkedDirtyEvent {
	return &LedgerMarkedDirtyEvent{
		header(LedgerMarkedDirtyEventType, height), l.Asset, l.Delegator, queryID, l.DirtyReason,
	}
}

type ExchangeRateDivergenceEvent struct {
	eventHeader
	Asset       Asset             `json:"asset"`
	TokenPool   sdkmath.Int       `json:"token_pool"`
	RemoteTotal sdkmath.Int       `json:"remote_total"`
	Divergence  sdkmath.LegacyDec `json:"divergence"`
	Streak      uint32            `json:"streak"`
}

func NewExchangeRateDivergenceEvent(
	height uint64, asset Asset, pool, remote sdkmath.Int, divergence sdkmath.LegacyDec, streak uint32,
) *ExchangeRateDivergenceEvent {
	return &ExchangeRateDivergenceEvent{
		header(ExchangeRateDivergenceEventType, height), asset, pool, remote, divergence, streak,
	}
}
