package events

import (
	"context"
	"encoding/json"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

func TestRecorderCollectsAndResets(t *testing.T) {
	ctx, rec := WithRecorder(context.Background())
	Emit(ctx, types.NewMintedEvent(1, "KSM", "alice", sdkmath.NewInt(10), sdkmath.ZeroInt(), sdkmath.NewInt(10)))
	Emit(ctx, types.NewTimeUnitUpdatedEvent(1, "KSM", types.NewTimeUnit(types.Era, 1), types.NewTimeUnit(types.Era, 2)))

	evs := rec.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, types.MintedEventType, evs[0].GetEventType())

	rec.Reset()
	assert.Empty(t, rec.Events())
}

func TestEmitWithoutRecorderIsDropped(t *testing.T) {
	ctx := context.Background()
	Emit(ctx, types.NewMintedEvent(1, "KSM", "alice", sdkmath.NewInt(1), sdkmath.ZeroInt(), sdkmath.NewInt(1)))
	assert.Nil(t, FromContext(ctx))
}

func TestEncode(t *testing.T) {
	body, err := Encode(types.NewMintedEvent(7, "KSM", "alice", sdkmath.NewInt(10), sdkmath.NewInt(1), sdkmath.NewInt(9)))
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, types.MintedEventType, env.EventType)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "alice", payload["account"])
	assert.Equal(t, float64(7), payload["height"])
	assert.Equal(t, "9", payload["vtoken_amount"])
}
