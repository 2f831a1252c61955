package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapWithSpanRecordsSpans(t *testing.T) {
	ctx := AttachTracingIntoContext(context.Background())
	require.NotEmpty(t, TraceId(ctx))

	v, err := WrapWithSpan(ctx, "mint", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	_, err = WrapWithSpan(ctx, "redeem", func() (int, error) { return 0, errors.New("nope") })
	assert.EqualError(t, err, "nope")

	info := ctx.Value(TracingInfoKey).(*TracingInfo)
	require.Len(t, info.SpanDetails, 2)
	assert.Equal(t, "mint", info.SpanDetails[0].Name)
	assert.Equal(t, "redeem", info.SpanDetails[1].Name)
}

func TestWrapWithSpanWithoutTrace(t *testing.T) {
	v, err := WrapWithSpan(context.Background(), "tick", func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Empty(t, TraceId(context.Background()))
}
