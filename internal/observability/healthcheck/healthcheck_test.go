package healthcheck

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestRunChecksTerminatesOnFirstFailure(t *testing.T) {
	var code int
	exit = func(c int) { code = c }
	SetLogger(zerolog.Nop())
	t.Cleanup(func() {
		exit = os.Exit
		SetLogger(log.Logger)
	})

	var ran []string
	checks := []Check{
		{Name: "db", Run: func(ctx context.Context) error { ran = append(ran, "db"); return nil }},
		{Name: "queue", Run: func(ctx context.Context) error { ran = append(ran, "queue"); return errors.New("closed") }},
		{Name: "never", Run: func(ctx context.Context) error { ran = append(ran, "never"); return nil }},
	}
	runChecks(context.Background(), checks)

	assert.Equal(t, 1, code)
	assert.Equal(t, []string{"db", "queue"}, ran)
}

func TestRunChecksHealthy(t *testing.T) {
	exit = func(c int) { t.Fatalf("unexpected exit %d", c) }
	t.Cleanup(func() { exit = os.Exit })

	runChecks(context.Background(), []Check{
		{Name: "db", Run: func(ctx context.Context) error { return nil }},
	})
}

func TestStartHealthCheckCronStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NoError(t, StartHealthCheckCron(ctx, 3600))
}
