package healthcheck

import (
	"context"
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logger zerolog.Logger = log.Logger

// exit is replaced in tests.
var exit = os.Exit

func SetLogger(customLogger zerolog.Logger) {
	logger = customLogger
}

// Check reports the health of one dependency, e.g. the queue connections or
// the database.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// StartHealthCheckCron runs every check each cronTime seconds and terminates
// the service on the first failure, letting the orchestrator restart it.
func StartHealthCheckCron(ctx context.Context, cronTime int, checks ...Check) error {
	c := cron.New()
	logger.Info().Msg("Initiated Health Check Cron")

	if cronTime == 0 {
		cronTime = 60
	}

	cronSpec := fmt.Sprintf("@every %ds", cronTime)

	_, err := c.AddFunc(cronSpec, func() {
		runChecks(ctx, checks)
	})

	if err != nil {
		return err
	}

	c.Start()

	go func() {
		<-ctx.Done()
		logger.Info().Msg("Stopping Health Check Cron")
		c.Stop()
	}()

	return nil
}

func runChecks(ctx context.Context, checks []Check) {
	for _, check := range checks {
		if err := check.Run(ctx); err != nil {
			logger.Error().Err(err).Str("check", check.Name).Msg("dependency is not healthy")
			terminateService()
			return
		}
	}
}

func terminateService() {
	logger.Error().Msg("Terminating service due to health check failure.")
	exit(1)
}
