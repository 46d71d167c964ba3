package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Checker is anything that can verify its own health, such as a database
type Checker interface {
	HealthCheck(ctx context.Context) error
	Name() string
}

// HealthCheckJob runs integrity checks against the service databases
type HealthCheckJob struct {
	checkers []Checker
	timeout  time.Duration
	log      zerolog.Logger
}

// NewHealthCheckJob creates a new health check job
func NewHealthCheckJob(log zerolog.Logger, checkers ...Checker) *HealthCheckJob {
	return &HealthCheckJob{
		checkers: checkers,
		timeout:  time.Minute,
		log:      log.With().Str("job", "health_check").Logger(),
	}
}

// Name returns the job name
func (j *HealthCheckJob) Name() string {
	return "health_check"
}

// Run checks every database and fails on the first unhealthy one
func (j *HealthCheckJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	for _, c := range j.checkers {
		if err := c.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", c.Name()).Msg("Database health check failed")
			return fmt.Errorf("database %s is unhealthy: %w", c.Name(), err)
		}
		j.log.Debug().Str("database", c.Name()).Msg("Database healthy")
	}
	return nil
}
