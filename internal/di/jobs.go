package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/clientdata"
	"github.com/aristath/marketintel/internal/config"
	"github.com/aristath/marketintel/internal/modules/digest"
	"github.com/aristath/marketintel/internal/scheduler"
)

const (
	cacheCleanupSchedule = "0 0 3 * * *"
	healthCheckSchedule  = "0 0 */6 * * *"
)

// RegisterJobs creates the scheduler and registers every background job. The scheduler is not started.
func RegisterJobs(cfg *config.Config, container *Container, log zerolog.Logger) (*JobInstances, error) {
	container.Scheduler = scheduler.New(log)

	jobs := &JobInstances{
		Digest:       digest.NewJob(container.DigestService, log),
		CacheCleanup: clientdata.NewCleanupJob(container.ClientDataRepo, log),
		HealthCheck:  scheduler.NewHealthCheckJob(log, container.DB),
	}

	for _, entry := range []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.DigestSchedule, jobs.Digest},
		{cacheCleanupSchedule, jobs.CacheCleanup},
		{healthCheckSchedule, jobs.HealthCheck},
	} {
		if err := container.Scheduler.AddJob(entry.schedule, entry.job); err != nil {
			return nil, fmt.Errorf("failed to register job %s: %w", entry.job.Name(), err)
		}
	}

	return jobs, nil
}
