package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/config"
	"github.com/aristath/marketintel/internal/metrics"
)

// Wire initializes all dependencies and returns a fully configured container
// Order of operations:
// 1. Initialize databases and the response cache
// 2. Initialize provider clients
// 3. Initialize services
// 4. Register jobs
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	container := &Container{Metrics: metrics.New()}

	if err := InitializeDatabases(cfg, container, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	InitializeClients(cfg, container, log)

	if err := InitializeServices(cfg, container, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	jobs, err := RegisterJobs(cfg, container, log)
	if err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}
