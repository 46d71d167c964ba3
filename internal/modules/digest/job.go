package digest

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// GenerateTimeout bounds one scheduled digest run
const GenerateTimeout = 10 * time.Minute

// Job generates the digest for the current day on a schedule
type Job struct {
	service *Service
	log     zerolog.Logger
}

// NewJob creates a new digest generation job
func NewJob(service *Service, log zerolog.Logger) *Job {
	return &Job{
		service: service,
		log:     log.With().Str("job", "digest_generate").Logger(),
	}
}

// Run executes the job
func (j *Job) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), GenerateTimeout)
	defer cancel()

	d, err := j.service.Generate(ctx, j.service.now())
	if err != nil {
		j.log.Error().Err(err).Msg("Scheduled digest generation failed")
		return err
	}

	j.log.Info().Str("date", d.Date).Msg("Scheduled digest generated")
	return nil
}

// Name returns the job name for scheduling and logging
func (j *Job) Name() string {
	return "digest_generate"
}
