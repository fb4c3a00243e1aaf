package queue

import (
	"encoding/json"
	"time"

	"library-backend/internal/config"
	"library-backend/internal/shared"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	lending   config.LendingConfig
}

func NewScheduler(redis asynq.RedisConnOpt, lending config.LendingConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redis,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		lending:   lending,
	}
}

func (s *Scheduler) RegisterJobs() error {
	return s.registerReconcileJob()
}

func (s *Scheduler) registerReconcileJob() error {
	payload, err := json.Marshal(shared.ReconcilePayload{Reason: "scheduled"})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeReconcileLoans, payload)
	entryID, err := s.scheduler.Register(
		s.lending.ReconcileCron,
		task,
		asynq.Queue(shared.QueueLending),
		asynq.MaxRetry(1),
		asynq.Timeout(2*time.Minute),
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to register reconcile job")
		return err
	}

	log.Info().
		Str("entry_id", entryID).
		Str("cron", s.lending.ReconcileCron).
		Msg("registered lending reconcile job")
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
