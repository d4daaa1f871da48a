package jobs

import (
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bekzod-dev/botforge/pkg/config"
)

const (
	cleanupCron       = "0 4 * * *"
	defaultBackupCron = "0 2 * * *"

	sessionMaxAge = 72 * time.Hour
)

// Scheduler enqueues the recurring jobs: a nightly session cleanup and,
// when enabled, the database backup.
type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

type cronScheduler struct {
	sched  *asynq.Scheduler
	backup config.BackupConfig
	log    *slog.Logger
}

func NewScheduler(redisOpt asynq.RedisConnOpt, backup config.BackupConfig, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &cronScheduler{
		sched:  asynq.NewScheduler(redisOpt, nil),
		backup: backup,
		log:    log,
	}
}

func (s *cronScheduler) RegisterTasks() error {
	cleanup, err := NewCleanupDataTask(sessionMaxAge)
	if err != nil {
		return err
	}
	if _, err := s.sched.Register(cleanupCron, cleanup); err != nil {
		return err
	}

	if s.backup.Enabled {
		spec := s.backup.Cron
		if spec == "" {
			spec = defaultBackupCron
		}
		if _, err := s.sched.Register(spec, NewBackupTask()); err != nil {
			return err
		}
	}

	s.log.Info("recurring jobs registered", slog.Bool("backup_enabled", s.backup.Enabled))
	return nil
}

func (s *cronScheduler) Run() {
	s.log.Info("job scheduler started")
	go func() {
		if err := s.sched.Run(); err != nil {
			s.log.Error("job scheduler exited", slog.Any("error", err))
		}
	}()
}

func (s *cronScheduler) Shutdown() {
	s.log.Info("job scheduler stopping")
	s.sched.Shutdown()
}
