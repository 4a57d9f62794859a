package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job — периодическая работа. Ошибка логируется, расписание продолжается.
type Job func(ctx context.Context) error

// Config — конфигурация Scheduler.
type Config struct {
	// Expr — cron-выражение или дескриптор.
	Expr string

	// Job — что запускать.
	Job Job

	// RunOnStart — запустить Job сразу при старте, не дожидаясь расписания.
	RunOnStart bool

	Logger *slog.Logger
}

// Scheduler запускает Job по cron-расписанию.
//
// Запуски не перекрываются: если предыдущий ещё идёт, очередной пропускается.
type Scheduler struct {
	expr       string
	job        Job
	runOnStart bool
	logger     *slog.Logger
}

// New проверяет выражение и создаёт Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Job == nil {
		return nil, ErrNoJob
	}
	if err := ValidateCronExpr(cfg.Expr); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		expr:       cfg.Expr,
		job:        cfg.Job,
		runOnStart: cfg.RunOnStart,
		logger:     logger.With("cron", cfg.Expr),
	}, nil
}

// Run запускает расписание и блокируется до отмены ctx.
// После отмены дожидается завершения текущего запуска.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{s.logger}
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	job := cron.FuncJob(func() { s.tick(ctx) })
	if _, err := c.AddJob(s.expr, job); err != nil {
		return err
	}

	c.Start()
	s.logger.Info("scheduler started")

	// Стартовый запуск идёт мимо job waiter cron, поэтому ждём его отдельно.
	var onStart sync.WaitGroup
	if s.runOnStart {
		// Через обёртки cron, чтобы не пересечься с плановым запуском.
		wrapped := c.Entries()[0].WrappedJob
		onStart.Add(1)
		go func() {
			defer onStart.Done()
			wrapped.Run()
		}()
	}

	<-ctx.Done()
	<-c.Stop().Done()
	onStart.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled job failed", "error", err)
		return
	}
	s.logger.Debug("scheduled job completed")
}

// cronLogger — cron.Logger поверх slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
