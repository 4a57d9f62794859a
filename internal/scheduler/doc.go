// Package scheduler запускает периодический автотюнинг по cron-расписанию.
//
// Структура:
//   - cron.go      — разбор cron-выражений и вычисление следующего времени
//   - scheduler.go — Scheduler поверх robfig/cron
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Expr:       "@every 1h",
//	    Job:        tuner.Pass,
//	    RunOnStart: true,
//	    Logger:     logger,
//	})
//	if err != nil {
//	    return err
//	}
//	return sched.Run(ctx)
package scheduler
