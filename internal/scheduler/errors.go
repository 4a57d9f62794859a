package scheduler

import "errors"

// ErrNoJob — в конфигурации не задана работа.
var ErrNoJob = errors.New("scheduler: job is required")
