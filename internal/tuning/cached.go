package tuning

import (
	"context"
	"log/slog"

	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/tensor"
)

// CacheObserver получает результат каждого обращения к кэшу.
type CacheObserver interface {
	ObserveCache(hit bool)
}

// Config — конфигурация CachedAutotuner.
type Config struct {
	// Inner — настоящий автотюнер (обязателен).
	Inner graph.Autotuner

	// Store (опционально; если nil — используется NewMemoryStore()).
	Store Store

	// Observer (опционально) — например, telemetry.Metrics.
	Observer CacheObserver

	// Logger
	Logger *slog.Logger
}

// CachedAutotuner — graph.Autotuner с кэшем результатов.
//
// Ошибки Store не прерывают автотюнинг: при сбое чтения вызывается
// Inner, при сбое записи результат всё равно возвращается.
type CachedAutotuner struct {
	inner    graph.Autotuner
	store    Store
	observer CacheObserver
	logger   *slog.Logger
}

// New создаёт CachedAutotuner.
func New(cfg Config) *CachedAutotuner {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &CachedAutotuner{
		inner:    cfg.Inner,
		store:    store,
		observer: cfg.Observer,
		logger:   logger,
	}
}

// Autotune реализует graph.Autotuner.
func (c *CachedAutotuner) Autotune(ctx context.Context, cmd graph.Command, workspace int64, hint graph.Hint, inputs, outputs []*tensor.Tensor) (graph.Command, error) {
	key := Key(cmd, workspace, hint, inputs, outputs)

	cached, found, err := c.store.Lookup(ctx, key)
	if err != nil {
		c.logger.Warn("autotune cache lookup failed", "key", key, "error", err)
	}
	if err == nil && found && cached.Name == cmd.Name {
		c.observe(true)
		c.logger.Debug("autotune cache hit", "key", key, "command", cached.String())
		return cached, nil
	}
	c.observe(false)

	tuned, err := c.inner.Autotune(ctx, cmd, workspace, hint, inputs, outputs)
	if err != nil {
		return cmd, err
	}

	if err := c.store.Save(ctx, key, tuned); err != nil {
		c.logger.Warn("autotune cache save failed", "key", key, "error", err)
	}
	return tuned, nil
}

func (c *CachedAutotuner) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache(hit)
	}
}
