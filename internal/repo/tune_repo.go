package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shaiso/tensorgraph/internal/graph"
)

// DB — подмножество *pgxpool.Pool, которое нужно репозиториям.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TuneResult — сохранённый результат автотюнинга.
type TuneResult struct {
	Key       string
	Command   graph.Command
	UpdatedAt time.Time
}

// TuneRepo — репозиторий выбранных реализаций операций.
//
// Реализует tuning.Store.
type TuneRepo struct {
	db DB
}

// NewTuneRepo создаёт новый TuneRepo.
func NewTuneRepo(db DB) *TuneRepo {
	return &TuneRepo{db: db}
}

// EnsureSchema создаёт таблицу autotune_results, если её нет.
func (r *TuneRepo) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS autotune_results (
			key        text PRIMARY KEY,
			command    text NOT NULL,
			backend    text NOT NULL DEFAULT '',
			algorithm  integer NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)
	`
	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create autotune_results: %w", err)
	}
	return nil
}

// Get возвращает результат по ключу.
func (r *TuneRepo) Get(ctx context.Context, key string) (*TuneResult, error) {
	query := `
		SELECT key, command, backend, algorithm, updated_at
		FROM autotune_results
		WHERE key = $1
	`
	var res TuneResult
	err := r.db.QueryRow(ctx, query, key).Scan(
		&res.Key,
		&res.Command.Name,
		&res.Command.Backend,
		&res.Command.Algorithm,
		&res.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get autotune result: %w", err)
	}
	return &res, nil
}

// Put сохраняет результат (upsert по ключу).
func (r *TuneRepo) Put(ctx context.Context, key string, cmd graph.Command) error {
	query := `
		INSERT INTO autotune_results (key, command, backend, algorithm, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (key) DO UPDATE
		SET command = EXCLUDED.command,
		    backend = EXCLUDED.backend,
		    algorithm = EXCLUDED.algorithm,
		    updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.Exec(ctx, query, key, cmd.Name, cmd.Backend, cmd.Algorithm); err != nil {
		return fmt.Errorf("upsert autotune result: %w", err)
	}
	return nil
}

// Delete удаляет результат по ключу.
func (r *TuneRepo) Delete(ctx context.Context, key string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM autotune_results WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete autotune result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Lookup реализует tuning.Store.
func (r *TuneRepo) Lookup(ctx context.Context, key string) (graph.Command, bool, error) {
	res, err := r.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return graph.Command{}, false, nil
	}
	if err != nil {
		return graph.Command{}, false, err
	}
	return res.Command, true, nil
}

// Save реализует tuning.Store.
func (r *TuneRepo) Save(ctx context.Context, key string, cmd graph.Command) error {
	return r.Put(ctx, key, cmd)
}
