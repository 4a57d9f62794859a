// Package repo хранит результаты автотюнинга в PostgreSQL.
//
// PoolConfigFromEnv читает DB_URL и DB_MAX_CONNS; TuneRepo работает с таблицей autotune_results
// и реализует tuning.Store.
package repo
