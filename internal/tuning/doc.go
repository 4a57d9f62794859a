// Package tuning кэширует результаты автотюнинга.
//
// CachedAutotuner оборачивает graph.Autotuner: результат для одной и той же
// операции, подсказки, форм тензоров и бюджета workspace берётся из Store.
// В production Store — repo.TuneRepo (PostgreSQL), в CLI и тестах — MemoryStore.
package tuning
