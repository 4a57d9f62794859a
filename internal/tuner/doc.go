// Package tuner выполняет проход автотюнинга по manifest.
//
// Один проход: загрузить manifest, собрать граф, обойти его в фазе
// autotune, освободить граф и опубликовать итог в tune.completed.
// Выбранные реализации сохраняет tuning.CachedAutotuner; повторный
// проход по неизменённому manifest только читает кэш.
//
// cmd/tensorgraph-tuner запускает Pass по расписанию scheduler.
package tuner
