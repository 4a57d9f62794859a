// Package cli реализует инструмент командной строки tensorgraph.
//
// # Обзор
//
// CLI читает JSON manifest (--manifest), собирает граф и выполняет
// над ним одну операцию. Выполнение идёт на встроенном backend
// (backend.Registry): операции проверяются и журналируются, но не
// считают данных.
//
// # Команды
//
//   - validate — проверить manifest
//   - order    — порядок обхода (--sources, --destinations)
//   - run      — выполнить граф и вывести журнал диспетчеризации
//   - autotune — выбрать реализации в пределах --workspace байт
//   - dot      — выгрузка в Graphviz (--detail short|long)
//   - zones    — зоны пересекающейся памяти тензоров
//   - events   — чтение событий из RabbitMQ
//
// run и autotune с --db кэшируют выбор в PostgreSQL (DB_URL),
// с --publish публикуют события диспетчеризации в RabbitMQ.
//
// # Output
//
// Таблицы (text/tabwriter) по умолчанию, JSON с флагом --json.
// Данные выводятся в stdout, сообщения и логи — в stderr:
//
//	tensorgraph order -m graph.json --json | jq .
package cli
