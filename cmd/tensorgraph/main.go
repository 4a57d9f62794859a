// tensorgraph — инструмент командной строки для графов тензорных вычислений.
//
// Использование:
//
//	tensorgraph -m graph.json [--json] <command> [flags]
//
// Команды:
//
//	validate  Проверить manifest
//	order     Порядок обхода
//	run       Выполнить граф на встроенном backend
//	autotune  Выбрать реализации операций
//	dot       Выгрузка в Graphviz DOT
//	zones     Зоны пересекающейся памяти
//	events    События из RabbitMQ
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/tensorgraph/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := cli.NewRootCmd(version, &cli.Env{})
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
