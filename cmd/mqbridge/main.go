// mqbridge — мост между очередью RabbitMQ и HTTP-сервисом.
//
// Bridge:
//   - Получает сообщения из очереди process
//   - Вызывает HTTP-сервис по таблице actions
//   - Повторяет вызов retries раз, затем отправляет сообщение в dead
//   - Публикует ответ в success или ошибку в error
//
// Использование:
//
//	mqbridge [--config PATH] [--json] <command> [flags]
//
// Команды:
//
//	run       Запуск бриджа
//	validate  Проверка конфигурации
//	topology  Очереди бриджа
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/mqbridge/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var configPath string
	var jsonOutput bool

	defaultConfig := os.Getenv("MQBRIDGE_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "mqbridge.yaml"
	}

	rootCmd := &cobra.Command{
		Use:           "mqbridge",
		Short:         "mqbridge — RabbitMQ to HTTP service bridge",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "Path to the YAML config")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	configFn := func() string { return configPath }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunCmd(configFn),
		cli.NewValidateCmd(configFn, outputFn),
		cli.NewTopologyCmd(configFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
