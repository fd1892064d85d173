// Journey CLI — инструмент командной строки для управления
// blueprints, привязками и journeys через HTTP API.
//
// Использование:
//
//	journey [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	blueprint  Управление blueprints
//	graph      Обход графа форм
//	mapping    Редактирование prefill-привязок
//	journey    Прохождение journeys
//	local      Работа с графом без сервера
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Journey/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "journey",
		Short:         "Journey CLI — form dependency graphs and prefill mappings",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewBlueprintCmd(clientFn, outputFn),
		cli.NewGraphCmd(clientFn, outputFn),
		cli.NewMappingCmd(clientFn, outputFn),
		cli.NewJourneyCmd(clientFn, outputFn),
		cli.NewLocalCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
