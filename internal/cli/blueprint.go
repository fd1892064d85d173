package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Journey/internal/engine"
)

var blueprintHeaders = []string{"ID", "NAME", "NODES", "FORMS", "WEBHOOK", "UPDATED"}

func blueprintRow(bp *BlueprintResponse) []string {
	webhook := bp.WebhookURL
	if webhook == "" {
		webhook = "-"
	}
	return []string{bp.ID, bp.Name, strconv.Itoa(bp.NodeCount), strconv.Itoa(bp.FormCount), webhook, bp.UpdatedAt}
}

// NewBlueprintCmd создаёт группу команд для управления blueprints.
func NewBlueprintCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blueprint",
		Short: "Manage blueprints",
	}

	cmd.AddCommand(
		newBlueprintListCmd(clientFn, outputFn),
		newBlueprintGetCmd(clientFn, outputFn),
		newBlueprintCreateCmd(clientFn, outputFn),
		newBlueprintSeedCmd(clientFn, outputFn),
		newBlueprintDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newBlueprintListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all blueprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			blueprints, err := client.ListBlueprints()
			if err != nil {
				return err
			}

			rows := make([][]string, len(blueprints))
			for i := range blueprints {
				rows[i] = blueprintRow(&blueprints[i])
			}

			out.Print(blueprintHeaders, rows, blueprints)
			return nil
		},
	}
}

func newBlueprintGetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show blueprint details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			bp, err := client.GetBlueprint(args[0])
			if err != nil {
				return err
			}

			out.Print(blueprintHeaders, [][]string{blueprintRow(bp)}, bp)
			return nil
		},
	}
}

func newBlueprintCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		name        string
		description string
		webhookURL  string
		graphFile   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a blueprint from a graph file (JSON or YAML)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			graph, err := readGraphDocument(graphFile)
			if err != nil {
				return err
			}

			bp, err := client.CreateBlueprint(CreateBlueprintRequest{
				Name:        name,
				Description: description,
				WebhookURL:  webhookURL,
				Graph:       graph,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Blueprint created: %s", bp.ID))
			out.Print(blueprintHeaders, [][]string{blueprintRow(bp)}, bp)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Blueprint name (required)")
	cmd.Flags().StringVar(&graphFile, "file", "", "Path to graph file, .json or .yaml (required)")
	cmd.Flags().StringVar(&description, "description", "", "Blueprint description")
	cmd.Flags().StringVar(&webhookURL, "webhook-url", "", "URL notified when a form becomes ready")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newBlueprintSeedCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the built-in \"Onboard Customer 0\" blueprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			bp, err := client.SeedBlueprint()
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Blueprint seeded: %s", bp.ID))
			out.Print(blueprintHeaders, [][]string{blueprintRow(bp)}, bp)
			return nil
		},
	}
}

func newBlueprintDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a blueprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteBlueprint(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Blueprint deleted: %s", args[0]))
			return nil
		},
	}
}

// readGraphDocument читает документ графа для отправки в API.
// YAML разбирается локально и отправляется как JSON.
func readGraphDocument(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	if !isYAML(path) {
		if !json.Valid(data) {
			return nil, fmt.Errorf("graph file is not valid JSON")
		}
		return data, nil
	}

	graph, err := engine.ParseGraphYAML(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(graph)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
