package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/engine"
	"github.com/shaiso/Journey/internal/fixtures"
)

// NewLocalCmd создаёт группу команд, работающих без сервера.
func NewLocalCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Inspect graphs and resolve prefills without a server",
	}

	cmd.AddCommand(
		newLocalInspectCmd(outputFn),
		newLocalResolveCmd(outputFn),
	)

	return cmd
}

// inspectedNode — сводка по узлу для local inspect.
type inspectedNode struct {
	NodeID     domain.NodeID `json:"node_id"`
	Name       string        `json:"name"`
	FormID     domain.FormID `json:"form_id,omitempty"`
	DependsOn  []string      `json:"depends_on"`
	Upstream   int           `json:"upstream"`
	Downstream int           `json:"downstream"`
	Required   []string      `json:"required"`
}

func newLocalInspectCmd(outputFn func() *Output) *cobra.Command {
	var graphFile string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Validate a graph file and summarize its nodes",
		Long: "Validate a graph file and summarize its nodes.\n" +
			"Without --file the built-in \"Onboard Customer 0\" graph is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			snapshot, err := loadLocalGraph(graphFile)
			if err != nil {
				return err
			}
			if err := engine.Validate(snapshot); err != nil {
				return fmt.Errorf("invalid graph: %w", err)
			}

			graph := engine.NewGraph(snapshot, engine.WithLogger(localLogger(cmd.ErrOrStderr())))
			nodes := inspectGraph(graph)

			rows := make([][]string, len(nodes))
			for i, n := range nodes {
				rows[i] = []string{
					string(n.NodeID),
					n.Name,
					joinOrDash(n.DependsOn),
					strconv.Itoa(n.Upstream),
					strconv.Itoa(n.Downstream),
					joinOrDash(n.Required),
				}
			}

			out.Print([]string{"NODE_ID", "NAME", "DEPENDS_ON", "UPSTREAM", "DOWNSTREAM", "REQUIRED"}, rows, nodes)
			return nil
		},
	}

	cmd.Flags().StringVar(&graphFile, "file", "", "Path to graph file, .json or .yaml")

	return cmd
}

func inspectGraph(graph *engine.Graph) []inspectedNode {
	nodes := make([]inspectedNode, 0, graph.Size())
	for _, node := range graph.Nodes() {
		direct := graph.Upstream(node.ID, true)
		names := make([]string, len(direct))
		for i, f := range direct {
			names[i] = f.Name
		}

		formID, _ := graph.FormIDForNode(node.ID)
		nodes = append(nodes, inspectedNode{
			NodeID:     node.ID,
			Name:       node.Data.Name,
			FormID:     formID,
			DependsOn:  names,
			Upstream:   len(graph.Upstream(node.ID, false)),
			Downstream: len(graph.Downstream(node.ID, false)),
			Required:   graph.RequiredFields(node.ID),
		})
	}
	return nodes
}

// resolvedField — результат local resolve для одного поля.
type resolvedField struct {
	FieldID  string `json:"field_id"`
	Value    any    `json:"value,omitempty"`
	Resolved bool   `json:"resolved"`
	Source   string `json:"source"`
}

func newLocalResolveCmd(outputFn func() *Output) *cobra.Command {
	var (
		node        string
		submissions []string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve prefill values of a node in the built-in blueprint",
		Long: "Resolve prefill values of a node in the built-in \"Onboard Customer 0\" blueprint\n" +
			"using its initial mappings and global data. Submitted forms are passed as\n" +
			"--submission NODE_ID='{\"email\":\"a@example.com\"}'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			graph := engine.NewGraph(fixtures.OnboardCustomer(), engine.WithLogger(localLogger(cmd.ErrOrStderr())))
			if _, ok := graph.Node(domain.NodeID(node)); !ok {
				return fmt.Errorf("node not found: %s", node)
			}

			data, err := parseSubmissions(graph, submissions)
			if err != nil {
				return err
			}

			table := graph.NormalizeMappings(fixtures.InitialMappings())
			fields := resolveNode(graph, table, domain.NodeID(node), data, fixtures.GlobalData())

			rows := make([][]string, len(fields))
			for i, f := range fields {
				rows[i] = []string{f.FieldID, formatValue(f.Value), strconv.FormatBool(f.Resolved), f.Source}
			}

			out.Print([]string{"FIELD", "VALUE", "RESOLVED", "SOURCE"}, rows, fields)
			return nil
		},
	}

	cmd.Flags().StringVar(&node, "node", string(fixtures.NodeD), "Node to resolve")
	cmd.Flags().StringArrayVar(&submissions, "submission", nil, "Submitted form as NODE_ID=JSON (repeatable)")

	return cmd
}

// resolveNode вычисляет все привязанные поля узла в порядке ID поля.
func resolveNode(graph *engine.Graph, table domain.PrefillMappingTable, node domain.NodeID, data domain.FormSubmissionData, global domain.GlobalData) []resolvedField {
	mapped := table[node]
	ids := make([]string, 0, len(mapped))
	for id := range mapped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fields := make([]resolvedField, 0, len(ids))
	for _, id := range ids {
		cfg := mapped[id]
		value, ok := engine.ResolvePrefillValue(cfg, data, global)
		fields = append(fields, resolvedField{
			FieldID:  id,
			Value:    value,
			Resolved: ok,
			Source:   graph.DescribeMapping(cfg),
		})
	}
	return fields
}

// parseSubmissions разбирает значения флага --submission в данные по FormID.
func parseSubmissions(graph *engine.Graph, raw []string) (domain.FormSubmissionData, error) {
	data := make(domain.FormSubmissionData, len(raw))
	for _, item := range raw {
		nodeID, body, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --submission %q: expected NODE_ID=JSON", item)
		}

		formID, ok := graph.FormIDForNode(domain.NodeID(nodeID))
		if !ok {
			return nil, fmt.Errorf("invalid --submission %q: node has no form", item)
		}

		values := map[string]any{}
		if err := json.Unmarshal([]byte(body), &values); err != nil {
			return nil, fmt.Errorf("invalid --submission %q: %w", item, err)
		}
		data[formID] = values
	}
	return data, nil
}

func loadLocalGraph(path string) (*domain.WorkflowGraph, error) {
	if path == "" {
		return fixtures.OnboardCustomer(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	if isYAML(path) {
		return engine.ParseGraphYAML(data)
	}
	return engine.ParseGraph(data)
}

// localLogger пишет диагностику графа в stderr текстом.
func localLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
