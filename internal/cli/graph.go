package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewGraphCmd создаёт группу команд для запросов к графу blueprint.
func NewGraphCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Query blueprint form graphs",
	}

	cmd.AddCommand(
		newGraphWalkCmd("upstream", "List forms the node depends on", clientFn, outputFn),
		newGraphWalkCmd("downstream", "List forms that depend on the node", clientFn, outputFn),
		newGraphCandidatesCmd(clientFn, outputFn),
	)

	return cmd
}

func newGraphWalkCmd(direction, short string, clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var direct bool

	cmd := &cobra.Command{
		Use:   direction + " BLUEPRINT_ID NODE_ID",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			walk, err := client.Walk(args[0], args[1], direction, direct)
			if err != nil {
				return err
			}

			rows := make([][]string, len(walk.Forms))
			for i, f := range walk.Forms {
				rows[i] = []string{f.ID, f.Name}
			}

			out.Print([]string{"FORM_ID", "NAME"}, rows, walk)
			return nil
		},
	}

	cmd.Flags().BoolVar(&direct, "direct", false, "Only direct neighbours")

	return cmd
}

func newGraphCandidatesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "candidates BLUEPRINT_ID NODE_ID",
		Short: "List forms available as prefill sources for the node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			candidates, err := client.Candidates(args[0], args[1])
			if err != nil {
				return err
			}

			rows := make([][]string, len(candidates))
			for i, c := range candidates {
				rows[i] = []string{c.NodeID, c.NodeName, c.Form.ID, strconv.FormatBool(c.Direct)}
			}

			out.Print([]string{"NODE_ID", "NODE", "FORM_ID", "DIRECT"}, rows, candidates)
			return nil
		},
	}
}
