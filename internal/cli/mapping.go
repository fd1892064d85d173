package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewMappingCmd создаёт группу команд для редактирования привязок.
func NewMappingCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Edit prefill mappings of a blueprint",
	}

	cmd.AddCommand(
		newMappingListCmd(clientFn, outputFn),
		newMappingSetCmd(clientFn, outputFn),
		newMappingRemoveCmd(clientFn, outputFn),
		newMappingCheckCmd(clientFn, outputFn),
	)

	return cmd
}

func printMappings(out *Output, mappings *MappingsResponse) {
	rows := make([][]string, len(mappings.Entries))
	for i, e := range mappings.Entries {
		rows[i] = []string{e.NodeID, e.FieldID, e.Description}
	}
	out.Print([]string{"NODE_ID", "FIELD", "SOURCE"}, rows, mappings)
}

func newMappingListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list BLUEPRINT_ID",
		Short: "List prefill mappings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mappings, err := clientFn().GetMappings(args[0])
			if err != nil {
				return err
			}

			printMappings(outputFn(), mappings)
			return nil
		},
	}
}

func newMappingSetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		sourceForm  string
		sourceField string
		globalPath  string
	)

	cmd := &cobra.Command{
		Use:   "set BLUEPRINT_ID NODE_ID FIELD_ID",
		Short: "Map a field to an upstream form field or a global data path",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			cfg := PrefillConfig{
				SourceFormID:   sourceForm,
				SourceFieldID:  sourceField,
				GlobalDataPath: globalPath,
			}
			if globalPath == "" && (sourceForm == "" || sourceField == "") {
				return fmt.Errorf("either --global or both --source-form and --source-field are required")
			}

			mappings, err := clientFn().SetMapping(args[0], args[1], args[2], cfg)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Mapping set: %s.%s", args[1], args[2]))
			printMappings(out, mappings)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceForm, "source-form", "", "Source form ID or node ID")
	cmd.Flags().StringVar(&sourceField, "source-field", "", "Source field ID")
	cmd.Flags().StringVar(&globalPath, "global", "", "Dot-separated global data path")

	return cmd
}

func newMappingRemoveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "remove BLUEPRINT_ID NODE_ID FIELD_ID",
		Short: "Remove a field mapping",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			mappings, err := clientFn().RemoveMapping(args[0], args[1], args[2])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Mapping removed: %s.%s", args[1], args[2]))
			printMappings(out, mappings)
			return nil
		},
	}
}

func newMappingCheckCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "check BLUEPRINT_ID",
		Short: "Check that every required field has a mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			result, err := clientFn().Completeness(args[0])
			if err != nil {
				return err
			}

			incomplete := 0
			rows := make([][]string, len(result))
			for i, c := range result {
				if !c.Complete {
					incomplete++
				}
				rows[i] = []string{c.NodeID, c.FormName, strconv.FormatBool(c.Complete), joinOrDash(c.Missing)}
			}

			out.Print([]string{"NODE_ID", "FORM", "COMPLETE", "MISSING"}, rows, result)
			if incomplete > 0 {
				out.Success(fmt.Sprintf("%d of %d forms have unmapped required fields", incomplete, len(result)))
			}
			return nil
		},
	}
}
