package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var journeyHeaders = []string{"ID", "BLUEPRINT_ID", "STATUS", "SUBMITTED", "READY"}

func journeyRow(j *JourneyResponse) []string {
	return []string{j.ID, j.BlueprintID, j.Status, joinOrDash(j.Submitted), joinOrDash(j.Ready)}
}

// NewJourneyCmd создаёт группу команд для прохождения blueprints.
func NewJourneyCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journey",
		Short: "Run journeys through blueprints",
	}

	cmd.AddCommand(
		newJourneyStartCmd(clientFn, outputFn),
		newJourneyGetCmd(clientFn, outputFn),
		newJourneySubmitCmd(clientFn, outputFn),
		newJourneyPrefillsCmd(clientFn, outputFn),
		newJourneyCancelCmd(clientFn, outputFn),
	)

	return cmd
}

func newJourneyStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "start BLUEPRINT_ID",
		Short: "Start a journey",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			journey, err := clientFn().StartJourney(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Journey started: %s", journey.ID))
			out.Print(journeyHeaders, [][]string{journeyRow(journey)}, journey)
			return nil
		},
	}
}

func newJourneyGetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show journey progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			journey, err := clientFn().GetJourney(args[0])
			if err != nil {
				return err
			}

			outputFn().Print(journeyHeaders, [][]string{journeyRow(journey)}, journey)
			return nil
		},
	}
}

func newJourneySubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "submit JOURNEY_ID NODE_ID",
		Short: "Submit a form of the journey",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			values := map[string]any{}
			if data != "" {
				if err := json.Unmarshal([]byte(data), &values); err != nil {
					return fmt.Errorf("invalid JSON for --data: %w", err)
				}
			}

			sub, err := clientFn().Submit(args[0], args[1], values)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Form submitted: %s", sub.NodeID))
			out.Print(
				[]string{"NODE_ID", "FORM_ID", "SUBMITTED"},
				[][]string{{sub.NodeID, sub.FormID, sub.SubmittedAt}},
				sub,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "Form values as JSON object")

	return cmd
}

func newJourneyPrefillsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "prefills ID",
		Short: "Show computed prefill values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefills, err := clientFn().ListPrefills(args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, len(prefills))
			for i, p := range prefills {
				rows[i] = []string{p.NodeID, p.FieldID, formatValue(p.Value), p.Source}
			}

			outputFn().Print([]string{"NODE_ID", "FIELD", "VALUE", "SOURCE"}, rows, prefills)
			return nil
		},
	}
}

func newJourneyCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a journey",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().CancelJourney(args[0]); err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Journey cancelled: %s", args[0]))
			return nil
		},
	}
}
