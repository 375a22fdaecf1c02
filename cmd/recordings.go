package cmd

import (
	"context"
	"fmt"

	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/humanitybadge/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// RecordingService reads and prunes the local archive.
type RecordingService interface {
	ListRecordings(ctx context.Context) ([]recording.Recording, error)
	GetRecording(ctx context.Context, id string) (recording.Recording, error)
	DeleteRecording(ctx context.Context, id string) error
	Usage(ctx context.Context) (count, bytes int, err error)
}

// RecordingsCmd handles archive operations.
type RecordingsCmd struct {
	recordings RecordingService
}

// ListRecordingsInput holds input for listing recordings.
type ListRecordingsInput struct {
	Output string
}

// List prints archived recordings, newest first.
func (c RecordingsCmd) List(ctx context.Context, in ListRecordingsInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}
	recs, err := c.recordings.ListRecordings(ctx)
	if err != nil {
		return err
	}
	if in.Output == "json" {
		return util.PrintPrettyJSONSlice(recs)
	}
	if len(recs) == 0 {
		pterm.Info.Println("No recordings archived")
		return nil
	}

	rows := pterm.TableData{{"ID", "Recorded", "Domain", "Duration", "Verdict"}}
	for _, r := range recs {
		rows = append(rows, []string{
			r.ID,
			util.FormatUnixMillis(r.StartTime),
			util.FirstOrDash(r.Domain, r.URL),
			fmt.Sprintf("%.1fs", float64(r.Duration)/1000),
			verdict(r.Verification),
		})
	}
	PrintTableNoPad(rows, true)

	count, bytes, err := c.recordings.Usage(ctx)
	if err == nil {
		pterm.Info.Printf("%d recordings, %s\n", count, util.FormatBytes(int64(bytes)))
	}
	return nil
}

func verdict(v *recording.Verification) string {
	switch {
	case v == nil:
		return "-"
	case v.IsAuthentic:
		return fmt.Sprintf("verified, %d WPM", v.WPM)
	default:
		return v.Reason
	}
}

// GetRecordingInput holds input for showing a recording.
type GetRecordingInput struct {
	ID     string
	Output string
}

// Get prints one archived recording.
func (c RecordingsCmd) Get(ctx context.Context, in GetRecordingInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}
	rec, err := c.recordings.GetRecording(ctx, in.ID)
	if err != nil {
		return err
	}
	if in.Output == "json" {
		return util.PrintPrettyJSON(rec)
	}

	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"ID", rec.ID})
	rows = append(rows, []string{"Recorded", util.FormatUnixMillis(rec.StartTime)})
	rows = append(rows, []string{"Duration", fmt.Sprintf("%.1fs", float64(rec.Duration)/1000)})
	rows = append(rows, []string{"Events", fmt.Sprintf("%d", len(rec.Events))})
	rows = append(rows, []string{"URL", util.OrDash(rec.URL)})
	rows = append(rows, []string{"Verdict", verdict(rec.Verification)})
	rows = append(rows, []string{"Text", util.Truncate(rec.FinalValue, 60)})
	PrintTableNoPad(rows, true)
	return nil
}

// DeleteRecordingInput holds input for deleting a recording.
type DeleteRecordingInput struct {
	ID string
}

// Delete removes an archived recording.
func (c RecordingsCmd) Delete(ctx context.Context, in DeleteRecordingInput) error {
	if err := c.recordings.DeleteRecording(ctx, in.ID); err != nil {
		return err
	}
	pterm.Success.Printf("Recording %s deleted\n", in.ID)
	return nil
}

// --- Cobra wiring ---

var recordingsCmd = &cobra.Command{
	Use:     "recordings",
	Aliases: []string{"rec"},
	Short:   "Manage archived recordings",
}

var recordingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived recordings",
	Args:  cobra.NoArgs,
	RunE:  runRecordingsList,
}

var recordingsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show an archived recording",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordingsGet,
}

var recordingsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived recording",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordingsDelete,
}

func init() {
	recordingsCmd.AddCommand(recordingsListCmd)
	recordingsCmd.AddCommand(recordingsGetCmd)
	recordingsCmd.AddCommand(recordingsDeleteCmd)

	recordingsListCmd.Flags().StringP("output", "o", "", "Output format (json)")
	recordingsGetCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func runRecordingsList(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	c := RecordingsCmd{recordings: getService(cmd)}
	return c.List(cmd.Context(), ListRecordingsInput{Output: output})
}

func runRecordingsGet(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	c := RecordingsCmd{recordings: getService(cmd)}
	return c.Get(cmd.Context(), GetRecordingInput{ID: args[0], Output: output})
}

func runRecordingsDelete(cmd *cobra.Command, args []string) error {
	c := RecordingsCmd{recordings: getService(cmd)}
	return c.Delete(cmd.Context(), DeleteRecordingInput{ID: args[0]})
}
