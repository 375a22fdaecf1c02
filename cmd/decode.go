package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/humanitybadge/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// Decoder parses viewer links.
type Decoder interface {
	Decode(link string) (recording.ViewerLink, error)
}

// DecodeCmd handles the decode command.
type DecodeCmd struct {
	decoder Decoder
}

// DecodeInput holds input for decoding a viewer link.
type DecodeInput struct {
	URL     string
	OutFile string
	Force   bool
	Output  string
}

// Decode prints what a viewer link refers to. An embedded recording can be
// written to OutFile.
func (c DecodeCmd) Decode(ctx context.Context, in DecodeInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}

	link, err := c.decoder.Decode(in.URL)
	if err != nil {
		return err
	}

	if in.OutFile != "" {
		if link.Recording == nil {
			return fmt.Errorf("link refers to gist %s; it carries no embedded recording", link.GistID)
		}
		data, err := json.MarshalIndent(link.Recording, "", "  ")
		if err != nil {
			return err
		}
		if err := util.WriteFile(in.OutFile, data, in.Force); err != nil {
			return err
		}
	}

	if in.Output == "json" {
		return util.PrintPrettyJSON(link)
	}

	if link.Recording == nil {
		pterm.Info.Printf("Hosted recording in gist %s\n", link.GistID)
		return nil
	}

	rec := link.Recording
	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"ID", rec.ID})
	rows = append(rows, []string{"Recorded", util.FormatUnixMillis(rec.StartTime)})
	rows = append(rows, []string{"Duration", fmt.Sprintf("%.1fs", float64(rec.Duration)/1000)})
	rows = append(rows, []string{"Events", fmt.Sprintf("%d", len(rec.Events))})
	rows = append(rows, []string{"Domain", util.OrDash(rec.Domain)})
	rows = append(rows, []string{"Text", util.Truncate(rec.FinalValue, 60)})
	if v := rec.Verification; v != nil {
		rows = append(rows, []string{"Verified", fmt.Sprintf("%t", v.IsAuthentic)})
		if v.IsAuthentic {
			rows = append(rows, []string{"WPM", fmt.Sprintf("%d", v.WPM)})
		} else {
			rows = append(rows, []string{"Reason", v.Reason})
		}
	}
	PrintTableNoPad(rows, true)

	if in.OutFile != "" {
		pterm.Success.Printf("Wrote recording to %s\n", in.OutFile)
	}
	return nil
}

// --- Cobra wiring ---

var decodeCmd = &cobra.Command{
	Use:   "decode <viewer-url>",
	Short: "Inspect a replay link",
	Long:  "Parse a replay link and show the gist it points to or the recording embedded in it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func init() {
	decodeCmd.Flags().String("out", "", "Write the embedded recording JSON to this file")
	decodeCmd.Flags().BoolP("force", "f", false, "Overwrite an existing output file")
	decodeCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func runDecode(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	force, _ := cmd.Flags().GetBool("force")
	output, _ := cmd.Flags().GetString("output")

	c := DecodeCmd{decoder: getService(cmd)}
	return c.Decode(cmd.Context(), DecodeInput{URL: args[0], OutFile: out, Force: force, Output: output})
}
