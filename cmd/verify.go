package cmd

import (
	"context"
	"fmt"

	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/humanitybadge/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// Verifier scores recordings.
type Verifier interface {
	Verify(rec recording.Recording) recording.Verification
}

// VerifyCmd handles the verify command.
type VerifyCmd struct {
	verifier Verifier
}

// VerifyInput holds input for verifying a recording.
type VerifyInput struct {
	Recording recording.Recording
	Strict    bool
	Output    string
}

// Verify prints the verdict for a recording. With Strict, a non-authentic
// verdict is returned as an error.
func (c VerifyCmd) Verify(ctx context.Context, in VerifyInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}

	v := c.verifier.Verify(in.Recording)
	if in.Output == "json" {
		if err := util.PrintPrettyJSON(v); err != nil {
			return err
		}
	} else {
		printVerification(in.Recording, v)
	}

	if in.Strict && !v.IsAuthentic {
		return fmt.Errorf("recording %s not verified: %s", in.Recording.ID, v.Reason)
	}
	return nil
}

func printVerification(rec recording.Recording, v recording.Verification) {
	if !v.IsAuthentic {
		pterm.Warning.Printf("Not verified: %s\n", v.Reason)
		return
	}
	pterm.Success.Println("Verified human typing")
	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"Recording", rec.ID})
	rows = append(rows, []string{"Domain", util.OrDash(rec.Domain)})
	rows = append(rows, []string{"WPM", fmt.Sprintf("%d", v.WPM)})
	rows = append(rows, []string{"Duration", fmt.Sprintf("%ds", v.Duration)})
	rows = append(rows, []string{"Characters", fmt.Sprintf("%d", v.Characters)})
	rows = append(rows, []string{"Words", fmt.Sprintf("%d", v.Words)})
	PrintTableNoPad(rows, true)
}

// --- Cobra wiring ---

var verifyCmd = &cobra.Command{
	Use:   "verify <recording.json|->",
	Short: "Check whether a recording looks like human typing",
	Long:  "Score a recording file without storing or sharing it. Use - to read from stdin.",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().Bool("strict", false, "Exit with an error when the recording is not verified")
	verifyCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")
	output, _ := cmd.Flags().GetString("output")

	rec, err := readRecording(args[0])
	if err != nil {
		return err
	}
	c := VerifyCmd{verifier: getService(cmd)}
	return c.Verify(cmd.Context(), VerifyInput{Recording: rec, Strict: strict, Output: output})
}
