package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/humanitybadge/cli/internal/service"
	"github.com/humanitybadge/cli/pkg/export"
	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/humanitybadge/cli/pkg/share"
	"github.com/humanitybadge/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// ShareService saves recordings and resolves share links.
type ShareService interface {
	SaveRecording(ctx context.Context, rec recording.Recording) (service.SaveResult, error)
	Reshare(ctx context.Context, id string) (service.SaveResult, error)
}

// ShareCmd handles the share command.
type ShareCmd struct {
	svc ShareService
}

// ShareInput holds input for sharing a recording. Exactly one of Recording or
// ID is set.
type ShareInput struct {
	Recording  *recording.Recording
	ID         string
	ExportPath string
	Force      bool
	Platform   string
	Style      string
	Output     string
}

var linkBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#1FA382")).
	Padding(0, 1)

// Share archives and shares a recording, or reshares an archived one. A
// file-only outcome always writes the standalone page.
func (c ShareCmd) Share(ctx context.Context, in ShareInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}
	if in.Platform != "" && !lo.Contains(share.Platforms, share.Platform(in.Platform)) {
		return fmt.Errorf("unsupported --platform %q: use one of %v", in.Platform, share.Platforms)
	}
	if in.Style != "" && !lo.Contains(share.Styles, share.Style(in.Style)) {
		return fmt.Errorf("unsupported --style %q: use one of %v", in.Style, share.Styles)
	}

	var res service.SaveResult
	var err error
	if in.Recording != nil {
		res, err = c.svc.SaveRecording(ctx, *in.Recording)
	} else {
		res, err = c.svc.Reshare(ctx, in.ID)
	}
	if err != nil {
		return err
	}

	exportPath := in.ExportPath
	if exportPath == "" && res.Outcome.ShareType == share.TypeFileOnly {
		exportPath = export.Filename(res.Recording)
	}
	if exportPath != "" {
		if res.Outcome.HTMLExport == "" {
			pterm.Warning.Println("No standalone page was rendered; nothing to export")
			exportPath = ""
		} else if err := util.WriteFile(exportPath, []byte(res.Outcome.HTMLExport), in.Force); err != nil {
			return err
		}
	}

	if in.Output == "json" {
		res.Outcome.HTMLExport = ""
		return util.PrintPrettyJSON(res)
	}

	for _, d := range res.Outcome.Diagnostics {
		pterm.Debug.Printf("%s skipped: %s\n", d.Tier, d.Reason)
	}

	if res.Outcome.ShareURL == "" {
		pterm.Warning.Println(res.Outcome.Message)
	} else {
		pterm.Success.Printf("Shared recording %s (%s, %s)\n", res.Recording.ID, res.Outcome.ShareType, util.FormatBytes(int64(res.Outcome.RecordingSize)))
		pterm.Println(linkBox.Render(res.Outcome.ShareURL))
	}
	if exportPath != "" {
		pterm.Success.Printf("Saved standalone page to %s\n", exportPath)
	}

	if in.Platform != "" && res.Outcome.ShareURL != "" {
		text, err := share.FormatText(res.Recording, res.Outcome.ShareURL, share.Platform(in.Platform), share.Style(in.Style))
		if err != nil {
			return err
		}
		pterm.DefaultSection.Println("Post text")
		pterm.Println(text)
	}
	return nil
}

// --- Cobra wiring ---

var shareCmd = &cobra.Command{
	Use:   "share [recording.json|-]",
	Short: "Archive a recording and create a share link",
	Long: `Verify, archive and share a recording file. With --id, create a fresh link
for a recording that is already archived.

Links are tried in order: a private GitHub gist (when a credential is set), an
is.gd short link, a self-contained #data= link, and finally a standalone HTML
file when the recording is too large for any link.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShare,
}

func init() {
	shareCmd.Flags().String("id", "", "Reshare an archived recording by id")
	shareCmd.Flags().String("export", "", "Also write the standalone HTML page to this path")
	shareCmd.Flags().BoolP("force", "f", false, "Overwrite an existing export file")
	enumFlag(shareCmd, "platform", "", "Print post text for a platform (reddit, linkedin)",
		lo.Map(share.Platforms, func(p share.Platform, _ int) string { return string(p) })...)
	enumFlag(shareCmd, "style", string(share.StyleStandard), "Post text style (minimal, standard, detailed)",
		lo.Map(share.Styles, func(s share.Style, _ int) string { return string(s) })...)
	shareCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func runShare(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")
	exportPath, _ := cmd.Flags().GetString("export")
	force, _ := cmd.Flags().GetBool("force")
	platform, _ := cmd.Flags().GetString("platform")
	style, _ := cmd.Flags().GetString("style")
	output, _ := cmd.Flags().GetString("output")

	in := ShareInput{ID: id, ExportPath: exportPath, Force: force, Platform: platform, Style: style, Output: output}
	switch {
	case len(args) == 1 && id != "":
		return fmt.Errorf("pass a recording file or --id, not both")
	case len(args) == 1:
		rec, err := readRecording(args[0])
		if err != nil {
			return err
		}
		in.Recording = &rec
	case id == "":
		return fmt.Errorf("a recording file or --id is required")
	}

	c := ShareCmd{svc: getService(cmd)}
	return c.Share(cmd.Context(), in)
}
