package cmd

import (
	"context"
	"fmt"

	"github.com/humanitybadge/cli/pkg/gist"
	"github.com/humanitybadge/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// GistService lists and deletes uploaded recordings.
type GistService interface {
	ListGists(ctx context.Context, limit int) gist.ListResult
	DeleteGist(ctx context.Context, id string) gist.DeleteResult
}

// GistsCmd handles gist operations.
type GistsCmd struct {
	gists GistService
}

// ListGistsInput holds input for listing gists.
type ListGistsInput struct {
	Limit  int
	Output string
}

// List prints the most recent gists of the connected account.
func (c GistsCmd) List(ctx context.Context, in ListGistsInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}
	res := c.gists.ListGists(ctx, in.Limit)
	if !res.Success {
		return fmt.Errorf("list gists: %s", res.Error)
	}
	if in.Output == "json" {
		return util.PrintPrettyJSONSlice(res.Gists)
	}
	if len(res.Gists) == 0 {
		pterm.Info.Println("No gists found")
		return nil
	}

	rows := pterm.TableData{{"ID", "Created", "Files", "Description"}}
	for _, g := range res.Gists {
		rows = append(rows, []string{
			g.ID,
			util.OrDash(g.CreatedAt),
			util.JoinOrDash(g.Files...),
			util.Truncate(g.Description, 50),
		})
	}
	PrintTableNoPad(rows, true)
	return nil
}

// DeleteGistInput holds input for deleting a gist.
type DeleteGistInput struct {
	ID string
}

// Delete removes a gist.
func (c GistsCmd) Delete(ctx context.Context, in DeleteGistInput) error {
	res := c.gists.DeleteGist(ctx, in.ID)
	if !res.Success {
		return fmt.Errorf("delete gist %s: %s", in.ID, res.Error)
	}
	pterm.Success.Printf("Gist %s deleted\n", in.ID)
	return nil
}

// --- Cobra wiring ---

var gistsCmd = &cobra.Command{
	Use:   "gists",
	Short: "Manage recordings uploaded as GitHub gists",
}

var gistsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent gists",
	Args:  cobra.NoArgs,
	RunE:  runGistsList,
}

var gistsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a gist",
	Args:  cobra.ExactArgs(1),
	RunE:  runGistsDelete,
}

func init() {
	gistsCmd.AddCommand(gistsListCmd)
	gistsCmd.AddCommand(gistsDeleteCmd)

	gistsListCmd.Flags().Int("limit", 10, "Maximum number of gists")
	gistsListCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func runGistsList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	output, _ := cmd.Flags().GetString("output")

	c := GistsCmd{gists: getService(cmd)}
	return c.List(cmd.Context(), ListGistsInput{Limit: limit, Output: output})
}

func runGistsDelete(cmd *cobra.Command, args []string) error {
	c := GistsCmd{gists: getService(cmd)}
	return c.Delete(cmd.Context(), DeleteGistInput{ID: args[0]})
}
