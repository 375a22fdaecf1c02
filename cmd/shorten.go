package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/humanitybadge/cli/pkg/shortener"
	"github.com/humanitybadge/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// URLShortener shortens URLs in order.
type URLShortener interface {
	Shorten(ctx context.Context, urls []string, delay time.Duration) []shortener.Result
}

// ShortenCmd handles the shorten command.
type ShortenCmd struct {
	shortener URLShortener
}

// ShortenInput holds input for shortening URLs.
type ShortenInput struct {
	URLs   []string
	Delay  time.Duration
	Output string
}

// Shorten shortens eligible URLs and reports ineligible ones without a request.
func (c ShortenCmd) Shorten(ctx context.Context, in ShortenInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}

	eligible := lo.Filter(in.URLs, func(u string, _ int) bool { return shortener.CanShorten(u).CanShorten })
	shortened := c.shortener.Shorten(ctx, eligible, in.Delay)
	byURL := make(map[string]shortener.Result, len(shortened))
	for i, u := range eligible {
		if i < len(shortened) {
			byURL[u] = shortened[i]
		}
	}

	results := lo.Map(in.URLs, func(u string, _ int) shortener.Result {
		if r, ok := byURL[u]; ok {
			return r
		}
		return shortener.Result{OriginalURL: u, Error: shortener.CanShorten(u).Reason}
	})

	if in.Output == "json" {
		return util.PrintPrettyJSONSlice(results)
	}

	rows := pterm.TableData{{"URL", "Short URL", "Status"}}
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = r.Error
		}
		rows = append(rows, []string{util.Truncate(r.OriginalURL, 50), util.OrDash(r.ShortURL), status})
	}
	PrintTableNoPad(rows, true)

	failed := lo.CountBy(results, func(r shortener.Result) bool { return !r.Success })
	if failed > 0 {
		pterm.Warning.Printf("%d of %d URLs not shortened\n", failed, len(results))
	}
	return nil
}

// --- Cobra wiring ---

var shortenCmd = &cobra.Command{
	Use:   "shorten <url>...",
	Short: "Shorten URLs with is.gd",
	Long:  "Shorten one or more URLs sequentially, pausing between requests to respect rate limits.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runShorten,
}

func init() {
	shortenCmd.Flags().Duration("delay", shortener.DefaultBatchDelay, "Pause between requests")
	shortenCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func runShorten(cmd *cobra.Command, args []string) error {
	delay, _ := cmd.Flags().GetDuration("delay")
	output, _ := cmd.Flags().GetString("output")
	if delay < 0 {
		return fmt.Errorf("--delay must not be negative")
	}

	c := ShortenCmd{shortener: getService(cmd)}
	return c.Shorten(cmd.Context(), ShortenInput{URLs: args, Delay: delay, Output: output})
}
