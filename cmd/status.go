package cmd

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/humanitybadge/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type statusComponent struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type statusResponse struct {
	Status     string            `json:"status"`
	Components []statusComponent `json:"components"`
}

// StatusTarget is one remote service the share pipeline depends on.
type StatusTarget struct {
	Name string
	URL  string
}

// StatusCmd checks that the remote services respond.
type StatusCmd struct {
	client  *http.Client
	targets []StatusTarget
}

// StatusInput holds input for the status command.
type StatusInput struct {
	Output string
}

// Status checks every target concurrently and prints one line per service.
// Any HTTP response below 500 counts as reachable.
func (c StatusCmd) Status(ctx context.Context, in StatusInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}

	comps := make([]statusComponent, len(c.targets))
	var wg sync.WaitGroup
	for i, t := range c.targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			comps[i] = c.check(ctx, t)
		}()
	}
	wg.Wait()

	resp := statusResponse{Status: overallStatus(comps), Components: comps}
	if in.Output == "json" {
		return util.PrintPrettyJSON(resp)
	}
	printStatus(resp)
	return nil
}

func (c StatusCmd) check(ctx context.Context, t StatusTarget) statusComponent {
	comp := statusComponent{Name: t.Name, URL: t.URL}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.URL, nil)
	if err != nil {
		comp.Status, comp.Detail = "unknown", err.Error()
		return comp
	}
	resp, err := c.client.Do(req)
	if err != nil {
		comp.Status, comp.Detail = "full_outage", err.Error()
		return comp
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		comp.Status, comp.Detail = "degraded_performance", resp.Status
		return comp
	}
	comp.Status = "operational"
	return comp
}

func overallStatus(comps []statusComponent) string {
	out := "operational"
	for _, c := range comps {
		switch c.Status {
		case "full_outage":
			return "partial_outage"
		case "degraded_performance", "unknown":
			out = "degraded_performance"
		}
	}
	return out
}

var statusDisplay = map[string]struct {
	label string
	rgb   pterm.RGB
}{
	"operational":          {label: "Operational", rgb: pterm.NewRGB(31, 163, 130)},
	"degraded_performance": {label: "Degraded", rgb: pterm.NewRGB(245, 158, 11)},
	"partial_outage":       {label: "Partial Outage", rgb: pterm.NewRGB(242, 85, 51)},
	"full_outage":          {label: "Unreachable", rgb: pterm.NewRGB(239, 68, 68)},
	"unknown":              {label: "Unknown", rgb: pterm.NewRGB(128, 128, 128)},
}

func getStatusDisplay(status string) (string, pterm.RGB) {
	if d, ok := statusDisplay[status]; ok {
		return d.label, d.rgb
	}
	return "Unknown", pterm.NewRGB(128, 128, 128)
}

func coloredDot(rgb pterm.RGB) string {
	return rgb.Sprint("●")
}

func printStatus(resp statusResponse) {
	label, rgb := getStatusDisplay(resp.Status)
	pterm.Println()
	pterm.Println("  " + fmt.Sprintf("Sharing services: %s", rgb.Sprint(label)))
	pterm.Println()
	for _, comp := range resp.Components {
		compLabel, compColor := getStatusDisplay(comp.Status)
		line := fmt.Sprintf("    %s %-14s %s", coloredDot(compColor), comp.Name, compLabel)
		if comp.Detail != "" {
			line += "  (" + util.Truncate(comp.Detail, 60) + ")"
		}
		pterm.Println(line)
	}
	pterm.Println()
}

// --- Cobra wiring ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that GitHub, is.gd and the replay viewer are reachable",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringP("output", "o", "", "Output format (json)")
	statusCmd.Flags().Duration("timeout", 10*time.Second, "Per-service timeout")
}

func runStatus(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	cfg := getConfig(cmd)

	c := StatusCmd{
		client: &http.Client{Timeout: timeout},
		targets: []StatusTarget{
			{Name: "GitHub API", URL: cfg.GistAPIURL},
			{Name: "is.gd", URL: cfg.ShortenerEndpoint},
			{Name: "Replay viewer", URL: cfg.ViewerURL},
		},
	}
	return c.Status(cmd.Context(), StatusInput{Output: output})
}
