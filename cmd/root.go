// Package cmd implements the badge command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/humanitybadge/cli/internal/config"
	"github.com/humanitybadge/cli/internal/logging"
	"github.com/humanitybadge/cli/internal/service"
	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type serviceKey struct{}

var offlineCommands = []string{"completion", "help", "man", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd}

var logCloser io.Closer

var rootCmd = &cobra.Command{
	Use:   "badge",
	Short: "Verify and share proof-of-typing recordings",
	Long: `badge verifies typing recordings captured by the Humanity Badge extension
and publishes them as shareable replay links.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupRoot,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides BADGE_LOG_LEVEL")
}

func setupRoot(cmd *cobra.Command, args []string) error {
	// Completion and help must not touch the keyring or data dir.
	for c := cmd; c != nil; c = c.Parent() {
		if lo.Contains(offlineCommands, c.Name()) {
			return nil
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = strings.ToLower(lvl)
	}
	if logCloser, err = logging.Setup(cfg.LogLevel, cfg.LogFile); err != nil {
		pterm.Warning.Printf("Could not open log file %s: %v\n", cfg.LogFile, err)
	}

	svc, err := service.Open(cfg)
	if err != nil {
		return err
	}
	ctx := context.WithValue(cmd.Context(), serviceKey{}, svc)
	ctx = context.WithValue(ctx, configKey{}, cfg)
	cmd.SetContext(ctx)
	return nil
}

type configKey struct{}

func getService(cmd *cobra.Command) *service.Service {
	svc, ok := cmd.Context().Value(serviceKey{}).(*service.Service)
	if !ok {
		pterm.Error.Println("badge is not initialized")
		os.Exit(1)
	}
	return svc
}

func getConfig(cmd *cobra.Command) *config.Config {
	cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
	if !ok {
		pterm.Error.Println("badge is not initialized")
		os.Exit(1)
	}
	return cfg
}

// Execute runs the root command.
func Execute(ctx context.Context, version string) error {
	rootCmd.AddCommand(verifyCmd, shareCmd, decodeCmd, shortenCmd, authCmd, gistsCmd, recordingsCmd, serveCmd, statusCmd)
	return fang.Execute(ctx, rootCmd, fang.WithVersion(version))
}

// PrintTableNoPad renders rows as a table with trailing cell padding removed.
func PrintTableNoPad(data pterm.TableData, hasHeader bool) {
	table := pterm.DefaultTable.WithData(data)
	if hasHeader {
		table = table.WithHasHeader()
	}
	out, err := table.Srender()
	if err != nil {
		pterm.Error.Printf("render table: %v\n", err)
		return
	}
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	pterm.Println(strings.Join(lines, "\n"))
}

// enumValue is a string flag restricted to a fixed set of values.
type enumValue struct {
	value   string
	allowed []string
}

var _ pflag.Value = (*enumValue)(nil)

func newEnumValue(def string, allowed ...string) *enumValue {
	return &enumValue{value: def, allowed: allowed}
}

func (e *enumValue) String() string { return e.value }

func (e *enumValue) Set(v string) error {
	if !lo.Contains(e.allowed, v) {
		return fmt.Errorf("must be one of %s", strings.Join(e.allowed, ", "))
	}
	e.value = v
	return nil
}

// Type reports "string" so the flag reads back with GetString.
func (e *enumValue) Type() string { return "string" }

// enumFlag registers an enum flag with shell completion for its values.
func enumFlag(cmd *cobra.Command, name, def, usage string, allowed ...string) {
	cmd.Flags().Var(newEnumValue(def, allowed...), name, usage)
	_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(allowed, cobra.ShellCompDirectiveNoFileComp))
}

func validateOutput(output string) error {
	if output != "" && output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}
	return nil
}

// readRecording loads a recording JSON document from path, or stdin for "-".
func readRecording(path string) (recording.Recording, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return recording.Recording{}, err
		}
		defer f.Close()
		r = f
	}
	rec, err := recording.Read(r)
	if err != nil {
		return recording.Recording{}, fmt.Errorf("read recording %s: %w", path, err)
	}
	return rec, nil
}
