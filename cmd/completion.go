package cmd

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate a completion script for badge.

Completions cover subcommands, flags and the fixed values of --platform
(reddit, linkedin) and --style (minimal, standard, detailed). Generating them
runs offline and never opens the settings store.

Load for the current bash session:
  $ source <(badge completion bash)

Install for zsh (compinit must already be enabled):
  $ badge completion zsh > "${fpath[1]}/_badge"

Install for fish:
  $ badge completion fish > ~/.config/fish/completions/badge.fish

Load in PowerShell:
  PS> badge completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(out, true)
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
