package app

import (
	"github.com/spf13/cobra"
)

// Domain: Shell Completion
// This file contains logic for shell completion

// completeKeys completes a page path first, then the page's entry keys
func (a *App) completeKeys(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return nil, cobra.ShellCompDirectiveDefault
	}

	member, _ := cmd.Flags().GetString("file-member")
	s, err := OpenSession(cmd.Context(), a.config, RunOptions{Page: args[0], Member: member}, a.version, a.logger)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer func() { _ = s.Close() }()

	var completions []string
	for _, entry := range s.Entries() {
		completions = append(completions, entry.Key+"\t[entry] "+firstSegment(entry))
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func firstSegment(e EntryInfo) string {
	if len(e.Segments) == 0 {
		return ""
	}
	return e.Segments[0].Text
}

// createCompletionCommand creates the completion subcommand
func (a *App) createCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `Generate shell completion script for dotpipe.

Bash:

  $ source <(dotpipe completion bash)

Zsh:

  $ dotpipe completion zsh > "${fpath[1]}/_dotpipe"

Fish:

  $ dotpipe completion fish | source

PowerShell:

  PS> dotpipe completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		PersistentPreRunE:     func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return a.rootCmd.GenBashCompletion(out)
			case "zsh":
				return a.rootCmd.GenZshCompletion(out)
			case "fish":
				return a.rootCmd.GenFishCompletion(out, true)
			default:
				return a.rootCmd.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
