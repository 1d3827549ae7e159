package app

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phillarmonic/dotpipe/internal/secrets"
)

// Domain: Secret Management
// This file contains the secret subcommands backing the secret verb

func (a *App) createSecretCommand() *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage credentials read by the secret verb",
	}
	cmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "Secret namespace (default from config)")

	manager := func() (secrets.Manager, string, error) {
		ns := namespace
		if ns == "" {
			ns = a.config.Secrets.Namespace
		}
		m, err := openSecrets(a.config)
		return m, ns, err
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set NAME [VALUE]",
		Short: "Store a secret (reads VALUE from stdin when omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ns, err := manager()
			if err != nil {
				return err
			}
			value := ""
			if len(args) == 2 {
				value = args[1]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read secret value: %w", err)
				}
				value = strings.TrimRight(line, "\r\n")
			}
			return m.Set(ns, args[0], value)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get NAME",
		Short: "Print a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ns, err := manager()
			if err != nil {
				return err
			}
			value, err := m.Get(ns, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ns, err := manager()
			if err != nil {
				return err
			}
			return m.Delete(ns, args[0])
		},
	})

	list := &cobra.Command{
		Use:   "list",
		Short: "List secret names, or namespaces with --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, ns, err := manager()
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")
			var names []string
			if all {
				names, err = m.ListNamespaces()
			} else {
				names, err = m.List(ns)
			}
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	list.Flags().Bool("all", false, "List namespaces instead of names")
	cmd.AddCommand(list)

	return cmd
}
