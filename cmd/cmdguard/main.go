package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/victorarias/cmdguard/internal/audit"
	"github.com/victorarias/cmdguard/internal/daemon"
	"github.com/victorarias/cmdguard/internal/guard"
	"github.com/victorarias/cmdguard/internal/hook"
	"github.com/victorarias/cmdguard/internal/policy"
)

var policyPath string

// errBlocked maps a block decision to exit code 1 without printing the
// cobra error banner.
var errBlocked = errors.New("command blocked")

func main() {
	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, errBlocked) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cmdguard",
		Short: "Pre-execution security gate for agent shell commands",
		Long: `cmdguard validates shell commands before an autonomous coding agent runs
them. Invoked with no subcommand it acts as a pre-tool-use hook: it reads a
JSON request on stdin and writes a JSON decision on stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGuard()
			if err != nil {
				return err
			}
			return hook.Run(os.Stdin, os.Stdout, g)
		},
	}

	root.PersistentFlags().StringVar(&policyPath, "policy", "", "path to a YAML policy file (default: built-in policy)")

	root.AddCommand(checkCmd())
	root.AddCommand(daemonCmd())
	return root
}

func checkCmd() *cobra.Command {
	var projectDir string
	var viaDaemon bool

	cmd := &cobra.Command{
		Use:   "check [flags] -- <command>",
		Short: "Evaluate a command and print the decision",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.Join(args, " ")

			var decision, reason string
			if viaDaemon {
				resp, err := daemon.Query(daemon.Request{Command: command, ProjectDir: projectDir})
				if err != nil {
					return err
				}
				decision, reason = resp.Decision, resp.Reason
			} else {
				g, err := loadGuard()
				if err != nil {
					return err
				}
				d := g.Evaluate(command, projectDir)
				decision, reason = d.Verdict.String(), d.Reason
				audit.Record("check", command, projectDir, decision, reason)
			}

			if decision == "BLOCK" {
				fmt.Fprintf(cmd.OutOrStdout(), "BLOCK: %s\n", reason)
				return errBlocked
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ALLOW")
			return nil
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", "", "project root for path sandboxing (empty disables path checks)")
	cmd.Flags().BoolVar(&viaDaemon, "via-daemon", false, "evaluate through the resident daemon, starting it if needed")
	return cmd
}

func daemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the evaluation daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGuard()
			if err != nil {
				return err
			}
			d := daemon.New(daemon.GuardDecider{Guard: g}, daemon.Config{})
			return d.Run()
		},
	}

	cmd.AddCommand(
		controlCmd("status", "Report whether the daemon is running", daemon.Status),
		controlCmd("stop", "Stop a running daemon", daemon.Stop),
		controlCmd("restart", "Restart the daemon", daemon.Restart),
	)
	return cmd
}

func controlCmd(use, short string, fn func() (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := fn()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func loadGuard() (*guard.Guard, error) {
	if policyPath == "" {
		return guard.New(policy.Default()), nil
	}
	p, err := policy.Load(policyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	return guard.New(p), nil
}
