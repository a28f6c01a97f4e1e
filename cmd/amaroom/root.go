package main

import (
	"flag"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/amaroom/internal/app"
)

func newRootCommand() *cobra.Command {
	opts := &app.Options{}

	cmd := &cobra.Command{
		Use:           "amaroom",
		Short:         "Follow a live AMA room from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// glog reads its flags from the Go flag set.
			return flag.CommandLine.Parse(nil)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/amaroom/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "environment file to load (default ./.env when present)")
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newTailCommand(opts))
	cmd.AddCommand(newQuestionsCommand(opts))
	cmd.AddCommand(newRoomCommand(opts))
	cmd.AddCommand(newAskCommand(opts))
	cmd.AddCommand(newReactCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newWatchCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <room-id>",
		Short: "Open the interactive room view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Watch(cmd.Context(), *opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/amaroom/prefs.toml)")
	return cmd
}

func newTailCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail <room-id>",
		Short: "Print room changes as they happen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Tail(cmd.Context(), *opts, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func newQuestionsCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "questions <room-id>",
		Short: "Print the current questions of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ListQuestions(cmd.Context(), *opts, args[0], cmd.OutOrStdout())
		},
	}
}

func newRoomCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Create or inspect rooms",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a room and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.CreateRoom(cmd.Context(), *opts, args[0], cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <room-id>",
		Short: "Show a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ShowRoom(cmd.Context(), *opts, args[0], cmd.OutOrStdout())
		},
	})
	return cmd
}

func newAskCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <room-id> <question...>",
		Short: "Ask a question in a room",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Ask(cmd.Context(), *opts, args[0], args[1:], cmd.OutOrStdout())
		},
	}
}

func newReactCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "react <question-id>",
		Short: "Upvote a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.React(cmd.Context(), *opts, args[0], cmd.OutOrStdout())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "amaroom", version)
			return err
		},
	}
}
