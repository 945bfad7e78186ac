package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

func newWatchCommand(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory of grammars and report reloads as they happen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}

			dir := args[0]
			loader, err := buildLoader(resolveGrammarDirs(cfg, []string{dir}))
			if err != nil {
				return err
			}

			events, err := loader.Watch(cmd.Context(), dir)
			if err != nil {
				return errors.WithMessagef(err, "watching %s", dir)
			}

			for ev := range events {
				if ev.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "reload failed: %v\n", ev.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reloaded scope %s\n", ev.Scope)
			}
			return nil
		},
	}
	return cmd
}
