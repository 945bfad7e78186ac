package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

func newListCommand(cfgPath *string) *cobra.Command {
	var grammarDirs []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known file types and their grammars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			loader, err := buildLoader(resolveGrammarDirs(cfg, grammarDirs))
			if err != nil {
				return err
			}

			fts := slices.Sorted(loader.FileTypes())
			names := make(map[string][]string)
			for ft, scopes := range loader.FileTypeNames() {
				names[ft] = scopes
			}
			for _, ft := range fts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ft, strings.Join(names[ft], ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&grammarDirs, "grammar-dir", nil, "directory to search for grammars (repeatable)")
	return cmd
}
