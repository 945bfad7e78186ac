// Command scopedump tokenizes a source file against a TextMate grammar and
// prints the resulting scope-annotated tokens. It replaces the teacher
// repository's colorcat: colorization/theme application is out of scope
// here (spec.md's explicit Non-goal), so scopedump prints token ranges and
// scope paths instead of ANSI-rendered text.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	cmd := &cobra.Command{
		Use:   "scopedump",
		Short: "Tokenize source files against a TextMate grammar",
	}

	cfgFlag := cmd.PersistentFlags().String("config", "", "path to config file (default ~/.config/scopedump/config.yaml)")
	cmd.AddCommand(newDumpCommand(cfgFlag))
	cmd.AddCommand(newListCommand(cfgFlag))
	cmd.AddCommand(newWatchCommand(cfgFlag))

	if info, ok := debug.ReadBuildInfo(); ok {
		cmd.Version = info.Main.Version
	} else {
		cmd.Version = "unknown"
	}
	cmd.InitDefaultVersionFlag()
	cmd.SilenceUsage = true

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
