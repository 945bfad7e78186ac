package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	tmcore "github.com/scopegraph/tmcore"
)

func newDumpCommand(cfgPath *string) *cobra.Command {
	var (
		syntax      string
		format      string
		trace       bool
		grammarDirs []string
	)

	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Tokenize a source file and print its tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if trace {
				cfg.Trace = true
			}

			loader, err := buildLoader(resolveGrammarDirs(cfg, grammarDirs))
			if err != nil {
				return err
			}

			filename := args[0]
			syntaxName := syntax
			if syntaxName == "" {
				syntaxName = strings.TrimPrefix(path.Ext(filename), ".")
			}
			grammar, err := loader.FromFileType(syntaxName, 0)
			if err != nil {
				return errors.WithMessagef(err, "resolving grammar for %q", filename)
			}

			f, err := os.Open(filename)
			if err != nil {
				return errors.WithMessagef(err, "opening %s", filename)
			}
			defer f.Close()

			var tracer tmcore.Tracer
			if cfg.Trace {
				tracer = tmcore.WriterTracer{Out: cmd.ErrOrStderr()}
			}

			tok := tmcore.NewTokenizer(grammar)
			tok.Tracer = tracer

			enc := json.NewEncoder(cmd.OutOrStdout())
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				line := scanner.Text()
				tokens, err := tok.Next(line)
				if err != nil {
					return errors.WithMessagef(err, "tokenizing %s", filename)
				}
				if err := printTokens(cmd, format, line, tokens, enc); err != nil {
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return errors.WithMessage(err, "scanning source")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&syntax, "syntax", "", "grammar file type to use (default: inferred from file extension)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	cmd.Flags().BoolVar(&trace, "trace", false, "write engine trace lines to stderr")
	cmd.Flags().StringArrayVar(&grammarDirs, "grammar-dir", nil, "directory to search for grammars (repeatable)")

	return cmd
}

func printTokens(cmd *cobra.Command, format, line string, tokens []tmcore.Token, enc *json.Encoder) error {
	switch format {
	case "json":
		return enc.Encode(tokens)
	default:
		for _, t := range tokens {
			fmt.Fprintf(cmd.OutOrStdout(), "%d-%d [%s] %q\n", t.Start, t.End, strings.Join(t.ScopePath, " "), t.Text(line))
		}
		return nil
	}
}
