package tmcore

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the package-level logger. Callers embedding this package in a
// larger service can replace it (e.g. with a logger carrying their own
// request-scoped fields) before calling into the Loader or engine.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

func logGrammarFormatMismatch(scopeName, formatVersion string) {
	Log.Warn().
		Str("scope", scopeName).
		Str("formatVersion", formatVersion).
		Str("supported", SupportedFormatRange.String()).
		Msg("grammar formatVersion outside supported range, compiling anyway")
}
