package tmcore

import "github.com/google/uuid"

// Tokenizer sequences ParseLine calls across a whole document, threading
// the returned Stack from one line into the next. This is the "public
// multi-line driver" spec.md treats as an external collaborator: a thin,
// mechanical loop that does not reinterpret engine semantics.
type Tokenizer struct {
	Grammar *Grammar
	Tracer  Tracer

	stack     Stack
	sessionID uuid.UUID
}

// NewTokenizer starts a fresh document at the grammar's root state.
func NewTokenizer(g *Grammar) *Tokenizer {
	return &Tokenizer{
		Grammar:   g,
		stack:     NewStack(g.Root),
		sessionID: uuid.New(),
	}
}

// SessionID identifies this Tokenizer's run, attached to the zerolog
// debug/warn lines Next emits so a multi-line document's log output can
// be grepped back together. It is independent of Tracer's output, which
// stays a bare, uuid-free pinned wire format (see trace.go).
func (t *Tokenizer) SessionID() uuid.UUID { return t.sessionID }

// Stack returns the state at the end of the last line consumed, usable to
// resume tokenization of the same document from a later line (e.g. after
// an editor change invalidates everything below it — incremental re-parse
// itself is out of scope, but resuming from a known-good stack is just
// construction).
func (t *Tokenizer) Stack() Stack { return t.stack }

// Next tokenizes one more line and advances the driver's stack.
func (t *Tokenizer) Next(line string) ([]Token, error) {
	stack, tokens, err := ParseLine(t.Grammar, t.stack, line, t.Tracer)
	if err != nil {
		Log.Warn().
			Str("session", t.sessionID.String()).
			AnErr("error", err).
			Msg("line tokenization failed")
		return nil, err
	}
	t.stack = stack
	Log.Debug().
		Str("session", t.sessionID.String()).
		Int("tokens", len(tokens)).
		Msg("tokenized line")
	return tokens, nil
}
