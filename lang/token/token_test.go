package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String())
	}
	require.Contains(t, Token(maxToken+1).String(), "token(")
}

func TestLookup(t *testing.T) {
	cases := map[string]Token{
		"var":      VAR,
		"function": FUNCTION,
		"while":    WHILE,
		"and":      AND,
		"not":      NOT,
		"true":     TRUE,
		"false":    FALSE,
		"foo":      IDENT,
		"x":        IDENT,
	}
	for lit, want := range cases {
		require.Equal(t, want, Lookup(lit), "lookup(%q)", lit)
	}
}
