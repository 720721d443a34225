package scanner_test

import (
	"testing"

	"github.com/mna/ely/internal/diag"
	"github.com/mna/ely/lang/scanner"
	"github.com/mna/ely/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(src string) []token.Value {
	s := scanner.New(src)
	var toks []token.Value
	for {
		tv := s.Next()
		toks = append(toks, tv)
		if tv.Tok == token.EOF {
			return toks
		}
	}
}

func TestScanTokens(t *testing.T) {
	toks := scanAll(`var x = 1 + 2.5 # a comment
print(x, "hi") == true and not false`)

	want := []token.Token{
		token.VAR, token.IDENT, token.EQ, token.NUMBER, token.PLUS, token.NUMBER,
		token.IDENT, token.LPAREN, token.IDENT, token.COMMA, token.STRING, token.RPAREN,
		token.EQEQ, token.TRUE, token.AND, token.NOT, token.FALSE,
		token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, tv := range toks {
		require.Equalf(t, want[i], tv.Tok, "token %d", i)
	}
	require.Equal(t, "x", toks[1].Lit)
	require.Equal(t, "hi", toks[10].Lit)
	require.Equal(t, 2, toks[6].Line)
}

func TestScanEOFIsSticky(t *testing.T) {
	s := scanner.New("")
	first := s.Next()
	second := s.Next()
	require.Equal(t, token.EOF, first.Tok)
	require.Equal(t, token.EOF, second.Tok)
}

func TestScanUnterminatedString(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		f, ok := r.(*diag.Fatal)
		require.True(t, ok)
		require.Equal(t, diag.LexError, f.Kind)
	}()
	scanAll(`"unterminated`)
}

func TestScanUnexpectedChar(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		f, ok := r.(*diag.Fatal)
		require.True(t, ok)
		require.Equal(t, diag.LexError, f.Kind)
		require.Equal(t, 1, f.Line)
	}()
	scanAll("var x = @")
}

func TestScanNumberWithDot(t *testing.T) {
	toks := scanAll("3.14")
	require.Equal(t, token.NUMBER, toks[0].Tok)
	require.Equal(t, "3.14", toks[0].Lit)
}
