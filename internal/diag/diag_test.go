package diag_test

import (
	"bytes"
	"testing"

	"github.com/mna/ely/internal/diag"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	src := "var x = 1\nvar y = @\n"
	got := diag.Format(src, 2, 9, "unexpected character '@'")
	want := "flagrant error on line 2\n" +
		"unexpected character '@'\n" +
		"    var y = @\n" +
		"            ^"
	require.Equal(t, want, got)
}

func TestRaiseAndRecover(t *testing.T) {
	var err error
	func() {
		defer diag.Recover(&err)
		diag.Raise(diag.ParseError, 3, 1, "expected %s, got %s", "identifier", "number")
	}()
	require.Error(t, err)
	f, ok := err.(*diag.Fatal)
	require.True(t, ok)
	require.Equal(t, diag.ParseError, f.Kind)
	require.Equal(t, 3, f.Line)
	require.Equal(t, "expected identifier, got number", f.Message)
}

func TestRecoverRepanicsOnOtherValues(t *testing.T) {
	require.Panics(t, func() {
		var err error
		defer diag.Recover(&err)
		panic("not a fatal")
	})
}

func TestWriterSinkReport(t *testing.T) {
	var buf bytes.Buffer
	sink := diag.WriterSink{W: &buf}
	sink.Report(&diag.Fatal{Kind: diag.RuntimeError, Line: 1, Col: 5, Message: "boom"}, "oops\n")
	require.Contains(t, buf.String(), "flagrant error on line 1")
	require.Contains(t, buf.String(), "boom")
}
