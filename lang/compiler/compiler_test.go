package compiler_test

import (
	"bytes"
	"testing"

	"github.com/mna/ely/internal/diag"
	"github.com/mna/ely/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestCompileArithmeticPrecedence(t *testing.T) {
	prog, err := compiler.Compile("var x = 1 + 2 * 3", nil)
	require.NoError(t, err)

	want := compiler.Program{
		compiler.OpPushImmediate, 1.0,
		compiler.OpPushImmediate, 2.0,
		compiler.OpPushImmediate, 3.0,
		compiler.OpMultiply,
		compiler.OpAdd,
		compiler.OpDefineGlobal, "x",
		compiler.OpHalt,
	}
	require.Equal(t, want, prog)
}

func TestCompileExpressionStatementLeavesOneValue(t *testing.T) {
	prog, err := compiler.Compile("1 + 1", nil)
	require.NoError(t, err)

	want := compiler.Program{
		compiler.OpPushImmediate, 1.0,
		compiler.OpPushImmediate, 1.0,
		compiler.OpAdd,
		compiler.OpHalt,
	}
	require.Equal(t, want, prog)
}

func TestCompileWhileEmitsBackpatchedJumps(t *testing.T) {
	prog, err := compiler.Compile("var i = 0\nwhile i < 3 do i = i + 1 end", nil)
	require.NoError(t, err)

	var sawJumpIfFalse, sawJump bool
	for idx, el := range prog {
		switch el {
		case compiler.OpJumpIfFalse:
			sawJumpIfFalse = true
			dest := prog[idx+1].(int)
			require.True(t, dest >= 0 && dest <= len(prog))
		case compiler.OpJump:
			sawJump = true
			dest := prog[idx+1].(int)
			require.True(t, dest >= 0 && dest <= len(prog))
		}
	}
	require.True(t, sawJumpIfFalse)
	require.True(t, sawJump)
}

func TestCompileBreakOutsideLoopIsParseError(t *testing.T) {
	var buf bytes.Buffer
	_, err := compiler.Compile("break", diag.WriterSink{W: &buf})
	require.Error(t, err)
	require.Contains(t, buf.String(), "'break' outside of a loop")
}

func TestCompileFunctionClosureCapturesUpvalue(t *testing.T) {
	src := `function outer()
  var n = 0
  function inner()
    return n
  end
  return inner
end`
	prog, err := compiler.Compile(src, nil)
	require.NoError(t, err)

	var fn *compiler.Funcode
	for _, el := range prog {
		if f, ok := el.(*compiler.Funcode); ok && f.Name == "outer" {
			fn = f
		}
	}
	require.NotNil(t, fn)

	var inner *compiler.Funcode
	for _, el := range fn.Body {
		if f, ok := el.(*compiler.Funcode); ok && f.Name == "inner" {
			inner = f
		}
	}
	require.NotNil(t, inner)
	require.Equal(t, 1, inner.UpvalueCount)
	require.True(t, inner.Upvalues[0].IsLocal)
}

func TestCompileSyncsPastUnexpectedTokenAndKeepsGoing(t *testing.T) {
	var buf bytes.Buffer
	_, err := compiler.Compile("var x = @\nvar y = 2", diag.WriterSink{W: &buf})
	require.Error(t, err)
	require.Contains(t, buf.String(), "flagrant error")
}

func TestCompileUndefinedReturnOutsideFunctionFails(t *testing.T) {
	var buf bytes.Buffer
	_, err := compiler.Compile("return 1", diag.WriterSink{W: &buf})
	require.Error(t, err)
	require.Contains(t, buf.String(), "'return' outside of a function")
}
