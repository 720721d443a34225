package natives_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mna/ely/lang/machine"
	"github.com/mna/ely/lang/natives"
	"github.com/stretchr/testify/require"
)

func newThread(stdin string) (*machine.Thread, *bytes.Buffer) {
	var out bytes.Buffer
	th := machine.NewThread()
	th.Stdout = &out
	th.Stdin = strings.NewReader(stdin)
	natives.Register(th)
	return th, &out
}

func call(t *testing.T, th *machine.Thread, name string, args ...machine.Value) (machine.Value, error) {
	t.Helper()
	fn, ok := th.Globals[name].(*machine.NativeFunc)
	require.True(t, ok, "global %q is not a native function", name)
	return fn.Fn(th, args)
}

func TestPrint(t *testing.T) {
	th, out := newThread("")
	v, err := call(t, th, "print", machine.String("a"), machine.Number(1))
	require.NoError(t, err)
	require.Equal(t, machine.Null, v)
	require.Equal(t, "a 1\n", out.String())
}

func TestStr(t *testing.T) {
	th, _ := newThread("")
	v, err := call(t, th, "str", machine.Number(3))
	require.NoError(t, err)
	require.Equal(t, machine.String("3"), v)

	_, err = call(t, th, "str", machine.Null)
	require.Error(t, err)
}

func TestLen(t *testing.T) {
	th, _ := newThread("")
	ht := machine.NewHashTable(0)
	ht.Set("0", machine.Number(1))
	ht.Set("1", machine.Number(2))

	v, err := call(t, th, "len", ht)
	require.NoError(t, err)
	require.Equal(t, machine.Number(2), v)

	_, err = call(t, th, "len", machine.Number(1))
	require.Error(t, err)
}

func TestReadLine(t *testing.T) {
	th, _ := newThread("hello\nworld\n")
	v, err := call(t, th, "read_line")
	require.NoError(t, err)
	require.Equal(t, machine.String("hello"), v)
}
