// Package natives implements the four built-in functions spec.md §6
// specifies by contract only (print, read_line, str, len) against the
// machine.NativeFunc shape, and registers them into a Thread's globals
// table, grounded on the teacher's Universe/Predeclared global-
// registration pattern (lang/machine/universe.go).
package natives

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mna/ely/lang/machine"
)

// stdoutOf and stdinOf apply the same nil-falls-back-to-os default as
// Thread.init, since natives lives outside the machine package and
// cannot see Thread's unexported, already-resolved stdout/stdin fields.
func stdoutOf(th *machine.Thread) io.Writer {
	if th.Stdout != nil {
		return th.Stdout
	}
	return os.Stdout
}

func stdinOf(th *machine.Thread) io.Reader {
	if th.Stdin != nil {
		return th.Stdin
	}
	return os.Stdin
}

// Register installs print, read_line, str, and len into th.Globals. It is
// meant to be called once, before th.Run, mirroring the teacher's
// Thread.Predeclared wiring.
func Register(th *machine.Thread) {
	if th.Globals == nil {
		th.Globals = make(map[string]machine.Value)
	}
	th.Globals["print"] = &machine.NativeFunc{FnName: "print", Arity: machine.Variadic, Fn: nativePrint}
	th.Globals["read_line"] = &machine.NativeFunc{FnName: "read_line", Arity: 0, Fn: nativeReadLine}
	th.Globals["str"] = &machine.NativeFunc{FnName: "str", Arity: 1, Fn: nativeStr}
	th.Globals["len"] = &machine.NativeFunc{FnName: "len", Arity: 1, Fn: nativeLen}
}

// nativePrint writes its arguments space-separated, stringified, followed
// by a newline, to th.Stdout (spec.md §6: "print(…variadic) writes
// space-separated stringified args"). It returns Null, so Call's
// push-if-non-Null rule leaves the stack balanced when print is used as a
// bare expression statement.
func nativePrint(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = machine.Stringify(a)
	}
	fmt.Fprintln(stdoutOf(th), strings.Join(parts, " "))
	return machine.Null, nil
}

// nativeReadLine reads and returns one line from th.Stdin, without its
// trailing newline. It reads one byte at a time, so nothing past the end of
// the returned line is consumed from th.Stdin.
func nativeReadLine(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	r := stdinOf(th)
	var line strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			line.WriteByte(buf[0])
		}
		if err != nil {
			if line.Len() == 0 {
				return nil, fmt.Errorf("read_line: %w", err)
			}
			break
		}
	}
	return machine.String(strings.TrimRight(line.String(), "\r")), nil
}

// nativeStr converts its argument to a String, failing on Null per
// spec.md §6.
func nativeStr(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	v := args[0]
	if v == machine.Null {
		return nil, fmt.Errorf("str: cannot convert null to a string")
	}
	return machine.String(machine.Stringify(v)), nil
}

// nativeLen returns the element count of a HashTable, failing otherwise
// per spec.md §6.
func nativeLen(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	ht, ok := args[0].(*machine.HashTable)
	if !ok {
		return nil, fmt.Errorf("len: expected a hash-table, got %s", args[0].Type())
	}
	return machine.Number(ht.Len()), nil
}
