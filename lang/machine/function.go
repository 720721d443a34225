package machine

import (
	"fmt"

	"github.com/mna/ely/lang/compiler"
)

// Variadic is the NativeFunc.Arity sentinel meaning "accepts any number of
// arguments" (spec.md §3: "arity may be a sentinel meaning 'variadic'"),
// used by the `print` native.
const Variadic = -1

// NativeFunc is a host-implemented Callable exposed to Ely programs as a
// global, grounded on the teacher's lang/machine/function.go Function/
// Callable pair but specialised to a plain Go closure instead of a
// CallInternal method, since natives never need access to a compiler
// Funcode.
type NativeFunc struct {
	FnName string
	Arity  int // -1 == Variadic
	Fn     func(th *Thread, args []Value) (Value, error)
}

var (
	_ Value    = (*NativeFunc)(nil)
	_ Callable = (*NativeFunc)(nil)
)

func (n *NativeFunc) String() string { return fmt.Sprintf("<native function %s>", n.FnName) }
func (n *NativeFunc) Type() string   { return "native function" }
func (n *NativeFunc) Name() string   { return n.FnName }

// Function is a closure: a compile-time Funcode paired with the resolved
// upvalue cells captured at Closure-instruction time. Grounded on the
// teacher's machine.Function / compiler.Funcode split (lang/machine/
// function.go), which keeps the compiler package free of any dependency
// on the machine package.
type Function struct {
	Funcode  *compiler.Funcode
	Upvalues []*Upvalue
}

var (
	_ Value    = (*Function)(nil)
	_ Callable = (*Function)(nil)
)

func (fn *Function) String() string { return fn.Funcode.String() }
func (fn *Function) Type() string   { return "function" }
func (fn *Function) Name() string {
	if fn.Funcode.Name == "" {
		return "<anonymous function>"
	}
	return fn.Funcode.Name
}
