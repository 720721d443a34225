// Package machine implements the stack-based virtual machine that executes
// a compiler.Program, and the runtime value representation it shares with
// the compiler (spec.md §3/§4.3).
//
// Grounded on the teacher's lang/machine/value.go Value/Callable interface
// shape, pruned from the teacher's full Starlark-derived trait set (no
// Iterable, Indexable, HasBinary, HasAttrs, metatables, …) down to exactly
// the tagged union spec.md §3 describes: String, Number, Bool, Null,
// HashTable, NativeFunction, Function.
package machine

// Value is the interface implemented by every runtime value.
type Value interface {
	String() string
	Type() string
}

// Callable is implemented by values that may appear as the callee of a
// Call instruction: NativeFunc and Function.
type Callable interface {
	Value
	Name() string
}

// Number is the Value variant for the language's single numeric type,
// an IEEE-754 double.
type Number float64

func (n Number) String() string { return formatNumber(float64(n)) }
func (Number) Type() string     { return "number" }

// String is the Value variant for string literals and string results.
// Named to match spec.md §3's "String(text)" variant rather than Go
// convention, the way the teacher names its own String value type.
type String string

func (s String) String() string { return string(s) }
func (String) Type() string     { return "string" }

// Bool is the Value variant for true/false.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

// NullType is the type of Null. Represented as a byte value, not struct{},
// so that Null may be a package-level constant, mirroring the
// teacher's lang/machine/nil.go.
type NullType byte

// Null is the single Value of type NullType.
const Null = NullType(0)

func (NullType) String() string { return "null" }
func (NullType) Type() string   { return "null" }

// Truthy implements spec.md §4.3's truthiness rules: Bool uses its value;
// Number is truthy iff non-zero; String is truthy iff non-empty; all else
// (Null, HashTable, Function, NativeFunc) is falsy.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Number:
		return v != 0
	case String:
		return v != ""
	default:
		return false
	}
}

var (
	_ Value = Number(0)
	_ Value = String("")
	_ Value = Bool(false)
	_ Value = Null
)
