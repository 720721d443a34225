package compiler

import "fmt"

// Program is the linear, heterogeneous instruction stream emitted by the
// compiler and executed by the machine package (spec.md §3): an ordered
// sequence of mixed elements where each element is either an Opcode or one
// of that opcode's operands (int for slots/indices/jump targets/counts,
// string for names, float64 or bool or *Funcode for PushImmediate/Closure
// constant payloads).
//
// This is the "tagged variant sequence" representation spec.md §9's design
// notes call out as the natural in-memory shape for a heterogeneous
// instruction stream in a systems language: a Go []any read positionally by
// both the emitter (this package) and the reader (package machine), rather
// than the teacher's alternative of lowering to a byte vector with a
// parallel constants table.
type Program []any

// UpvalueDesc records, for one upvalue captured by a Closure instruction,
// whether it refers to a local slot of the immediately enclosing function
// (IsLocal true) or to an upvalue slot of the immediately enclosing
// function (IsLocal false). It mirrors the (is-local, index) pairs the
// Closure opcode emits inline in the Program following its Funcode operand
// (spec.md §4.2/§4.3), and is also used by Funcode to record its own
// static upvalue count invariant.
type UpvalueDesc struct {
	Index   int
	IsLocal bool
}

// Funcode is the compile-time prototype of a function: its name, arity, the
// Program that implements its body, and the shape of the upvalues it
// captures. It is the "Function" inline constant of spec.md §3's Program
// data model; the machine package wraps a *Funcode together with resolved
// upvalue cells into a runtime closure value at Closure-instruction time,
// grounded on the teacher's machine.Function / compiler.Funcode split
// (lang/machine/function.go), which avoids a compiler<->machine import
// cycle.
type Funcode struct {
	Name         string
	Arity        int
	Body         Program
	UpvalueCount int
	Upvalues     []UpvalueDesc
}

func (fn *Funcode) String() string {
	if fn.Name == "" {
		return "<anonymous function>"
	}
	return fmt.Sprintf("<function %s>", fn.Name)
}
