package machine

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mna/ely/internal/diag"
	"golang.org/x/exp/slices"
)

// Thread is the virtual machine: a value stack, a call stack of frames, a
// global name table, and the set of currently open upvalues (spec.md
// §4.3's "Registers"). Grounded on the teacher's machine.Thread, carrying
// forward its Stdout/Stderr/Stdin and resource-limit fields as an ambient
// concern (SPEC_FULL.md §4) that spec.md itself neither requires nor
// forbids.
type Thread struct {
	// Stdout, Stderr and Stdin back the `print`/`read_line` natives. If nil,
	// os.Stdout, os.Stderr and os.Stdin are used respectively.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxSteps bounds the number of executed instructions before the thread
	// fails with a RuntimeError. A value <= 0 means unlimited.
	MaxSteps int

	// MaxCallStackDepth bounds the number of nested Function calls before the
	// thread fails with a RuntimeError instead of overflowing the Go stack. A
	// value <= 0 means unlimited.
	MaxCallStackDepth int

	// Globals holds the top-level name table: user `var`/`function`
	// declarations at scope depth 0, plus whatever lang/natives registers
	// before Run is called.
	Globals map[string]Value

	stack        []Value
	callStack    []*Frame
	openUpvalues []*Upvalue
	steps        int

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

// NewThread returns a Thread with an empty Globals table, ready for
// lang/natives to populate before Run is called.
func NewThread() *Thread {
	return &Thread{Globals: make(map[string]Value)}
}

func (th *Thread) init() {
	th.stdout = th.Stdout
	if th.stdout == nil {
		th.stdout = os.Stdout
	}
	th.stderr = th.Stderr
	if th.stderr == nil {
		th.stderr = os.Stderr
	}
	th.stdin = th.Stdin
	if th.stdin == nil {
		th.stdin = os.Stdin
	}
	if th.Globals == nil {
		th.Globals = make(map[string]Value)
	}
}

// fail raises a RuntimeError carrying a call-stack trace, per spec.md §7
// ("prints a call-stack trace and raises a fatal error"). Runtime errors
// carry no source position: Program and Frame, per spec.md §3, record no
// line information, unlike the lexer/compiler's diag.Fatal uses.
func (th *Thread) fail(format string, args ...any) {
	var b strings.Builder
	fmt.Fprintf(&b, format, args...)
	for i := len(th.callStack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "\n    at %s", th.callStack[i].name)
	}
	diag.Raise(diag.RuntimeError, 0, 0, "%s", b.String())
}

// captureUpvalue returns the open upvalue for absolute stack slot slot,
// creating and registering one if none exists yet, per spec.md §4.3's
// Closure instruction ("deduplicated via open_upvalues").
func (th *Thread) captureUpvalue(slot int) *Upvalue {
	if i := slices.IndexFunc(th.openUpvalues, func(uv *Upvalue) bool {
		return !uv.closed && uv.stackSlot == slot
	}); i >= 0 {
		return th.openUpvalues[i]
	}
	uv := &Upvalue{thread: th, stackSlot: slot}
	th.openUpvalues = append(th.openUpvalues, uv)
	return uv
}

// closeUpvaluesFrom closes every open upvalue whose stack slot is >= base
// and drops it from the open list, per spec.md §4.3's Return semantics.
func (th *Thread) closeUpvaluesFrom(base int) {
	kept := th.openUpvalues[:0]
	for _, uv := range th.openUpvalues {
		if !uv.closed && uv.stackSlot >= base {
			uv.close()
			continue
		}
		kept = append(kept, uv)
	}
	th.openUpvalues = kept
}
