package machine

import (
	"github.com/mna/ely/internal/diag"
	"github.com/mna/ely/lang/compiler"
)

// Run executes prog as the top-level script (scope depth 0) and returns
// whatever Halt leaves on the stack, if anything, per spec.md §4.3's Halt
// instruction. Runtime failures recovered from a diag.Fatal panic are
// reported to Stderr and returned as an error (spec.md §7).
func (th *Thread) Run(prog compiler.Program) (result Value, err error) {
	th.init()
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*diag.Fatal)
			if !ok {
				panic(r)
			}
			err = f
			diag.WriterSink{W: th.stderr}.Report(f, "")
		}
	}()

	fr := &Frame{name: "<script>", program: prog}
	th.callStack = append(th.callStack, fr)
	return th.execFrame(fr), nil
}

// --- operand fetch helpers ------------------------------------------------

func (fr *Frame) fetchOp() compiler.Opcode {
	op := fr.program[fr.pc].(compiler.Opcode)
	fr.pc++
	return op
}

func (fr *Frame) fetchInt() int {
	v := fr.program[fr.pc]
	fr.pc++
	return v.(int)
}

func (fr *Frame) fetchFloat() float64 {
	v := fr.program[fr.pc]
	fr.pc++
	return v.(float64)
}

func (fr *Frame) fetchStringOperand() string {
	v := fr.program[fr.pc]
	fr.pc++
	return v.(string)
}

func (fr *Frame) fetchBool() bool {
	v := fr.program[fr.pc]
	fr.pc++
	return v.(bool)
}

func (fr *Frame) fetchFuncode() *compiler.Funcode {
	v := fr.program[fr.pc]
	fr.pc++
	return v.(*compiler.Funcode)
}

// --- stack helpers ----------------------------------------------------

func (th *Thread) push(v Value) {
	th.stack = append(th.stack, v)
}

func (th *Thread) pop() Value {
	n := len(th.stack) - 1
	v := th.stack[n]
	th.stack[n] = nil
	th.stack = th.stack[:n]
	return v
}

// execFrame runs fr.program from fr.pc until a Return or Halt instruction,
// recursing into a nested execFrame for every Function Call (spec.md
// §4.3: "push a frame …, then re-enter the run loop with fn.program").
// Recursion through the Go call stack mirrors spec.md's call-frame stack
// directly, the way the teacher's run()/Call() pair does.
func (th *Thread) execFrame(fr *Frame) Value {
	for {
		th.steps++
		if th.MaxSteps > 0 && th.steps > th.MaxSteps {
			th.fail("step limit exceeded")
		}

		op := fr.fetchOp()
		switch op {
		case compiler.OpPushImmediate:
			th.push(operandToValue(fr.program[fr.pc]))
			fr.pc++

		case compiler.OpNull:
			th.push(Null)

		case compiler.OpPop:
			th.pop()

		case compiler.OpDefineGlobal:
			name := fr.fetchStringOperand()
			if _, ok := th.Globals[name]; ok {
				th.fail("global %q already defined", name)
			}
			th.Globals[name] = th.pop()

		case compiler.OpSetGlobal:
			name := fr.fetchStringOperand()
			if _, ok := th.Globals[name]; !ok {
				th.fail("unknown global %q", name)
			}
			th.Globals[name] = th.pop()

		case compiler.OpGetGlobal:
			name := fr.fetchStringOperand()
			v, ok := th.Globals[name]
			if !ok {
				th.fail("unknown global %q", name)
			}
			th.push(v)

		case compiler.OpGetLocal:
			slot := fr.fetchInt()
			th.push(th.stack[fr.stackBase+slot])

		case compiler.OpSetLocal:
			slot := fr.fetchInt()
			th.stack[fr.stackBase+slot] = th.pop()

		case compiler.OpGetUpvalue:
			idx := fr.fetchInt()
			th.push(fr.closure.Upvalues[idx].Get())

		case compiler.OpSetUpvalue:
			idx := fr.fetchInt()
			fr.closure.Upvalues[idx].Set(th.pop())

		case compiler.OpClosure:
			fn := fr.fetchFuncode()
			upvalues := make([]*Upvalue, fn.UpvalueCount)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := fr.fetchBool()
				index := fr.fetchInt()
				if isLocal {
					upvalues[i] = th.captureUpvalue(fr.stackBase + index)
				} else {
					upvalues[i] = fr.closure.Upvalues[index]
				}
			}
			th.push(&Function{Funcode: fn, Upvalues: upvalues})

		case compiler.OpCreateHT:
			n := fr.fetchInt()
			ht := NewHashTable(n)
			for i := 0; i < n; i++ {
				v := th.pop()
				k := th.pop()
				ht.Set(th.keyString(k), v)
			}
			th.push(ht)

		case compiler.OpGetHT:
			key := th.pop()
			tbl := th.pop()
			ht, ok := tbl.(*HashTable)
			if !ok {
				th.fail("cannot index a value of type %s", tbl.Type())
			}
			v, found := ht.Get(th.keyString(key))
			if !found {
				th.fail("key %q not found", th.keyString(key))
			}
			th.push(v)

		case compiler.OpAdd:
			th.execAdd()

		case compiler.OpSub:
			th.execArith(op)
		case compiler.OpMultiply:
			th.execArith(op)
		case compiler.OpDivide:
			th.execArith(op)
		case compiler.OpGreater:
			th.execCompare(op)
		case compiler.OpLess:
			th.execCompare(op)

		case compiler.OpEqual:
			b := th.pop()
			a := th.pop()
			th.push(Bool(valuesEqual(a, b)))

		case compiler.OpNot:
			v, ok := th.pop().(Bool)
			if !ok {
				th.fail("'not' requires a bool operand")
			}
			th.push(!v)

		case compiler.OpAnd:
			b, bok := th.pop().(Bool)
			a, aok := th.pop().(Bool)
			if !aok || !bok {
				th.fail("'and' requires bool operands")
			}
			th.push(a && b)

		case compiler.OpOr:
			b, bok := th.pop().(Bool)
			a, aok := th.pop().(Bool)
			if !aok || !bok {
				th.fail("'or' requires bool operands")
			}
			th.push(a || b)

		case compiler.OpCall:
			argc := fr.fetchInt()
			th.execCall(argc)

		case compiler.OpReturn:
			n := fr.fetchInt()
			th.closeUpvaluesFrom(fr.stackBase)
			if n == 1 {
				fr.result = th.pop()
				fr.hasResult = true
			}
			th.stack = th.stack[:fr.stackBase]
			th.callStack = th.callStack[:len(th.callStack)-1]
			if fr.hasResult {
				return fr.result
			}
			return nil

		case compiler.OpJump:
			fr.pc = fr.fetchInt()

		case compiler.OpJumpIfFalse:
			dest := fr.fetchInt()
			if !Truthy(th.pop()) {
				fr.pc = dest
			}

		case compiler.OpHalt:
			th.callStack = th.callStack[:len(th.callStack)-1]
			if len(th.stack) > 0 {
				return th.stack[len(th.stack)-1]
			}
			return nil

		default:
			th.fail("unknown opcode %s", op)
		}
	}
}

// execCall implements spec.md §4.3's Call instruction for both
// NativeFunc and Function callees.
func (th *Thread) execCall(argc int) {
	calleeIdx := len(th.stack) - argc - 1
	callee := th.stack[calleeIdx]

	switch fn := callee.(type) {
	case *NativeFunc:
		if fn.Arity != Variadic && fn.Arity != argc {
			th.fail("%s expects %d argument(s), got %d", fn.FnName, fn.Arity, argc)
		}
		args := make([]Value, argc)
		copy(args, th.stack[calleeIdx+1:])
		th.stack = th.stack[:calleeIdx]
		result, err := fn.Fn(th, args)
		if err != nil {
			th.fail("%s", err)
		}
		if result != Null && result != nil {
			th.push(result)
		}

	case *Function:
		if fn.Funcode.Arity != argc {
			th.fail("%s expects %d argument(s), got %d", fn.Name(), fn.Funcode.Arity, argc)
		}
		if th.MaxCallStackDepth > 0 && len(th.callStack) >= th.MaxCallStackDepth {
			th.fail("call stack depth exceeded")
		}
		callFr := &Frame{
			name:      fn.Name(),
			program:   fn.Funcode.Body,
			stackBase: calleeIdx,
			closure:   fn,
		}
		th.callStack = append(th.callStack, callFr)
		result := th.execFrame(callFr)
		if result != nil {
			th.push(result)
		}

	default:
		th.fail("value of type %s is not callable", callee.Type())
	}
}

func (th *Thread) execAdd() {
	b := th.pop()
	a := th.pop()
	an, aIsNum := a.(Number)
	bn, bIsNum := b.(Number)
	if aIsNum && bIsNum {
		th.push(an + bn)
		return
	}
	as, aIsStr := a.(String)
	bs, bIsStr := b.(String)
	if aIsStr && bIsStr {
		th.push(as + bs)
		return
	}
	if aIsNum || aIsStr {
		if bIsNum || bIsStr {
			th.push(String(Stringify(a) + Stringify(b)))
			return
		}
	}
	th.fail("cannot add values of type %s and %s", a.Type(), b.Type())
}

func (th *Thread) execArith(op compiler.Opcode) {
	b := th.pop()
	a := th.pop()
	an, aok := a.(Number)
	bn, bok := b.(Number)
	if !aok || !bok {
		th.fail("%s requires number operands, got %s and %s", op, a.Type(), b.Type())
	}
	switch op {
	case compiler.OpSub:
		th.push(an - bn)
	case compiler.OpMultiply:
		th.push(an * bn)
	case compiler.OpDivide:
		if bn == 0 {
			th.fail("division by zero")
		}
		th.push(an / bn)
	}
}

func (th *Thread) execCompare(op compiler.Opcode) {
	b := th.pop()
	a := th.pop()
	an, aok := a.(Number)
	bn, bok := b.(Number)
	if !aok || !bok {
		th.fail("%s requires number operands, got %s and %s", op, a.Type(), b.Type())
	}
	switch op {
	case compiler.OpGreater:
		th.push(Bool(an > bn))
	case compiler.OpLess:
		th.push(Bool(an < bn))
	}
}

// keyString coerces a GetHT/CreateHT key to its string form, per spec.md
// §4.3: "keys coerce to their string form when the key is numeric".
func (th *Thread) keyString(v Value) string {
	switch v := v.(type) {
	case String:
		return string(v)
	case Number:
		return numberKeyString(float64(v))
	default:
		th.fail("hash-table keys must be string or number, got %s", v.Type())
		return ""
	}
}

// valuesEqual implements spec.md §4.3's Equal instruction: structural
// equality when both operands share a tag, false across differing tags
// (an Open Question spec.md leaves undecided beyond "requires same tag";
// see DESIGN.md).
func valuesEqual(a, b Value) bool {
	switch a := a.(type) {
	case Number:
		b, ok := b.(Number)
		return ok && a == b
	case String:
		b, ok := b.(String)
		return ok && a == b
	case Bool:
		b, ok := b.(Bool)
		return ok && a == b
	case NullType:
		_, ok := b.(NullType)
		return ok
	default:
		return a == b
	}
}

// operandToValue builds a Value from a raw PushImmediate operand
// (float64, string, or bool), per spec.md §4.3.
func operandToValue(raw any) Value {
	switch v := raw.(type) {
	case float64:
		return Number(v)
	case string:
		return String(v)
	case bool:
		return Bool(v)
	default:
		panic("unreachable: invalid PushImmediate operand")
	}
}
