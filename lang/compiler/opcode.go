package compiler

import "fmt"

// Opcode identifies one instruction in a Program. Grounded on the ordering
// and naming conventions of the teacher's lang/compiler/opcode.go, but
// following spec.md §4.3's instruction set exactly rather than the
// teacher's Starlark-derived set.
type Opcode uint8

//nolint:revive
const (
	OpPushImmediate Opcode = iota // PushImmediate<value>
	OpNull                        // Null
	OpPop                         // Pop
	OpDefineGlobal                // DefineGlobal<name>
	OpSetGlobal                   // SetGlobal<name>
	OpGetGlobal                   // GetGlobal<name>
	OpGetLocal                    // GetLocal<slot>
	OpSetLocal                    // SetLocal<slot>
	OpGetUpvalue                  // GetUpvalue<index>
	OpSetUpvalue                  // SetUpvalue<index>
	OpClosure                     // Closure<funcode> (isLocal,index)*
	OpCreateHT                    // CreateHT<n>
	OpGetHT                       // GetHT
	OpAdd                         // Add
	OpSub                         // Sub
	OpMultiply                    // Multiply
	OpDivide                      // Divide
	OpGreater                     // Greater
	OpLess                        // Less
	OpEqual                       // Equal
	OpNot                         // Not
	OpAnd                         // And
	OpOr                          // Or
	OpCall                        // Call<argc>
	OpReturn                      // Return<n>
	OpJump                        // Jump<dest>
	OpJumpIfFalse                 // JumpIfFalse<dest>
	OpHalt                        // Halt

	maxOpcode
)

var opcodeNames = [...]string{
	OpPushImmediate: "push_immediate",
	OpNull:          "null",
	OpPop:           "pop",
	OpDefineGlobal:  "define_global",
	OpSetGlobal:     "set_global",
	OpGetGlobal:     "get_global",
	OpGetLocal:      "get_local",
	OpSetLocal:      "set_local",
	OpGetUpvalue:    "get_upvalue",
	OpSetUpvalue:    "set_upvalue",
	OpClosure:       "closure",
	OpCreateHT:      "create_ht",
	OpGetHT:         "get_ht",
	OpAdd:           "add",
	OpSub:           "sub",
	OpMultiply:      "multiply",
	OpDivide:        "divide",
	OpGreater:       "greater",
	OpLess:          "less",
	OpEqual:         "equal",
	OpNot:           "not",
	OpAnd:           "and",
	OpOr:            "or",
	OpCall:          "call",
	OpReturn:        "return",
	OpJump:          "jump",
	OpJumpIfFalse:   "jump_if_false",
	OpHalt:          "halt",
}

func (op Opcode) String() string {
	if op < maxOpcode {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}
