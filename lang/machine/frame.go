package machine

import "github.com/mna/ely/lang/compiler"

// Frame records one in-flight call: the function name (for trace
// messages), the saved program and program counter, the stack base its
// locals are addressed relative to, the active closure (nil at the top
// level), and an optional stored return value, per spec.md §3's call
// frame data model and §GLOSSARY's Frame entry.
type Frame struct {
	name      string
	program   compiler.Program
	pc        int
	stackBase int
	closure   *Function

	result    Value
	hasResult bool
}
