// Package compiler implements a single-pass, Pratt-style compiler that
// turns a token stream from package scanner directly into a Program: there
// is no separate AST stage (spec.md §1 Non-goals). It tracks lexical
// scopes, local variable stack slots, and upvalue capture for closures
// while it parses, emitting control-flow jumps into reserved operand slots
// that are backpatched once their target offset is known.
//
// Grounded on the Parser/Compiler split of the teacher's
// lang/compiler/compiler.go (spawn a nested compiler per function body,
// return the mutated token cursor on completion) and on the
// resolver.Binding vocabulary (Local/Cell/Free/Global) of
// lang/resolver/binding.go, adapted from a separate-AST-plus-resolver
// pipeline to a single emit-while-parsing pass, as spec.md requires.
package compiler

import (
	"errors"
	"strconv"

	"github.com/mna/ely/internal/diag"
	"github.com/mna/ely/lang/scanner"
	"github.com/mna/ely/lang/token"
)

// precedence levels, ascending, per spec.md §4.2.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precEquality
	precLogical
	precComparison
	precSum
	precProduct
	precUnary
	precCall
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

var rules map[token.Token]parseRule

func init() {
	rules = map[token.Token]parseRule{
		token.NUMBER:   {prefix: (*Compiler).number},
		token.IDENT:    {prefix: (*Compiler).identifier},
		token.STRING:   {prefix: (*Compiler).literal},
		token.TRUE:     {prefix: (*Compiler).literal},
		token.FALSE:    {prefix: (*Compiler).literal},
		token.NOT:      {prefix: (*Compiler).unary, prec: precUnary},
		token.FUNCTION:  {prefix: (*Compiler).functionExpr},
		token.LPAREN:   {prefix: (*Compiler).grouping, infix: (*Compiler).call, prec: precCall},
		token.LBRACK:   {prefix: (*Compiler).list, infix: (*Compiler).subscript, prec: precCall},
		token.LBRACE:   {prefix: (*Compiler).hashTable, prec: precCall},
		token.EQEQ:     {infix: (*Compiler).binary, prec: precEquality},
		token.BANGEQ:   {infix: (*Compiler).binary, prec: precEquality},
		token.AND:      {infix: (*Compiler).binary, prec: precLogical},
		token.OR:       {infix: (*Compiler).binary, prec: precLogical},
		token.GT:       {infix: (*Compiler).binary, prec: precComparison},
		token.LT:       {infix: (*Compiler).binary, prec: precComparison},
		token.PLUS:     {infix: (*Compiler).binary, prec: precSum},
		token.MINUS:    {infix: (*Compiler).binary, prec: precSum},
		token.STAR:     {infix: (*Compiler).binary, prec: precProduct},
		token.SLASH:    {infix: (*Compiler).binary, prec: precProduct},
		token.EQ:       {prec: precAssignment},
	}
}

// local records one compile-time local variable: its name, the lexical
// scope depth it was declared at, its stack slot, and whether any nested
// function captures it as an upvalue.
type local struct {
	name       string
	depth      int
	slot       int
	isCaptured bool
}

// funcState holds the compiler state for one function body (or the
// top-level script), grounded on the teacher's fcomp. Nested function
// bodies get their own funcState linked to the enclosing one via
// `enclosing`, mirroring spec.md's "nested compilers borrow the lexer and
// current/previous token state from their enclosing compiler".
type funcState struct {
	enclosing *funcState

	name       string
	scopeDepth int
	locals     []local
	upvalues   []UpvalueDesc
	program    Program

	// break-jump bookkeeping: one entry per currently open while loop in
	// this function, pushed/popped as whileStatement is entered/exited, so
	// that a `break` resolves to the innermost enclosing loop.
	breakJumps      [][]int
	loopScopeDepths []int
}

// Compiler is the single-pass Pratt parser/emitter. It owns the token
// cursor (scanner plus one token of lookahead, needed only to distinguish
// a statement-level function declaration from an expression-level
// anonymous function) and the chain of funcStates for the function
// currently being compiled.
type Compiler struct {
	scanner *scanner.Scanner
	src     string
	sink    diag.Sink

	prev, cur token.Value
	peeked    *token.Value

	fs       *funcState
	hadError bool
}

// Compile compiles src into a Program. If any statement-level error is
// recorded during compilation, Compile reports each one to sink (if
// non-nil) and returns a non-nil error; the returned Program is nil in
// that case, per spec.md §7 ("At end of compilation, if any error was
// recorded, compile itself fails").
func Compile(src string, sink diag.Sink) (Program, error) {
	c := &Compiler{scanner: scanner.New(src), src: src, sink: sink}
	c.fs = &funcState{name: "<script>"}

	c.guarded(func() { c.advance() })
	for !c.check(token.EOF) {
		c.guarded(c.statement)
	}
	c.emit(OpHalt)

	if c.hadError {
		return nil, errors.New("compilation failed")
	}
	return c.fs.program, nil
}

// guarded runs fn, recovering from a *diag.Fatal panic by recording the
// error, reporting it to the sink, and synchronising to the next statement
// boundary (spec.md §4.2/§7). Any other panic value propagates normally.
func (c *Compiler) guarded(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*diag.Fatal)
			if !ok {
				panic(r)
			}
			c.hadError = true
			if c.sink != nil {
				c.sink.Report(f, c.src)
			}
			c.synchronize()
		}
	}()
	fn()
}

// synchronize advances past tokens until it reaches a statement-start
// keyword or past a `do`/`then`, per spec.md §4.2.
func (c *Compiler) synchronize() {
	for !c.check(token.EOF) {
		switch c.prev.Tok {
		case token.DO, token.THEN:
			return
		}
		switch c.cur.Tok {
		case token.VAR, token.WHILE, token.IF, token.FUNCTION, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- token cursor -----------------------------------------------------

func (c *Compiler) advance() {
	c.prev = c.cur
	if c.peeked != nil {
		c.cur = *c.peeked
		c.peeked = nil
		return
	}
	c.cur = c.scanner.Next()
}

func (c *Compiler) peekNext() token.Value {
	if c.peeked == nil {
		v := c.scanner.Next()
		c.peeked = &v
	}
	return *c.peeked
}

func (c *Compiler) check(t token.Token) bool { return c.cur.Tok == t }

func (c *Compiler) match(t token.Token) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) expect(t token.Token, msg string) {
	if !c.check(t) {
		diag.Raise(diag.ParseError, c.cur.Line, 1, "%s (got %s)", msg, c.cur.Tok)
	}
	c.advance()
}

// --- emission -----------------------------------------------------------

func (c *Compiler) emit(op Opcode, operands ...any) int {
	pos := len(c.fs.program)
	c.fs.program = append(c.fs.program, op)
	c.fs.program = append(c.fs.program, operands...)
	return pos
}

// emitJump emits op followed by a placeholder operand and returns the
// operand's index in the program so it can be backpatched once the jump
// target is known (spec.md §9: "reserve a placeholder operand, record its
// offset, and patch it once the target is known").
func (c *Compiler) emitJump(op Opcode) int {
	c.fs.program = append(c.fs.program, op, -1)
	return len(c.fs.program) - 1
}

func (c *Compiler) patchJump(operand int) {
	c.fs.program[operand] = len(c.fs.program)
}

// --- scopes and locals ---------------------------------------------------

func (c *Compiler) beginScope() { c.fs.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fs.scopeDepth--
	for len(c.fs.locals) > 0 && c.fs.locals[len(c.fs.locals)-1].depth > c.fs.scopeDepth {
		c.emit(OpPop)
		c.fs.locals = c.fs.locals[:len(c.fs.locals)-1]
	}
}

func (c *Compiler) declareLocal(name string) int {
	slot := len(c.fs.locals)
	c.fs.locals = append(c.fs.locals, local{name: name, depth: c.fs.scopeDepth, slot: slot})
	return slot
}

func (c *Compiler) resolveLocalIndex(fs *funcState, name string) (int, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return i, true
		}
	}
	return -1, false
}

// resolveUpvalue implements spec.md §4.2's identifier resolution steps 2:
// walk enclosing compilers, marking a resolved local as captured and
// threading an upvalue descriptor through any intermediate frames.
func (c *Compiler) resolveUpvalue(fs *funcState, name string) (int, bool) {
	if fs.enclosing == nil {
		return 0, false
	}
	if i, ok := c.resolveLocalIndex(fs.enclosing, name); ok {
		fs.enclosing.locals[i].isCaptured = true
		return c.addUpvalue(fs, fs.enclosing.locals[i].slot, true), true
	}
	if idx, ok := c.resolveUpvalue(fs.enclosing, name); ok {
		return c.addUpvalue(fs, idx, false), true
	}
	return 0, false
}

func (c *Compiler) addUpvalue(fs *funcState, index int, isLocal bool) int {
	for i, uv := range fs.upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}
	fs.upvalues = append(fs.upvalues, UpvalueDesc{Index: index, IsLocal: isLocal})
	return len(fs.upvalues) - 1
}

// resolveVariable implements the innermost-wins resolution order of
// spec.md §4.2: local, then upvalue chain, then global.
func (c *Compiler) resolveVariable(name string) (getOp, setOp Opcode, operand any) {
	if i, ok := c.resolveLocalIndex(c.fs, name); ok {
		return OpGetLocal, OpSetLocal, c.fs.locals[i].slot
	}
	if idx, ok := c.resolveUpvalue(c.fs, name); ok {
		return OpGetUpvalue, OpSetUpvalue, idx
	}
	return OpGetGlobal, OpSetGlobal, name
}

// --- statements -----------------------------------------------------------

func (c *Compiler) statement() {
	switch {
	case c.check(token.VAR):
		c.varDeclaration()
	case c.check(token.WHILE):
		c.whileStatement()
	case c.check(token.IF):
		c.ifStatement()
	case c.check(token.FUNCTION) && c.peekNext().Tok == token.IDENT:
		c.funcDeclaration()
	case c.check(token.RETURN):
		c.returnStatement()
	case c.check(token.BREAK):
		c.breakStatement()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) blockUntil(terminators ...token.Token) {
	for !c.atAny(terminators) && !c.check(token.EOF) {
		c.guarded(c.statement)
	}
}

func (c *Compiler) atAny(toks []token.Token) bool {
	for _, t := range toks {
		if c.check(t) {
			return true
		}
	}
	return false
}

func (c *Compiler) varDeclaration() {
	c.advance() // 'var'
	c.expect(token.IDENT, "expected variable name")
	name := c.prev.Lit

	if c.match(token.EQ) {
		c.expression(precAssignment)
	} else {
		c.emit(OpNull)
	}

	if c.fs.scopeDepth == 0 {
		c.emit(OpDefineGlobal, name)
	} else {
		c.declareLocal(name)
	}
}

func (c *Compiler) whileStatement() {
	c.advance() // 'while'
	loopStart := len(c.fs.program)
	c.expression(precAssignment)
	exitJump := c.emitJump(OpJumpIfFalse)
	c.expect(token.DO, "expected 'do' after while condition")

	c.beginScope()
	c.fs.breakJumps = append(c.fs.breakJumps, nil)
	c.fs.loopScopeDepths = append(c.fs.loopScopeDepths, c.fs.scopeDepth)

	c.blockUntil(token.END)
	c.endScope()
	c.expect(token.END, "expected 'end' after while body")

	c.emit(OpJump, loopStart)
	c.patchJump(exitJump)

	n := len(c.fs.breakJumps) - 1
	breaks := c.fs.breakJumps[n]
	c.fs.breakJumps = c.fs.breakJumps[:n]
	c.fs.loopScopeDepths = c.fs.loopScopeDepths[:n]
	for _, j := range breaks {
		c.patchJump(j)
	}
}

func (c *Compiler) breakStatement() {
	line := c.cur.Line
	c.advance() // 'break'
	if len(c.fs.breakJumps) == 0 {
		diag.Raise(diag.ParseError, line, 1, "'break' outside of a loop")
	}

	loopDepth := c.fs.loopScopeDepths[len(c.fs.loopScopeDepths)-1]
	for i := len(c.fs.locals) - 1; i >= 0 && c.fs.locals[i].depth >= loopDepth; i-- {
		c.emit(OpPop)
	}

	j := c.emitJump(OpJump)
	top := len(c.fs.breakJumps) - 1
	c.fs.breakJumps[top] = append(c.fs.breakJumps[top], j)
}

func (c *Compiler) ifStatement() {
	c.advance() // 'if'
	c.ifBody()
}

func (c *Compiler) ifBody() {
	c.expression(precAssignment)
	c.expect(token.THEN, "expected 'then' after if condition")
	thenJump := c.emitJump(OpJumpIfFalse)

	c.beginScope()
	c.blockUntil(token.ELSEIF, token.ELSE, token.END)
	c.endScope()

	switch {
	case c.check(token.ELSEIF):
		endJump := c.emitJump(OpJump)
		c.patchJump(thenJump)
		c.advance() // 'elseif'
		c.ifBody()
		c.patchJump(endJump)
	case c.check(token.ELSE):
		endJump := c.emitJump(OpJump)
		c.patchJump(thenJump)
		c.advance() // 'else'
		c.beginScope()
		c.blockUntil(token.END)
		c.endScope()
		c.expect(token.END, "expected 'end' after if statement")
		c.patchJump(endJump)
	default:
		c.patchJump(thenJump)
		c.expect(token.END, "expected 'end' after if statement")
	}
}

func (c *Compiler) funcDeclaration() {
	c.advance() // 'function'
	c.expect(token.IDENT, "expected function name")
	name := c.prev.Lit

	// Pre-declare the local slot so a local function can recurse; a global
	// function recurses naturally at runtime via a late-bound GetGlobal.
	isLocal := c.fs.scopeDepth > 0
	if isLocal {
		c.declareLocal(name)
	}

	fn := c.functionBody(name)
	c.emitClosure(fn)

	if !isLocal {
		c.emit(OpDefineGlobal, name)
	}
}

func (c *Compiler) functionExpr(canAssign bool) {
	fn := c.functionBody("")
	c.emitClosure(fn)
}

// functionBody parses a parameter list and a body up to `end`, compiling
// into a fresh funcState, and returns the resulting Funcode. Grounded on
// spec.md §4.2: "Function compilers begin with scope depth 1, reserve slot
// 0 for the function itself on the stack, then claim consecutive slots for
// parameters."
func (c *Compiler) functionBody(name string) *Funcode {
	parent := c.fs
	c.fs = &funcState{enclosing: parent, name: name, scopeDepth: 1}
	c.fs.locals = append(c.fs.locals, local{name: "", depth: 1, slot: 0})

	c.expect(token.LPAREN, "expected '(' after function name")
	arity := 0
	if !c.check(token.RPAREN) {
		for {
			c.expect(token.IDENT, "expected parameter name")
			c.declareLocal(c.prev.Lit)
			arity++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.expect(token.RPAREN, "expected ')' after parameters")

	c.blockUntil(token.END)
	c.expect(token.END, "expected 'end' after function body")

	// implicit `return` at the end of every function body (spec.md §4.2).
	c.emit(OpReturn, 0)

	fn := &Funcode{
		Name:         name,
		Arity:        arity,
		Body:         c.fs.program,
		UpvalueCount: len(c.fs.upvalues),
		Upvalues:     c.fs.upvalues,
	}
	c.fs = parent
	return fn
}

func (c *Compiler) emitClosure(fn *Funcode) {
	c.emit(OpClosure, fn)
	for _, uv := range fn.Upvalues {
		c.fs.program = append(c.fs.program, uv.IsLocal, uv.Index)
	}
}

// atImplicitReturnBoundary decides the Open Question spec.md §9 flags
// ("an empty return cannot be distinguished from return expr"): a `return`
// immediately followed by a block terminator or another statement-start
// keyword is treated as a bare `return` (n=0), per the spec's own
// recommendation.
func (c *Compiler) atImplicitReturnBoundary() bool {
	switch c.cur.Tok {
	case token.END, token.ELSE, token.ELSEIF, token.EOF,
		token.VAR, token.WHILE, token.IF, token.FUNCTION, token.RETURN, token.BREAK:
		return true
	}
	return false
}

func (c *Compiler) returnStatement() {
	line := c.cur.Line
	c.advance() // 'return'
	if c.fs.enclosing == nil {
		diag.Raise(diag.ParseError, line, 1, "'return' outside of a function")
	}
	if c.atImplicitReturnBoundary() {
		c.emit(OpReturn, 0)
		return
	}
	c.expression(precAssignment)
	c.emit(OpReturn, 1)
}

func (c *Compiler) expressionStatement() {
	c.expression(precAssignment)
}

// --- expressions ------------------------------------------------------

// expression implements Pratt precedence climbing exactly as spec.md §4.2
// describes it.
func (c *Compiler) expression(prec precedence) {
	c.advance()
	rule, ok := rules[c.prev.Tok]
	if !ok || rule.prefix == nil {
		diag.Raise(diag.ParseError, c.prev.Line, 1, "unexpected token %s", c.prev.Tok)
	}
	canAssign := prec <= precAssignment
	rule.prefix(c, canAssign)

	for {
		nr, ok := rules[c.cur.Tok]
		if !ok || nr.infix == nil || nr.prec < prec {
			break
		}
		c.advance()
		rules[c.prev.Tok].infix(c, canAssign)
	}

	if canAssign && c.check(token.EQ) {
		diag.Raise(diag.ParseError, c.cur.Line, 1, "invalid assignment target")
	}
}

func (c *Compiler) number(canAssign bool) {
	v, err := strconv.ParseFloat(c.prev.Lit, 64)
	if err != nil {
		diag.Raise(diag.ParseError, c.prev.Line, 1, "invalid number literal %q", c.prev.Lit)
	}
	c.emit(OpPushImmediate, v)
}

func (c *Compiler) literal(canAssign bool) {
	switch c.prev.Tok {
	case token.STRING:
		c.emit(OpPushImmediate, c.prev.Lit)
	case token.TRUE:
		c.emit(OpPushImmediate, true)
	case token.FALSE:
		c.emit(OpPushImmediate, false)
	}
}

func (c *Compiler) identifier(canAssign bool) {
	name := c.prev.Lit
	getOp, setOp, operand := c.resolveVariable(name)

	if canAssign && c.match(token.EQ) {
		c.expression(precAssignment)
		c.emit(setOp, operand)
		return
	}
	c.emit(getOp, operand)
}

func (c *Compiler) unary(canAssign bool) {
	c.expression(precUnary)
	c.emit(OpNot)
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression(precAssignment)
	c.expect(token.RPAREN, "expected ')' after expression")
}

func (c *Compiler) list(canAssign bool) {
	n := 0
	if !c.check(token.RBRACK) {
		for {
			c.emit(OpPushImmediate, strconv.Itoa(n))
			c.expression(precAssignment)
			n++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.expect(token.RBRACK, "expected ']' after list elements")
	c.emit(OpCreateHT, n)
}

func (c *Compiler) hashTable(canAssign bool) {
	n := 0
	if !c.check(token.RBRACE) {
		for {
			c.expect(token.STRING, "expected string key in hash-table literal")
			c.emit(OpPushImmediate, c.prev.Lit)
			c.expect(token.COLON, "expected ':' after hash-table key")
			c.expression(precAssignment)
			n++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.expect(token.RBRACE, "expected '}' after hash-table entries")
	c.emit(OpCreateHT, n)
}

func (c *Compiler) subscript(canAssign bool) {
	c.expression(precAssignment)
	c.expect(token.RBRACK, "expected ']' after subscript")
	c.emit(OpGetHT)
}

func (c *Compiler) call(canAssign bool) {
	argc := 0
	if !c.check(token.RPAREN) {
		for {
			c.expression(precAssignment)
			argc++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.expect(token.RPAREN, "expected ')' after arguments")
	c.emit(OpCall, argc)
}

func (c *Compiler) binary(canAssign bool) {
	opTok := c.prev.Tok
	line := c.prev.Line
	rule := rules[opTok]
	c.expression(rule.prec + 1)

	switch opTok {
	case token.PLUS:
		c.emit(OpAdd)
	case token.MINUS:
		c.emit(OpSub)
	case token.STAR:
		c.emit(OpMultiply)
	case token.SLASH:
		c.emit(OpDivide)
	case token.GT:
		c.emit(OpGreater)
	case token.LT:
		c.emit(OpLess)
	case token.EQEQ:
		c.emit(OpEqual)
	case token.BANGEQ:
		c.emit(OpEqual)
		c.emit(OpNot)
	case token.AND:
		c.emit(OpAnd)
	case token.OR:
		c.emit(OpOr)
	default:
		diag.Raise(diag.CompileError, line, 1, "internal error: unhandled binary operator %s", opTok)
	}
}
