// Package parser turns RetroScript source text into a tree of tagged
// statements. Parsing is line-oriented: the tokenizer folds brace
// blocks into logical lines, and each logical line is matched against
// a keyword-selected parse rule.
package parser

// Kind tags a Statement with the rule that produced it.
type Kind string

const (
	KindLaunch   Kind = "launch"
	KindClose    Kind = "close"
	KindWait     Kind = "wait"
	KindSet      Kind = "set"
	KindPrint    Kind = "print"
	KindEmit     Kind = "emit"
	KindOn       Kind = "on"
	KindIf       Kind = "if"
	KindLoop     Kind = "loop"
	KindWhile    Kind = "while"
	KindForeach  Kind = "foreach"
	KindCall     Kind = "call"
	KindReturn   Kind = "return"
	KindBreak    Kind = "break"
	KindContinue Kind = "continue"
	KindDialog   Kind = "dialog"
	KindWindow   Kind = "window"
	KindPlay     Kind = "play"
	KindWrite    Kind = "write"
	KindRead     Kind = "read"
	KindMkdir    Kind = "mkdir"
	KindDelete   Kind = "delete"
	KindFunc     Kind = "func"
	KindTry      Kind = "try"
	KindBlock    Kind = "block"
	KindCommand  Kind = "command"
)

// Statement is an immutable tagged variant. Only the fields relevant
// to its Kind are populated:
//
//	launch   Name (app id), With
//	close    Target (optional; empty means most recent window)
//	wait     Target (milliseconds)
//	set      Dest (variable name), Value
//	print    Value
//	emit     Name (event), With
//	on       Name (event), Body
//	if       Cond, Body (then), Else
//	loop     Target (count), Body
//	while    Cond, Body
//	foreach  Dest (element variable), Target (array), Body
//	call     Name (function), Args
//	return   Value (optional)
//	dialog   Action (alert|confirm|prompt|notify), Value (message), Dest
//	window   Action (focus|minimize|maximize), Target
//	play     Name (sound)
//	write    Value (content), Target (path)
//	read     Target (path), Dest (variable)
//	mkdir    Target (path)
//	delete   Target (path)
//	func     Name, Params, Body
//	try      Body, CatchVar, Else (catch body)
//	block    Body
//	command  Name, Args, With, Raw (forwarded verbatim at run time)
type Statement struct {
	Kind Kind
	Line int

	Name     string
	Action   string
	Dest     string
	CatchVar string
	Cond     string
	Raw      string

	Target Expr
	Value  Expr
	Args   []Expr
	Params []string
	With   map[string]Expr

	Body []Statement
	Else []Statement
}

// Script is a parsed program: an ordered sequence of statements.
type Script struct {
	Statements []Statement
}

// ExprKind tags an Expr with its unresolved shape. Expressions stay
// unresolved until the interpreter evaluates them against the live
// environment.
type ExprKind int

const (
	// ExprNone marks an absent operand.
	ExprNone ExprKind = iota
	// ExprString is a quoted string literal, interpolated at
	// resolution time.
	ExprString
	// ExprRaw is an unquoted token resolved by literal recognition
	// order (variable ref, number, bool, null, else opaque string).
	ExprRaw
	// ExprBinary is a binary arithmetic or concat expression.
	ExprBinary
	// ExprCall is a function call in value position.
	ExprCall
	// ExprArray is an unparsed array literal; the resolver splits it
	// with a quote- and nesting-aware splitter.
	ExprArray
	// ExprObject is an unparsed object literal.
	ExprObject
)

// Expr is an unresolved operand.
type Expr struct {
	Kind  ExprKind
	Text  string // literal text, raw token, or bracketed literal body
	Op    string
	Left  *Expr
	Right *Expr
	Name  string // call target
	Args  []Expr
}

// IsZero reports whether the expression is absent.
func (e Expr) IsZero() bool { return e.Kind == ExprNone }
