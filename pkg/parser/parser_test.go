package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, src string) *Script {
	t.Helper()
	s, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return s
}

func parseOne(t *testing.T, src string) Statement {
	t.Helper()
	s := mustParse(t, src)
	if len(s.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(s.Statements))
	}
	return s.Statements[0]
}

func TestParseLaunch(t *testing.T) {
	st := parseOne(t, `launch notepad with file="notes.txt" mode=edit`)

	if st.Kind != KindLaunch || st.Name != "notepad" {
		t.Fatalf("got %s %q", st.Kind, st.Name)
	}
	if got := st.With["file"].Text; got != "notes.txt" {
		t.Errorf("file param = %q", got)
	}
	if got := st.With["mode"].Text; got != "edit" {
		t.Errorf("mode param = %q", got)
	}

	// open is an alias.
	if st := parseOne(t, "open calculator"); st.Kind != KindLaunch || st.Name != "calculator" {
		t.Errorf("open alias: got %s %q", st.Kind, st.Name)
	}
}

func TestParseSetForms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		dest string
		kind ExprKind
	}{
		{"plain number", "set $x = 5", "x", ExprRaw},
		{"binary expression", "set $x = 2 + 3", "x", ExprBinary},
		{"quoted string", `set $name = "alice"`, "name", ExprString},
		{"array literal", "set $list = [1, 2, 3]", "list", ExprArray},
		{"object literal", "set $obj = {a: 1}", "obj", ExprObject},
		{"call form", "set $sum = call add 1 2", "sum", ExprCall},
		{"call syntax", "set $sum = add(1, 2)", "sum", ExprCall},
		{"bare assignment", "$y = 7", "y", ExprRaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := parseOne(t, tt.src)
			if st.Kind != KindSet {
				t.Fatalf("kind = %s, want set", st.Kind)
			}
			if st.Dest != tt.dest {
				t.Errorf("dest = %q, want %q", st.Dest, tt.dest)
			}
			if st.Value.Kind != tt.kind {
				t.Errorf("value kind = %d, want %d", st.Value.Kind, tt.kind)
			}
		})
	}
}

func TestParseBinaryFoldsLeft(t *testing.T) {
	st := parseOne(t, "set $x = 1 + 2 + 3")

	// ((1 + 2) + 3)
	e := st.Value
	if e.Kind != ExprBinary || e.Op != "+" || e.Right.Text != "3" {
		t.Fatalf("outer expr = %+v", e)
	}
	if e.Left.Kind != ExprBinary || e.Left.Left.Text != "1" || e.Left.Right.Text != "2" {
		t.Errorf("inner expr = %+v", e.Left)
	}
}

func TestParseIfElse(t *testing.T) {
	src := `if $x == 1 then {
  print one
} else {
  print other
}`
	st := parseOne(t, src)

	if st.Kind != KindIf || st.Cond != "$x == 1" {
		t.Fatalf("got %s cond=%q", st.Kind, st.Cond)
	}
	if len(st.Body) != 1 || st.Body[0].Kind != KindPrint {
		t.Errorf("then body = %+v", st.Body)
	}
	if len(st.Else) != 1 || st.Else[0].Kind != KindPrint {
		t.Errorf("else body = %+v", st.Else)
	}
	if st.Body[0].Line != 2 || st.Else[0].Line != 4 {
		t.Errorf("body lines = %d, %d; want 2, 4", st.Body[0].Line, st.Else[0].Line)
	}
}

func TestParseLoops(t *testing.T) {
	st := parseOne(t, "loop 5 {\n  print $i\n}")
	if st.Kind != KindLoop || st.Target.Text != "5" {
		t.Errorf("loop: %s target=%q", st.Kind, st.Target.Text)
	}

	st = parseOne(t, "loop while $x < 10 {\n  set $x = $x + 1\n}")
	if st.Kind != KindWhile || st.Cond != "$x < 10" {
		t.Errorf("while: %s cond=%q", st.Kind, st.Cond)
	}

	st = parseOne(t, "foreach $item in $list {\n  print $item\n}")
	if st.Kind != KindForeach || st.Dest != "item" || st.Target.Text != "$list" {
		t.Errorf("foreach: %+v", st)
	}
}

func TestParseFunc(t *testing.T) {
	src := `func add($a, $b) {
  return $a + $b
}`
	st := parseOne(t, src)

	if st.Kind != KindFunc || st.Name != "add" {
		t.Fatalf("got %s %q", st.Kind, st.Name)
	}
	if diff := cmp.Diff([]string{"a", "b"}, st.Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	if len(st.Body) != 1 || st.Body[0].Kind != KindReturn {
		t.Errorf("body = %+v", st.Body)
	}

	// def and function are aliases.
	for _, kw := range []string{"def", "function"} {
		st := parseOne(t, kw+" f() {\n  return 1\n}")
		if st.Kind != KindFunc || st.Name != "f" {
			t.Errorf("%s alias: %s %q", kw, st.Kind, st.Name)
		}
	}
}

func TestParseTryCatch(t *testing.T) {
	src := `try {
  call risky
} catch $e {
  print $e
}`
	st := parseOne(t, src)

	if st.Kind != KindTry || st.CatchVar != "e" {
		t.Fatalf("got %s catch=%q", st.Kind, st.CatchVar)
	}
	if len(st.Body) != 1 || len(st.Else) != 1 {
		t.Errorf("bodies: try=%d catch=%d", len(st.Body), len(st.Else))
	}

	// Default catch variable.
	st = parseOne(t, "try {\n  call risky\n} catch {\n  print $error\n}")
	if st.CatchVar != "error" {
		t.Errorf("default catch var = %q, want error", st.CatchVar)
	}
}

func TestParseDialogs(t *testing.T) {
	st := parseOne(t, `confirm "Delete file?" into $answer`)
	if st.Kind != KindDialog || st.Action != "confirm" || st.Dest != "answer" {
		t.Fatalf("got %+v", st)
	}
	if st.Value.Kind != ExprString || st.Value.Text != "Delete file?" {
		t.Errorf("message = %+v", st.Value)
	}

	st = parseOne(t, `alert "Saved"`)
	if st.Kind != KindDialog || st.Action != "alert" || st.Dest != "" {
		t.Errorf("alert = %+v", st)
	}
}

func TestParseFileStatements(t *testing.T) {
	st := parseOne(t, `write "hello" to /docs/readme.txt`)
	if st.Kind != KindWrite || st.Value.Text != "hello" || st.Target.Text != "/docs/readme.txt" {
		t.Errorf("write = %+v", st)
	}

	st = parseOne(t, "read /docs/readme.txt into $content")
	if st.Kind != KindRead || st.Dest != "content" {
		t.Errorf("read = %+v", st)
	}

	if st := parseOne(t, "mkdir /docs/new"); st.Kind != KindMkdir {
		t.Errorf("mkdir kind = %s", st.Kind)
	}
	if st := parseOne(t, "rm /docs/old.txt"); st.Kind != KindDelete {
		t.Errorf("rm kind = %s", st.Kind)
	}
}

func TestParseSemicolonBlock(t *testing.T) {
	st := parseOne(t, "set $x = 1; print $x")
	if st.Kind != KindBlock || len(st.Body) != 2 {
		t.Fatalf("got %s with %d statements", st.Kind, len(st.Body))
	}
	if st.Body[0].Kind != KindSet || st.Body[1].Kind != KindPrint {
		t.Errorf("body kinds = %s, %s", st.Body[0].Kind, st.Body[1].Kind)
	}
}

func TestParseOpaqueCommand(t *testing.T) {
	st := parseOne(t, `theme:set name=midnight contrast="high def"`)
	if st.Kind != KindCommand || st.Name != "theme:set" {
		t.Fatalf("got %s %q", st.Kind, st.Name)
	}
	if st.With["name"].Text != "midnight" {
		t.Errorf("name = %+v", st.With["name"])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"if without then", "if $x {\n  print a\n}", 1},
		{"foreach without in", "foreach $x $list {\n  print $x\n}", 1},
		{"write without to", `write "a"`, 1},
		{"read without into", "read /a.txt", 1},
		{"launch without app", "launch", 1},
		{"unterminated block", "if $x then {\nprint a", 1},
		{"error line inside body", "print ok\nif $x then {\n  if $y {\n}\n}", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			if err == nil {
				t.Fatal("expected a parse error")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error type %T, want *ParseError", err)
			}
			if pe.Line != tt.line {
				t.Errorf("error line = %d, want %d (%v)", pe.Line, tt.line, pe)
			}
		})
	}
}

func TestParseWholeScriptFailsOnFirstError(t *testing.T) {
	src := strings.Join([]string{
		"print first",
		"if broken {",
		"}",
		"print never",
	}, "\n")

	if _, err := Parse(src); err == nil {
		t.Fatal("script with a malformed statement must not parse")
	}
}

func TestParseNestedBlocksKeepLineNumbers(t *testing.T) {
	src := `loop 3 {
  if $i == 1 then {
    print inner
  }
}`
	st := parseOne(t, src)
	inner := st.Body[0]
	if inner.Kind != KindIf || inner.Line != 2 {
		t.Fatalf("inner if at line %d, want 2", inner.Line)
	}
	if inner.Body[0].Line != 3 {
		t.Errorf("nested print at line %d, want 3", inner.Body[0].Line)
	}
}
