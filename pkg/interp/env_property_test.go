package interp

import (
	"fmt"
	"testing"
	"testing/quick"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/morroware/retroscript/pkg/parser"
	"github.com/morroware/retroscript/pkg/value"
)

func TestEnvironmentProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("set then get returns the value", prop.ForAll(
		func(name string, n float64) bool {
			env := NewEnvironment()
			env.Set(name, value.NewNumber(n))
			got, ok := env.Get(name)
			return ok && got.Equal(value.NewNumber(n))
		},
		gen.Identifier(),
		gen.Float64(),
	))

	properties.Property("restore discards every mutation after the snapshot", prop.ForAll(
		func(name string, before, after float64) bool {
			env := NewEnvironment()
			env.Set(name, value.NewNumber(before))

			snap := env.Snapshot()
			env.Set(name, value.NewNumber(after))
			env.Set(name+"_new", value.NewNumber(after))
			env.Restore(snap)

			got, ok := env.Get(name)
			if !ok || !got.Equal(value.NewNumber(before)) {
				return false
			}
			_, leaked := env.Get(name + "_new")
			return !leaked
		},
		gen.Identifier(),
		gen.Float64(),
		gen.Float64(),
	))

	properties.Property("snapshot does not alias array values", prop.ForAll(
		func(name string, n float64) bool {
			env := NewEnvironment()
			env.Set(name, value.NewArray([]value.Value{value.NewNumber(n)}))

			snap := env.Snapshot()
			live, _ := env.Get(name)
			live.Arr()[0] = value.NewNumber(n + 1)

			return snap[name].Arr()[0].Equal(value.NewNumber(n))
		},
		gen.Identifier(),
		gen.Float64(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Dynamic scoping means a function call can never change what the
// caller observes afterwards, whatever the call body does to the
// shared names.
func TestDynamicScopeRestoreProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("caller bindings survive any call mutation", prop.ForAll(
		func(outer, inner float64) bool {
			in := New(newFakeHost())
			src := fmt.Sprintf(`func clobber() {
  set $v = %g
  return $v
}
set $v = %g
call clobber`, inner, outer)

			parsed, err := parser.Parse(src)
			if err != nil {
				return false
			}
			v, err := in.Run(parsed, nil)
			if err != nil {
				return false
			}
			if !v.Equal(value.NewNumber(inner)) {
				return false
			}
			return in.GetVariable("v").Equal(value.NewNumber(outer))
		},
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestEnvironmentQuickRoundTrip(t *testing.T) {
	f := func(name string, s string) bool {
		if name == "" {
			return true
		}
		env := NewEnvironment()
		env.Set(name, value.NewString(s))
		got, ok := env.Get(name)
		return ok && got.Equal(value.NewString(s))
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
