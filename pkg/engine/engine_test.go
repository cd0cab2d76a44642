package engine

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/morroware/retroscript/pkg/config"
	"github.com/morroware/retroscript/pkg/value"
)

// newTestEngine builds an engine with captured output and short
// round-trip timeouts so failure paths do not stall the suite.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, func() []string) {
	t.Helper()

	var mu sync.Mutex
	var lines []string

	cfg := config.Default()
	cfg.CommandTimeoutMS = 500
	cfg.ConfirmTimeoutMS = 500
	cfg.PromptTimeoutMS = 500

	all := append([]Option{
		WithConfig(cfg),
		WithOutput(func(s string) {
			mu.Lock()
			lines = append(lines, s)
			mu.Unlock()
		}),
	}, opts...)

	eng := New(all...)
	t.Cleanup(eng.Close)

	return eng, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string{}, lines...)
	}
}

func TestRunSimpleScript(t *testing.T) {
	eng, output := newTestEngine(t)

	res := eng.Run("set $x = 2 + 3\nprint $x", nil)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	if got := output(); len(got) != 1 || got[0] != "5" {
		t.Errorf("output %v, want [5]", got)
	}
	if v := eng.GetVariable("x"); !v.Equal(value.NewNumber(5)) {
		t.Errorf("$x = %s", value.ToString(v))
	}
}

func TestRunReturnsLastResult(t *testing.T) {
	eng, _ := newTestEngine(t)

	res := eng.Run(`func add($a, $b) {
  return $a + $b
}
call add 1 2`, nil)

	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	if !res.Value.Equal(value.NewNumber(3)) {
		t.Errorf("result = %s, want 3", value.ToString(res.Value))
	}
}

func TestParseErrorBecomesStructuredResult(t *testing.T) {
	eng, _ := newTestEngine(t)

	var mu sync.Mutex
	var reported map[string]any
	eng.Bus().On("script:error", func(_ string, p map[string]any) {
		mu.Lock()
		reported = p
		mu.Unlock()
	})

	res := eng.Run("print ok\nif broken {\n}", nil)
	if res.Success {
		t.Fatal("malformed script reported success")
	}
	if res.Line != 2 {
		t.Errorf("error line = %d, want 2", res.Line)
	}

	mu.Lock()
	defer mu.Unlock()
	if reported == nil || reported["line"] != 2 {
		t.Errorf("script:error payload = %v", reported)
	}
}

func TestRuntimeErrorCarriesStack(t *testing.T) {
	eng, _ := newTestEngine(t)

	res := eng.Run(`func boom() {
  call missing
}
call boom`, nil)

	if res.Success {
		t.Fatal("run reported success")
	}
	if len(res.Stack) != 1 || res.Stack[0] != "boom" {
		t.Errorf("stack = %v, want [boom]", res.Stack)
	}
	if !strings.Contains(res.Error, "unknown function") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestScriptTimeoutResult(t *testing.T) {
	cfg := config.Default()
	cfg.ScriptTimeoutMS = 50

	eng, _ := newTestEngine(t, WithConfig(cfg))

	start := time.Now()
	res := eng.Run("loop while true {\n  set $x = 1\n}", nil)
	elapsed := time.Since(start)

	if res.Success {
		t.Fatal("timed-out run reported success")
	}
	if !strings.Contains(res.Error, "timed out") {
		t.Errorf("error = %q", res.Error)
	}
	if elapsed > time.Second {
		t.Errorf("timeout enforcement took %v", elapsed)
	}
}

func TestScriptDrivesRegisteredCommand(t *testing.T) {
	eng, _ := newTestEngine(t)

	eng.Dispatcher().Register("app:launch", func(p map[string]any) (any, error) {
		appID, _ := p["appId"].(string)
		if appID != "notepad" {
			return nil, fmt.Errorf("unexpected app %q", appID)
		}
		return map[string]any{"appId": appID, "windowId": "w1", "success": true}, nil
	})

	res := eng.Run("launch notepad", nil)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}

	result := eng.GetVariable("result")
	if result.Kind() != value.KindObject {
		t.Fatalf("$result = %s", value.ToString(result))
	}
	if !result.Obj()["windowId"].Equal(value.NewString("w1")) {
		t.Errorf("$result = %s", value.ToString(result))
	}
}

func TestUnknownCommandIsCatchable(t *testing.T) {
	eng, output := newTestEngine(t)

	res := eng.Run(`try {
  launch ghostapp
} catch $e {
  print $e
}`, nil)

	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	got := output()
	if len(got) != 1 || !strings.Contains(got[0], "app:launch") {
		t.Errorf("output %v", got)
	}
}

func TestEmitReachesBusListeners(t *testing.T) {
	eng, _ := newTestEngine(t)

	var mu sync.Mutex
	var payload map[string]any
	eng.Bus().On("user:ready", func(_ string, p map[string]any) {
		mu.Lock()
		payload = p
		mu.Unlock()
	})

	res := eng.Run("emit user:ready level=3", nil)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}

	mu.Lock()
	defer mu.Unlock()
	if payload == nil || payload["level"] != 3.0 {
		t.Errorf("payload = %v", payload)
	}
}

func TestOnHandlerSurvivesRun(t *testing.T) {
	eng, output := newTestEngine(t)

	res := eng.Run(`on backup:done {
  print finished
}`, nil)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}

	eng.Bus().Emit("backup:done", nil)
	if got := output(); len(got) != 1 || got[0] != "finished" {
		t.Errorf("output %v, want [finished]", got)
	}
}

func TestStateQueryFunction(t *testing.T) {
	eng, output := newTestEngine(t)

	eng.Dispatcher().RegisterQuery("state", func(p map[string]any) (any, error) {
		path, _ := p["path"].(string)
		if path == "theme" {
			return "midnight", nil
		}
		return nil, fmt.Errorf("no state at %s", path)
	})

	res := eng.Run(`print getstate("theme")`, nil)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	if got := output(); len(got) != 1 || got[0] != "midnight" {
		t.Errorf("output %v, want [midnight]", got)
	}
}

func TestStopAbortsRun(t *testing.T) {
	eng, _ := newTestEngine(t, WithConfig(func() config.Config {
		cfg := config.Default()
		cfg.ScriptTimeoutMS = 0
		return cfg
	}()))

	done := make(chan Result, 1)
	go func() {
		done <- eng.Run("loop while true {\n  wait 10\n}", nil)
	}()

	time.Sleep(30 * time.Millisecond)
	eng.Stop()

	select {
	case res := <-done:
		if res.Success {
			t.Error("stopped run reported success")
		}
		if !strings.Contains(res.Error, "stopped") {
			t.Errorf("error = %q", res.Error)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not abort the run")
	}
}

func TestConcurrentRunsAreSerialized(t *testing.T) {
	eng, _ := newTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := eng.Run(fmt.Sprintf("set $v%d = %d", i, i), nil)
			if !res.Success {
				t.Errorf("run %d failed: %s", i, res.Error)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("v%d", i)
		if v := eng.GetVariable(name); !v.Equal(value.NewNumber(float64(i))) {
			t.Errorf("$%s = %s", name, value.ToString(v))
		}
	}
}

func TestSharedDispatcherAcrossEngines(t *testing.T) {
	first, firstOutput := newTestEngine(t)
	second, _ := newTestEngine(t, WithDispatcher(first.Dispatcher()))

	res := first.Run(`on shared:event {
  print from_first
}`, nil)
	if !res.Success {
		t.Fatalf("first run failed: %s", res.Error)
	}

	res = second.Run("emit shared:event", nil)
	if !res.Success {
		t.Fatalf("second run failed: %s", res.Error)
	}

	got := firstOutput()
	if len(got) != 1 || got[0] != "from_first" {
		t.Errorf("first engine output %v, want [from_first]", got)
	}
}

func TestRunContextSeedsVariables(t *testing.T) {
	eng, output := newTestEngine(t)

	res := eng.Run("print $user\nset $next = $count + 1", map[string]any{
		"user":  "ada",
		"count": 2,
	})
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	if got := output(); len(got) != 1 || got[0] != "ada" {
		t.Errorf("output %v, want [ada]", got)
	}
	if v := eng.GetVariable("next"); !v.Equal(value.NewNumber(3)) {
		t.Errorf("$next = %s", value.ToString(v))
	}
}

func TestHandlerFiredMidRunIsObserved(t *testing.T) {
	cfg := config.Default()
	cfg.ScriptTimeoutMS = 2000

	eng, output := newTestEngine(t, WithConfig(cfg))

	res := eng.Run(`on gate:open {
  set $open = true
}`, nil)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		eng.Bus().Emit("gate:open", nil)
	}()

	res = eng.Run("loop while $open != true {\n  wait 5\n}\nprint opened", nil)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	if got := output(); len(got) != 1 || got[0] != "opened" {
		t.Errorf("output %v, want [opened]", got)
	}
}

func TestHandlersSerializeWithRunningScript(t *testing.T) {
	eng, _ := newTestEngine(t)

	res := eng.Run(`on tick {
  set $ticks = $ticks + 1
}`, nil)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}

	const emits = 2000

	done := make(chan Result, 1)
	go func() {
		done <- eng.Run("set $n = 0\nloop 2000 {\n  set $n = $n + 1\n}", nil)
	}()

	for i := 0; i < emits; i++ {
		eng.Bus().Emit("tick", nil)
	}

	res = <-done
	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	if v := eng.GetVariable("ticks"); !v.Equal(value.NewNumber(emits)) {
		t.Errorf("$ticks = %s, want %d", value.ToString(v), emits)
	}
	if v := eng.GetVariable("n"); !v.Equal(value.NewNumber(2000)) {
		t.Errorf("$n = %s", value.ToString(v))
	}
}

func TestCheckDoesNotExecute(t *testing.T) {
	eng, output := newTestEngine(t)

	if err := eng.Check("print side_effect"); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got := output(); len(got) != 0 {
		t.Errorf("Check executed the script: %v", got)
	}

	if err := eng.Check("if broken {\n}"); err == nil {
		t.Error("Check accepted a malformed script")
	}
}
