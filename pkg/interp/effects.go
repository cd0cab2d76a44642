package interp

import (
	"strings"

	"github.com/morroware/retroscript/pkg/parser"
	"github.com/morroware/retroscript/pkg/value"
)

// Collaborator command names. The interpreter only knows these
// contracts; the host decides what actually handles them.
const (
	cmdAppLaunch = "app:launch"
	cmdFSRead    = "fs:readFile"
	cmdFSWrite   = "fs:writeFile"
	cmdFSMkdir   = "fs:createDirectory"
	cmdFSRmFile  = "fs:deleteFile"
	cmdFSRmDir   = "fs:deleteDirectory"
	cmdFSGetNode = "fs:getNode"
)

func (in *Interp) execLaunch(st *parser.Statement) error {
	params, err := in.resolvePayload(st.With, st.Line)
	if err != nil {
		return err
	}
	payload := map[string]any{"appId": st.Name, "params": params}

	data, err := in.roundTrip(cmdAppLaunch, payload, st.Line)
	if err != nil {
		return err
	}

	if m, ok := data.(map[string]any); ok {
		if win, ok := m["windowId"].(string); ok {
			in.lastWindow = win
		}
	}
	in.env.Set("result", value.FromAny(data))
	return nil
}

func (in *Interp) execClose(st *parser.Statement) error {
	target := in.lastWindow
	if !st.Target.IsZero() {
		v, err := in.resolveExpr(st.Target, st.Line)
		if err != nil {
			return err
		}
		target = value.ToString(v)
	}
	if target == "" {
		return in.errorf(st.Line, "close: no window to close")
	}
	in.host.Post("window:close", map[string]any{"windowId": target})
	return nil
}

func (in *Interp) execWindow(st *parser.Statement) error {
	v, err := in.resolveExpr(st.Target, st.Line)
	if err != nil {
		return err
	}
	in.host.Post("window:"+st.Action, map[string]any{"windowId": value.ToString(v)})
	return nil
}

// execDialog runs the dialog statements. alert and notify are fire and
// forget; confirm and prompt are round trips whose timeout resolves to
// a safe default instead of an error.
func (in *Interp) execDialog(st *parser.Statement) error {
	msgVal, err := in.resolveExpr(st.Value, st.Line)
	if err != nil {
		return err
	}
	payload := map[string]any{"message": value.ToString(msgVal)}

	dest := st.Dest
	if dest == "" {
		dest = "result"
	}

	switch st.Action {
	case "alert", "notify":
		in.host.Post("dialog:"+st.Action, payload)
		return nil

	case "confirm":
		data, err := in.host.Execute("dialog:confirm", payload, in.confirmTimeout)
		if err != nil {
			in.log.Debug("confirm defaulted", "error", err)
			in.env.Set(dest, value.NewBool(false))
			return nil
		}
		in.env.Set(dest, value.NewBool(value.Truthy(value.FromAny(data))))
		return nil

	case "prompt":
		data, err := in.host.Execute("dialog:prompt", payload, in.promptTimeout)
		if err != nil {
			in.log.Debug("prompt defaulted", "error", err)
			in.env.Set(dest, value.Null)
			return nil
		}
		in.env.Set(dest, value.FromAny(data))
		return nil

	default:
		return in.errorf(st.Line, "unknown dialog action: %s", st.Action)
	}
}

func (in *Interp) execWrite(st *parser.Statement) error {
	content, err := in.resolveExpr(st.Value, st.Line)
	if err != nil {
		return err
	}
	path, err := in.resolvePath(st.Target, st.Line)
	if err != nil {
		return err
	}

	_, err = in.roundTrip(cmdFSWrite, map[string]any{
		"path":    path,
		"content": value.ToString(content),
	}, st.Line)
	return err
}

func (in *Interp) execRead(st *parser.Statement) error {
	path, err := in.resolvePath(st.Target, st.Line)
	if err != nil {
		return err
	}

	data, err := in.roundTrip(cmdFSRead, map[string]any{"path": path}, st.Line)
	if err != nil {
		return err
	}

	// File store handlers answer either the raw content or a node map.
	if m, ok := data.(map[string]any); ok {
		if content, ok := m["content"]; ok {
			in.env.Set(st.Dest, value.FromAny(content))
			return nil
		}
	}
	in.env.Set(st.Dest, value.FromAny(data))
	return nil
}

func (in *Interp) execMkdir(st *parser.Statement) error {
	path, err := in.resolvePath(st.Target, st.Line)
	if err != nil {
		return err
	}
	_, err = in.roundTrip(cmdFSMkdir, map[string]any{"path": path}, st.Line)
	return err
}

// execDelete looks the node up first so files and directories go
// through their own removal commands.
func (in *Interp) execDelete(st *parser.Statement) error {
	path, err := in.resolvePath(st.Target, st.Line)
	if err != nil {
		return err
	}

	node, err := in.roundTrip(cmdFSGetNode, map[string]any{"path": path}, st.Line)
	if err != nil {
		return err
	}

	cmd := cmdFSRmFile
	if m, ok := node.(map[string]any); ok {
		if t, _ := m["type"].(string); t == "directory" {
			cmd = cmdFSRmDir
		}
	}
	_, err = in.roundTrip(cmd, map[string]any{"path": path}, st.Line)
	return err
}

// execCommand forwards an unrecognized statement to dispatch verbatim.
// Two names are intercepted as language built-ins: throw raises a
// script error, assert raises one when its condition is false.
func (in *Interp) execCommand(st *parser.Statement) error {
	switch strings.ToLower(st.Name) {
	case "throw", "error":
		msg := strings.TrimSpace(strings.TrimPrefix(st.Raw, st.Name))
		msgVal, err := in.resolveExpr(parser.ParseValue(msg), st.Line)
		if err != nil {
			return err
		}
		text := value.ToString(msgVal)
		if text == "" || text == "null" {
			text = "script error"
		}
		return in.errorf(st.Line, "%s", text)

	case "assert":
		cond := strings.TrimSpace(strings.TrimPrefix(st.Raw, st.Name))
		ok, err := in.evalCond(cond, st.Line)
		if err != nil {
			return err
		}
		if !ok {
			return in.errorf(st.Line, "assertion failed: %s", cond)
		}
		return nil
	}

	payload, err := in.resolvePayload(st.With, st.Line)
	if err != nil {
		return err
	}
	if len(st.Args) > 0 {
		args := make([]any, 0, len(st.Args))
		for _, a := range st.Args {
			v, err := in.resolveExpr(a, st.Line)
			if err != nil {
				return err
			}
			args = append(args, value.ToAny(v))
		}
		payload["args"] = args
	}

	in.host.Post(st.Name, payload)
	return nil
}

// roundTrip executes a command and converts any failure into a script
// error tagged with the statement line.
func (in *Interp) roundTrip(name string, payload map[string]any, line int) (any, error) {
	data, err := in.host.Execute(name, payload, in.commandTimeout)
	if err != nil {
		return nil, in.errorf(line, "%s failed: %v", name, err)
	}
	return data, nil
}

// resolvePath resolves a path operand into its ordered segments, the
// shape the file store contract expects.
func (in *Interp) resolvePath(e parser.Expr, line int) ([]any, error) {
	v, err := in.resolveExpr(e, line)
	if err != nil {
		return nil, err
	}

	if v.Kind() == value.KindArray {
		segs := make([]any, 0, len(v.Arr()))
		for _, elem := range v.Arr() {
			segs = append(segs, value.ToString(elem))
		}
		return segs, nil
	}

	var segs []any
	for _, part := range strings.Split(value.ToString(v), "/") {
		if part != "" {
			segs = append(segs, part)
		}
	}
	return segs, nil
}
