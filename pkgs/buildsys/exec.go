package buildsys

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// maxDiagnostics bounds the tool output kept for error reports.
const maxDiagnostics = 64 << 10

// Runner executes toolchain commands. Output is always captured for
// diagnostics and additionally copied to Stdout when it is set.
type Runner struct {
	Stdout io.Writer
	Env    map[string]string
}

// Run runs name with args in dir and waits for it. On cancellation of ctx
// the whole process group is killed.
func (r *Runner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), r.Env)
	}
	tail := &tailBuffer{max: maxDiagnostics}
	var w io.Writer = tail
	if r.Stdout != nil {
		w = io.MultiWriter(tail, r.Stdout)
	}
	cmd.Stdout = w
	cmd.Stderr = w
	setProcessGroup(cmd)
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	out := tail.String()
	if err == nil {
		return out, nil
	}
	ee := &ExitError{Tool: name, Args: args, Code: -1, Output: out, Err: err}
	var xe *exec.ExitError
	if errors.As(err, &xe) && ctx.Err() == nil {
		ee.Code = xe.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		ee.Err = ctxErr
	}
	return out, ee
}

// MergeEnv returns base with every key in overrides replaced or appended,
// sorted by key.
func MergeEnv(base []string, overrides map[string]string) []string {
	envMap := make(map[string]string, len(base)+len(overrides))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range overrides {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + len(p) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
