package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrTimeout is returned when a plugin does not finish within the executor timeout.
var ErrTimeout = errors.New("plugin: execution timeout")

// waitDelay bounds how long a killed plugin may keep its output pipes open.
const waitDelay = 500 * time.Millisecond

// Executor runs plugins with a per-call timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates a new Executor with the given per-call timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{
		timeout: timeout,
	}
}

// Execute runs plugin with req on stdin and decodes its stdout as a Response.
// The call is bounded by both ctx and the executor timeout.
func (e *Executor) Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path
	cmd.WaitDelay = waitDelay

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}

	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("plugin %s failed: %w, stderr: %s", plugin.Manifest.Name, err, stderr.String())
		}
		return nil, fmt.Errorf("plugin %s failed: %w", plugin.Manifest.Name, err)
	}

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("parse plugin response: %w, stdout: %s", err, stdout.String())
	}

	return &response, nil
}
