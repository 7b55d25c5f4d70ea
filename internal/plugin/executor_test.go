package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// scriptPlugin writes a shell script plugin into a temp dir and returns it.
func scriptPlugin(t *testing.T, body string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "run.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Plugin{
		Manifest: Manifest{
			Name:       "script",
			Version:    "1.0.0",
			Executable: "run.sh",
			Actions:    []string{"set-volume"},
		},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute(t *testing.T) {
	tests := []struct {
		name        string
		script      string
		wantErr     bool
		wantSuccess bool
		wantData    string
		wantError   string
	}{
		{
			name:        "success with data",
			script:      `echo '{"success":true,"data":{"min":0,"max":100}}'`,
			wantSuccess: true,
			wantData:    `{"min":0,"max":100}`,
		},
		{
			name:      "plugin reports error",
			script:    `echo '{"success":false,"error":"no mixer"}'`,
			wantError: "no mixer",
		},
		{
			name:    "invalid json",
			script:  `echo 'volume set'`,
			wantErr: true,
		},
		{
			name:    "non-zero exit",
			script:  "echo 'mixer busy' >&2\nexit 3",
			wantErr: true,
		},
	}

	executor := NewExecutor(5 * time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scriptPlugin(t, tt.script+"\n")

			resp, err := executor.Execute(context.Background(), p, &Request{Action: "set-volume"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if resp.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", resp.Success, tt.wantSuccess)
			}
			if resp.Error != tt.wantError {
				t.Errorf("Error = %q, want %q", resp.Error, tt.wantError)
			}
			if tt.wantData != "" && string(resp.Data) != tt.wantData {
				t.Errorf("Data = %s, want %s", resp.Data, tt.wantData)
			}
		})
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	// Echo the action and params back inside data.
	p := scriptPlugin(t, `read line
printf '{"success":true,"data":%s}\n' "$line"
`)

	req := &Request{
		Action: "set-volume",
		Params: json.RawMessage(`{"level":42.5}`),
	}

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var echoed Request
	if err := json.Unmarshal(resp.Data, &echoed); err != nil {
		t.Fatalf("failed to unmarshal echoed request: %v", err)
	}
	if echoed.Action != "set-volume" {
		t.Errorf("action = %q, want set-volume", echoed.Action)
	}
	if string(echoed.Params) != `{"level":42.5}` {
		t.Errorf("params = %s, want {\"level\":42.5}", echoed.Params)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	p := scriptPlugin(t, "exec sleep 5\n")

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), p, &Request{Action: "set-volume"})

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestExecutor_CanceledContext(t *testing.T) {
	p := scriptPlugin(t, "exec sleep 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(5*time.Second).Execute(ctx, p, &Request{Action: "set-volume"})
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if errors.Is(err, ErrTimeout) {
		t.Errorf("cancellation should not be reported as timeout: %v", err)
	}
	if !strings.Contains(err.Error(), "script") {
		t.Errorf("error should name the plugin: %v", err)
	}
}
