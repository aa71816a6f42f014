package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Runner executes the external text tools. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

const maxLoggedStderr = 8 << 10

// CommandError reports a tool that could not be started or exited non-zero.
type CommandError struct {
	Tool     string
	ExitCode int // -1 when the process never ran
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	attrs := []any{"tool", name, "args", args, "elapsed_ms", time.Since(start).Milliseconds()}

	if err == nil {
		r.logger.Debug("ocr.exec.ok", append(attrs, "stdout_bytes", stdout.Len())...)
		return stdout.Bytes(), stderr.Bytes(), nil
	}

	cerr := &CommandError{Tool: name, ExitCode: -1, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	msg := stderr.String()
	if len(msg) > maxLoggedStderr {
		msg = msg[:maxLoggedStderr] + "...(truncated)"
	}
	r.logger.Error("ocr.exec.failed", append(attrs, "exit_code", cerr.ExitCode, "error", err, "stderr", msg)...)
	return stdout.Bytes(), stderr.Bytes(), cerr
}
