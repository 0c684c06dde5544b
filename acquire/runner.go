package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/glasspane/glasspane/log"
)

// Runner executes an external tool and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError is a tool that exited unsuccessfully.
type CommandError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *CommandError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Name, e.Code, detail)
}

// ExecRunner runs tools as child processes in their own process group, so cancelling
// the context also stops anything they spawned.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Cancel = func() error { return killProcess(cmd) }

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debugf("running %s %s", name, strings.Join(args, " "))
	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), &CommandError{Name: name, Code: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return nil, err
}

// Available reports whether a tool is on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func stderrOf(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && strings.TrimSpace(cmdErr.Stderr) != "" {
		return strings.TrimSpace(cmdErr.Stderr)
	}
	return err.Error()
}
