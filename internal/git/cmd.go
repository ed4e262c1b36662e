// Package git provides a Git-library-like interface backed by shelling out
// to the git(1) CLI. All process interactions with Git go through this
// package so the rest of the core can be tested against a fake.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.abhg.dev/log/silog"
)

// execer abstracts process execution so tests can substitute a fake
// without shelling out to a real git binary.
type execer interface {
	Run(*exec.Cmd) error
	Output(*exec.Cmd) ([]byte, error)
	Start(*exec.Cmd) error
	Wait(*exec.Cmd) error
	Kill(*exec.Cmd) error
}

type realExecer struct{}

var _realExec execer = realExecer{}

func (realExecer) Run(cmd *exec.Cmd) error            { return cmd.Run() }
func (realExecer) Output(cmd *exec.Cmd) ([]byte, error) { return cmd.Output() }
func (realExecer) Start(cmd *exec.Cmd) error            { return cmd.Start() }
func (realExecer) Wait(cmd *exec.Cmd) error             { return cmd.Wait() }
func (realExecer) Kill(cmd *exec.Cmd) error             { return cmd.Process.Kill() }

// gitCmd is a fluent wrapper around exec.Cmd that captures stderr into
// returned errors and logs it at Debug level.
type gitCmd struct {
	cmd  *exec.Cmd
	wrap func(error) error
}

func newGitCmd(ctx context.Context, log *silog.Logger, args ...string) *gitCmd {
	name := "git"
	if len(args) > 0 {
		name += " " + args[0]
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stderr = &stderr

	wrap := func(err error) error {
		if err == nil {
			return nil
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			log.Debug("git command failed", "cmd", name, "stderr", msg)
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}

	return &gitCmd{cmd: cmd, wrap: wrap}
}

func (c *gitCmd) Dir(dir string) *gitCmd {
	if dir != "" {
		c.cmd.Dir = dir
	}
	return c
}

func (c *gitCmd) Stdout(w io.Writer) *gitCmd {
	c.cmd.Stdout = w
	return c
}

func (c *gitCmd) Stdin(r io.Reader) *gitCmd {
	c.cmd.Stdin = r
	return c
}

func (c *gitCmd) StdinString(s string) *gitCmd {
	return c.Stdin(strings.NewReader(s))
}

func (c *gitCmd) AppendEnv(env ...string) *gitCmd {
	if len(env) == 0 {
		return c
	}
	if c.cmd.Env == nil {
		c.cmd.Env = os.Environ()
	}
	c.cmd.Env = append(c.cmd.Env, env...)
	return c
}

func (c *gitCmd) StdoutPipe() (io.ReadCloser, error) {
	return c.cmd.StdoutPipe()
}

func (c *gitCmd) StdinPipe() (io.WriteCloser, error) {
	return c.cmd.StdinPipe()
}

func (c *gitCmd) Run(exec execer) error {
	return c.wrap(exec.Run(c.cmd))
}

func (c *gitCmd) Start(exec execer) error {
	return c.wrap(exec.Start(c.cmd))
}

func (c *gitCmd) Wait(exec execer) error {
	return c.wrap(exec.Wait(c.cmd))
}

func (c *gitCmd) Kill(exec execer) error {
	return c.cmd.Process.Kill()
}

func (c *gitCmd) Output(exec execer) ([]byte, error) {
	var stdout bytes.Buffer
	c.cmd.Stdout = &stdout
	if err := c.Run(exec); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (c *gitCmd) OutputString(exec execer) (string, error) {
	out, err := c.Output(exec)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// ErrNotExist is returned when a requested Git object or reference does
// not exist.
var ErrNotExist = errors.New("does not exist")

// isExitError reports whether err is a non-zero exit from a subprocess.
func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
