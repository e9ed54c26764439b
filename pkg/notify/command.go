package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/pario-ai/tokmon/pkg/config"
)

// Command runs an external program per message, appending
// "--target <target> --message <text>" to the configured arguments.
type Command struct {
	program string
	args    []string
	target  string
	timeout time.Duration
}

// NewCommand returns a command notifier.
func NewCommand(cfg config.CommandChannel) *Command {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Command{program: cfg.Program, args: cfg.Args, target: cfg.Target, timeout: timeout}
}

// Name implements Notifier.
func (c *Command) Name() string { return "command" }

// Notify implements Notifier.
func (c *Command) Notify(ctx context.Context, msg Message) error {
	if c.program == "" {
		return errors.New("command notifier: no program configured")
	}
	if c.target == "" {
		return errors.New("command notifier: no target configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := append(append([]string{}, c.args...), "--target", c.target, "--message", msg.Body)
	cmd := exec.CommandContext(ctx, c.program, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if out := strings.TrimSpace(stderr.String()); out != "" {
			return fmt.Errorf("run %s: %w: %s", c.program, err, out)
		}
		return fmt.Errorf("run %s: %w", c.program, err)
	}
	return nil
}
