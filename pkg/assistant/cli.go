package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
)

// CLI runs an external assistant command with the paper on stdin.
// one-shot questions are passed as "-p <prompt>", interactive sessions get the bare prompt.
type CLI struct {
	command string
	args    []string
	stdout  io.Writer
	stderr  io.Writer
}

// NewCLI makes a CLI backend. command may carry extra arguments, e.g. "claude --model opus"
func NewCLI(command string, stdout, stderr io.Writer) *CLI {
	fields := strings.Fields(command)
	res := &CLI{stdout: stdout, stderr: stderr}
	if len(fields) > 0 {
		res.command, res.args = fields[0], fields[1:]
	}
	return res
}

// Ask runs the command and waits for it to exit
func (c *CLI) Ask(ctx context.Context, req Request) error {
	if c.command == "" {
		return errors.New("assistant command is empty")
	}

	args := append([]string{}, c.args...)
	if req.Interactive {
		args = append(args, req.Prompt)
	} else {
		args = append(args, "-p", req.Prompt)
	}

	cmd := exec.CommandContext(ctx, c.command, args...) //nolint:gosec // command comes from config
	cmd.Stdin = strings.NewReader(req.Paper)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	log.Printf("[DEBUG] running %s with %d args, interactive %v", c.command, len(args), req.Interactive)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("assistant %s failed: %w", c.command, err)
	}
	return nil
}
