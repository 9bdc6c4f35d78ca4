package scorer

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Command scores content by running an external program with the content on
// stdin and the base priority in REASONING_MEMORY_PRIORITY. The program must
// print a single number to stdout.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a command line on whitespace. It returns nil for an empty line.
func ParseCommand(line string) *Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return &Command{Name: fields[0], Args: fields[1:]}
}

func (c *Command) ScoreContext(ctx context.Context, content string, basePriority float64) (float64, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdin = strings.NewReader(content)
	cmd.Env = append(cmd.Environ(), "REASONING_MEMORY_PRIORITY="+strconv.FormatFloat(basePriority, 'g', -1, 64))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, errors.Wrapf(err, "run %s: %s", c.Name, strings.TrimSpace(stderr.String()))
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse output of %s", c.Name)
	}
	return v, nil
}
