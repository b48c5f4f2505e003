package host

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// ScriptDispatcher launches the host application's processing script for
// one model file. Dispatch is fire-and-forget: the script signals
// completion through the completion directory, not its exit code, so the
// dispatcher only confirms the process started.
type ScriptDispatcher struct {
	command string
	args    []string
}

// NewScriptDispatcher creates a dispatcher for command with the given
// argument template. Occurrences of {file} and {project} in the args are
// replaced per dispatch.
func NewScriptDispatcher(command string, args []string) *ScriptDispatcher {
	return &ScriptDispatcher{command: command, args: args}
}

// Dispatch starts the script for filePath. The returned error covers
// startup failures only; the script's outcome arrives as a signal file.
func (d *ScriptDispatcher) Dispatch(ctx context.Context, filePath, project string) error {
	args := make([]string, len(d.args))
	for i, a := range d.args {
		a = strings.ReplaceAll(a, "{file}", filePath)
		a = strings.ReplaceAll(a, "{project}", project)
		args[i] = a
	}

	cmd := exec.CommandContext(ctx, d.command, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", d.command, err)
	}

	log.Printf("host: dispatched %s (pid=%d) for %s", d.command, cmd.Process.Pid, filePath)

	// Reap in the background so the child never zombies. Exit status is
	// informational; the signal file carries the real outcome.
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("host: script for %s exited: %v", filePath, err)
		}
	}()
	return nil
}
