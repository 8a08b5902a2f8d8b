// Package clipboard copies text to the OS clipboard through whichever tool
// the platform has (pbcopy, wl-copy, or xclip).
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

type tool struct {
	path string
	args []string
}

// resolveTool picks the clipboard command for goos. lookPath is injected so
// tests can simulate missing tools.
func resolveTool(goos string, lookPath func(string) (string, error)) (tool, error) {
	candidates := map[string][]tool{
		"darwin": {{path: "pbcopy"}},
		"linux": {
			{path: "wl-copy"},
			{path: "xclip", args: []string{"-selection", "clipboard"}},
		},
	}
	for _, cand := range candidates[goos] {
		if resolved, err := lookPath(cand.path); err == nil {
			return tool{path: resolved, args: cand.args}, nil
		}
	}
	return tool{}, ErrToolNotFound
}

// Copy pipes text into the platform clipboard tool.
func Copy(ctx context.Context, text string) error {
	tl, err := resolveTool(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, tl.path, tl.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("clipboard stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard tool: %w", err)
	}
	_, writeErr := stdin.Write([]byte(text))
	_ = stdin.Close()
	if writeErr != nil {
		_ = cmd.Wait()
		return fmt.Errorf("write clipboard data: %w", writeErr)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("clipboard tool failed: %w", err)
	}
	return nil
}
