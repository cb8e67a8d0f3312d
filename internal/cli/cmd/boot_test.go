package cmd_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/relayd/aegis/internal/cli/cmd"
	"github.com/relayd/aegis/internal/log"
)

func TestBootRunsFixtureWorkloadToCompletion(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	logger := log.NewFormattedLogger(&out)

	boot := cmd.Boot()

	code := boot.Run(context.Background(), nil, &out, logger)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, out.String())
	}

	if !strings.Contains(out.String(), "booted and ran") {
		t.Errorf("expected completion message, got: %s", out.String())
	}
}

func TestShellRunsFedCommands(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	logger := log.NewFormattedLogger(&out)

	sh := cmd.Shell()

	code := sh.Run(context.Background(), nil, &out, logger)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, out.String())
	}

	if !strings.Contains(out.String(), "Welcome to the aegis kernel shell") {
		t.Errorf("expected shell banner, got: %s", out.String())
	}
}

func TestInspectReportsAllocatorAndSchedulerState(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	logger := log.NewFormattedLogger(&out)

	inspect := cmd.Inspect()

	code := inspect.Run(context.Background(), nil, &out, logger)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, out.String())
	}

	if !strings.Contains(out.String(), "allocator:") || !strings.Contains(out.String(), "scheduler:") {
		t.Errorf("expected allocator and scheduler state, got: %s", out.String())
	}
}
