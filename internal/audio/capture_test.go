package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kothanote/internal/ports"
)

func TestMicCaptureStartReadAndStop(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'bangla'\nsleep 2\n")
	capture := NewMicCapture(script)

	session, err := capture.Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	buf := make([]byte, 16)
	n, readErr := session.Read(buf)
	if n <= 0 {
		t.Fatalf("expected audio bytes, got n=%d err=%v", n, readErr)
	}
	if !strings.Contains(string(buf[:n]), "bangla") {
		t.Fatalf("unexpected bytes: %q", string(buf[:n]))
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestMicCaptureStartEarlyExitIncludesStderr(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'device busy' 1>&2\nexit 1\n")
	capture := NewMicCapture(script)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := capture.Start(ctx, ports.AudioConfig{})
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if !strings.Contains(err.Error(), "device busy") {
		t.Fatalf("expected stderr detail in error, got %v", err)
	}
}

func TestMicCaptureStopIsIdempotent(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "loop.sh", "#!/usr/bin/env bash\nsleep 5\n")
	capture := NewMicCapture(script)

	session, err := capture.Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("first stop failed: %v", err)
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
}

func TestIgnoreExitStatus(t *testing.T) {
	t.Parallel()

	if got := ignoreExitStatus(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := ignoreExitStatus(&exec.ExitError{}); got != nil {
		t.Fatalf("expected exit error to be ignored, got %v", got)
	}
	plain := errors.New("plain")
	if got := ignoreExitStatus(plain); !errors.Is(got, plain) {
		t.Fatalf("expected plain error to pass through, got %v", got)
	}
}

func writeScript(t *testing.T, name, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
