package compose

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"reelsmith/internal/logging"
)

// Request is one transcoder invocation. Progress, when set, receives the
// output timestamp in seconds as the transcoder reports it.
type Request struct {
	Args     []string
	Progress func(seconds float64)
}

// Runner executes a transcoder invocation and returns captured diagnostics
// alongside any failure. Tests substitute a fake to exercise the engine
// without a transcoder on PATH.
type Runner interface {
	Run(ctx context.Context, req Request) (diagnostics string, err error)
}

// CLI runs ffmpeg as a subprocess.
type CLI struct {
	binary string
	logger *slog.Logger
}

// NewCLI returns a runner invoking the given ffmpeg binary.
func NewCLI(binary string, logger *slog.Logger) *CLI {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CLI{binary: binary, logger: logger}
}

// Run executes the invocation. When req.Progress is set the transcoder is
// asked to stream machine-readable progress on stdout and each out_time_us
// record is forwarded as seconds.
func (c *CLI) Run(ctx context.Context, req Request) (string, error) {
	args := req.Args
	if req.Progress != nil {
		args = append([]string{"-progress", "pipe:1", "-nostats"}, args...)
	}

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Cancel = func() error { return cmd.Process.Kill() }

	tail := &tailBuffer{limit: maxDiagnosticLen}
	cmd.Stderr = tail

	var wg sync.WaitGroup
	if req.Progress != nil {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return "", fmt.Errorf("attach progress pipe: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			scanner := bufio.NewScanner(stdout)
			for scanner.Scan() {
				if seconds, ok := parseProgressLine(scanner.Text()); ok {
					req.Progress(seconds)
				}
			}
		}()
	}

	c.logger.Debug("running transcoder",
		logging.String("binary", c.binary),
		logging.Int("args", len(args)))

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start transcoder: %w", err)
	}
	wg.Wait()
	err := cmd.Wait()
	return tail.String(), err
}

// parseProgressLine extracts the output timestamp from one key=value
// progress record. Only out_time_us is consumed; the remaining keys are
// transcoder chatter.
func parseProgressLine(line string) (float64, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found || key != "out_time_us" {
		return 0, false
	}
	micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || micros < 0 {
		return 0, false
	}
	return float64(micros) / 1e6, true
}

// tailBuffer keeps the last limit bytes written to it. Transcoder stderr is
// unbounded on long inputs; only the tail carries the failure reason.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
