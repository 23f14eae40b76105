package crawler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// WorkerRunner launches the external crawl worker and blocks until it exits
// or the budget expires.
type WorkerRunner interface {
	Run(ctx context.Context, complexNos []string, runID string, budget time.Duration) error
}

// ProcessRunner runs the crawl worker as a child process. The worker receives
// a comma-joined target list and the run id as positional arguments; its
// stdout and stderr are streamed into our log line by line.
type ProcessRunner struct {
	command string
	script  string
}

func NewProcessRunner(command, script string) *ProcessRunner {
	return &ProcessRunner{command: command, script: script}
}

func (r *ProcessRunner) Run(ctx context.Context, complexNos []string, runID string, budget time.Duration) error {
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	args := make([]string, 0, 3)
	if r.script != "" {
		args = append(args, r.script)
	}
	args = append(args, strings.Join(complexNos, ","), runID)

	cmd := exec.CommandContext(runCtx, r.command, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("worker stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("worker stderr pipe: %w", err)
	}

	tag := runID
	if len(tag) > 8 {
		tag = tag[:8]
	}
	log.Printf("[worker %s] starting: %s %s (budget %s)", tag, r.command, strings.Join(args, " "), budget)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go streamLines(&wg, tag, "out", stdout)
	go streamLines(&wg, tag, "err", stderr)
	wg.Wait()

	waitErr := cmd.Wait()
	if runCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w after %s", ErrWorkerTimeout, budget)
	}
	if waitErr != nil {
		return fmt.Errorf("worker exited: %w", waitErr)
	}
	return nil
}

func streamLines(wg *sync.WaitGroup, tag, stream string, r io.Reader) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		log.Printf("[worker %s %s] %s", tag, stream, sc.Text())
	}
}
