package scan

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner abstracts external binary invocation so the OCR path is testable
// without tesseract installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

// Throttle bounds how many OCR processes run at once; tesseract is memory
// hungry and receipts arrive in bulk.
type Throttle struct {
	slots chan struct{}
}

func NewThrottle(max int) *Throttle {
	if max <= 0 {
		max = 1
	}
	return &Throttle{slots: make(chan struct{}, max)}
}

func (t *Throttle) Acquire() { t.slots <- struct{}{} }

func (t *Throttle) Release() { <-t.slots }
