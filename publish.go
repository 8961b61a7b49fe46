package inlaycore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrRunTimeout marks a document run aborted by the total-execution
// deadline. It is distinguishable from every other fatal error.
var ErrRunTimeout = errors.New("document run timed out")

// PublishAtomic writes data to a temporary file beside path and renames it
// into place, so an aborted run never leaves a partial file as the final
// artifact.
func PublishAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("staging output: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("staging output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("staging output: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("staging output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing output: %w", err)
	}
	return nil
}

// RunWithDeadline executes fn under a total-execution timeout. A timeout
// surfaces as ErrRunTimeout; fn's own error passes through unchanged. A
// zero timeout runs without a deadline.
func RunWithDeadline(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrRunTimeout, timeout)
	}
	return err
}
