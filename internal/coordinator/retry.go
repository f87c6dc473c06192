package coordinator

import (
	"context"
	"fmt"
	"os"

	"github.com/cenkalti/backoff/v4"
)

// waitForAccess polls until the file can be opened for exclusive-ish
// use: a writer still streaming the file into the intake directory
// holds it open, and an open attempt that fails is retried at a fixed
// delay until the wall-clock deadline. Cancelling ctx aborts the wait.
func (c *Coordinator) waitForAccess(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AccessTimeout)
	defer cancel()

	attempt := func() error {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return err
		}
		return f.Close()
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(c.cfg.AccessRetryDelay), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		return fmt.Errorf("failed to gain access within %s: %w", c.cfg.AccessTimeout, err)
	}
	return nil
}
