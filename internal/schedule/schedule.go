package schedule

import (
	"context"
	"time"
)

// RunCron calls execute at every tick of the cron expression until ctx is
// done. Ticks are computed in UTC. A tick that arrives while execute is still
// running is skipped. The expression is validated before RunCron blocks.
func RunCron(ctx context.Context, cron string, execute func(ctx context.Context)) error {
	expr, err := parse(cron)
	if err != nil {
		return err
	}

	for {
		next := expr.Next(time.Now().UTC())
		if next.IsZero() {
			return nil
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			execute(ctx)
		}
	}
}
