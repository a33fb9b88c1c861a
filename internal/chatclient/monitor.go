package chatclient

import (
	"context"
	"sync"
	"time"
)

// DefaultMonitorInterval is how often a disconnected client re-checks health.
const DefaultMonitorInterval = 30 * time.Second

// MonitorConnection starts a background loop that calls CheckHealth every
// interval while the client is disconnected. The loop ends when ctx is done
// or stop is called. stop is idempotent and returns only after the loop has
// exited, so no health check runs once it returns.
func (c *Client) MonitorConnection(ctx context.Context, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.logger.Debug("Connection monitor started", "interval", interval)
		for {
			select {
			case <-ctx.Done():
				c.logger.Debug("Connection monitor stopped", "reason", ctx.Err())
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				if c.State().Connected {
					continue
				}
				healthy := c.probeHealth(ctx)
				// A probe cut short by stop says nothing about the service.
				if ctx.Err() != nil {
					return
				}
				c.setConnected(healthy)
				if healthy {
					c.logger.Info("Chat service reachable again")
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
