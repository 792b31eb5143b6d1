package healthmonitor

import (
	"context"
	"time"

	"github.com/beevik/ntp"
	"github.com/peercoin/warnd/errors"
)

// DiskSpaceChecker reports the space available to unprivileged users on the
// filesystem holding path.
type DiskSpaceChecker interface {
	FreeBytes(path string) (uint64, error)
}

// ClockOffsetSource reports how far the local clock is from a reference.
// A positive offset means the local clock is behind.
type ClockOffsetSource interface {
	Offset(ctx context.Context) (time.Duration, error)
}

// NTPClock measures the local clock offset against an NTP server.
type NTPClock struct {
	Server  string
	Timeout time.Duration
}

func (c NTPClock) Offset(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.NewContextCanceledError("[NTPClock] query to %s cancelled", c.Server, err)
	}

	timeout := c.Timeout

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout || timeout <= 0 {
			timeout = remaining
		}
	}

	resp, err := ntp.QueryWithOptions(c.Server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return 0, errors.NewNetworkError("[NTPClock] query to %s failed", c.Server, err)
	}

	if err = resp.Validate(); err != nil {
		return 0, errors.NewNetworkError("[NTPClock] invalid response from %s", c.Server, err)
	}

	return resp.ClockOffset, nil
}
