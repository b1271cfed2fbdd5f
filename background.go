package zerofs

import (
	"context"
	"time"
)

// BackgroundErase performs a single reclamation step: it scans the sector
// map from erasedMax onward for the next EMPTY cell and erases it
// physically with the background hint set, matching
// zerofs_background_erase. Read mode only; a no-op (not an error) in
// write mode since erasedMax only has meaning across a read-mode epoch.
func (z *ZeroFS) BackgroundErase() error {
	if !z.IsReadOnly() {
		return nil
	}
	sm := z.sm.active()
	n := z.numberOfSectors()
	i := z.erasedMax
	for ; i < n; i++ {
		if sm[z.block(i)] == mapEmpty {
			break
		}
	}
	if i >= n {
		return nil
	}
	sec := z.block(i)
	if sm[sec] != mapEmpty {
		return nil
	}
	if err := z.flash.Erase(uint32(sec*z.cfg.SectorSize), uint32(z.cfg.SectorSize), true); err != nil {
		return wrap(err, "background erase sector %d", sec)
	}
	z.erasedMax = i + 1
	return nil
}

// RunBackgroundErase drives BackgroundErase in a loop at the given
// interval until ctx is canceled, letting a caller run opportunistic
// reclamation the way the original's background flag only hints at
// (spec §5: suspension points are exactly the flash driver entry points,
// so this loop sleeps between steps rather than blocking the instance).
func (z *ZeroFS) RunBackgroundErase(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := z.BackgroundErase(); err != nil {
				z.log.Warn("background erase failed", "err", err)
			}
		}
	}
}
