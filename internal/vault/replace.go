package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/wizzomafizzo/setdeck/internal/logging"
)

// replace moves tmp over dst. A failed rename falls back to copying tmp
// onto dst, retried with exponential backoff while another process holds
// dst open.
func (v *Vault) replace(ctx context.Context, tmp, dst string) error {
	log := logging.Get(ctx)
	err := v.fs.Rename(tmp, dst)
	if err == nil {
		return nil
	}
	log.Debug().Err(err).Str("bundle", dst).Msg("rename failed, falling back to copy")

	delay := v.backoff
	var lastErr error
	for attempt := 1; attempt <= v.attempts; attempt++ {
		lastErr = copyFile(v.fs, tmp, dst)
		if lastErr == nil {
			if err := v.fs.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("path", tmp).Msg("failed to remove temporary bundle")
			}
			return nil
		}
		log.Warn().Err(lastErr).
			Str("bundle", dst).
			Int("attempt", attempt).
			Int("attempts", v.attempts).
			Msg("bundle replace failed")
		if attempt == v.attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = v.fs.Remove(tmp)
			return fmt.Errorf("replace of %s cancelled: %w", dst, ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}

	_ = v.fs.Remove(tmp)
	return fmt.Errorf("%w: %s: %w", ErrBundleLocked, dst, lastErr)
}
