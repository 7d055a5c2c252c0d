package reservations

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const sweepLockKey = "reservations:sweep:lock"

// Sweeper runs SweepExpired on a ticker. With Rdb set, a short Redis lock
// keeps concurrent API instances from sweeping on the same tick.
type Sweeper struct {
	Service  *Service
	Rdb      *redis.Client
	Interval time.Duration
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *Sweeper) Run(ctx context.Context) error {
	if w.Interval <= 0 {
		log.Info().Msg("reservations: expiry sweeper disabled")
		return nil
	}
	log.Info().Dur("interval", w.Interval).Msg("reservations: expiry sweeper started")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reservations: expiry sweeper stopped")
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick sweeps unless another instance took the lock for this tick. The lock
// is never released; it expires after half an interval so each tick sweeps
// once across instances.
func (w *Sweeper) tick(ctx context.Context) {
	if w.Rdb != nil {
		ok, err := w.Rdb.SetNX(ctx, sweepLockKey, 1, w.Interval/2).Result()
		if err != nil {
			log.Error().Err(err).Msg("reservations: sweep lock failed, sweeping anyway")
		} else if !ok {
			w.Service.Metrics.SweepRun("skipped")
			return
		}
	}
	n, err := w.Service.SweepExpired(ctx)
	if err != nil {
		w.Service.Metrics.SweepRun("error")
		log.Error().Err(err).Msg("reservations: expiry sweep failed")
		return
	}
	w.Service.Metrics.SweepRun("ok")
	if n > 0 {
		log.Info().Int64("expired", n).Msg("reservations: expiry sweep")
	}
}
