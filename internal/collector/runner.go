package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ALEYI17/InfraSight_avx/internal/probe"
	"github.com/ALEYI17/InfraSight_avx/pkg/logutil"
)

// RunLivenessLogger periodically logs how many cgroups and CPUs are being
// tracked and how stale the oldest freshness timestamp is, so an operator
// tailing the agent can tell it is alive without scraping it.
func RunLivenessLogger(ctx context.Context, maps *probe.Maps, interval time.Duration) {
	logger := logutil.GetLogger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, shutting down gracefully...")
			return

		case <-ticker.C:
			stalest := uint64(0)
			seen := false
			maps.LastUpdateNs.Range(func(_, v uint64) bool {
				if !seen || v < stalest {
					stalest = v
					seen = true
				}
				return true
			})

			fields := []zap.Field{
				zap.Int("tracked_cgroups", maps.AvxSwitches.Len()),
				zap.Int("cpus", maps.CPUAvx.Len()),
			}
			if seen {
				fields = append(fields, zap.Uint64("stalest_age_ns", probe.NowNanoseconds()-stalest))
			}
			logger.Info("AVX tracking liveness", fields...)
		}
	}
}
