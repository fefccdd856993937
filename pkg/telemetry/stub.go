package telemetry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// runSynthetic publishes plausible bench telemetry at the configured
// interval until ctx is done. The shape is deterministic (slow sinusoids on
// a phase counter) with small gaussian jitter so downstream consumers see
// live-looking values.
func (r *Reader) runSynthetic(ctx context.Context) error {
	tick := time.NewTicker(r.cfg.syntheticInterval())
	defer tick.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var phase float64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}

		phase += 0.05

		r.store.apply(SourceSynthetic, func(s *Snapshot) {
			s.IMU = IMU{
				AccelX: 0.02 * math.Sin(phase),
				AccelY: 0.02 * math.Cos(phase),
				AccelZ: 1 + jitter(rng, 0.005),
				GyroX:  jitter(rng, 0.2),
				GyroY:  jitter(rng, 0.2),
				GyroZ:  jitter(rng, 0.2),
			}
			s.Compass = Compass{
				X: 25 + jitter(rng, 0.5),
				Y: 5 + jitter(rng, 0.5),
				Z: -40 + jitter(rng, 0.5),
			}
			s.Odometry = Odometry{
				Linear:  0.2 * math.Sin(phase),
				Angular: 0.1 * math.Cos(phase),
			}
			s.RPM = RPM{
				Left:  30 + jitter(rng, 1),
				Right: 30 + jitter(rng, 1),
			}
			ranges := make([]int, 36)
			for i := range ranges {
				d := 1500 + 500*math.Sin(phase+float64(i)*math.Pi/18)
				ranges[i] = int(d + jitter(rng, 20))
			}
			s.Lidar = ranges
		})
	}
}

// jitter returns a gaussian sample clamped to ±3σ.
func jitter(rng *rand.Rand, sigma float64) float64 {
	v := rng.NormFloat64() * sigma
	return math.Max(-3*sigma, math.Min(3*sigma, v))
}
