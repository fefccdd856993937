package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/chaosbotics/chaos/pkg/telemetry"
)

var (
	sensorsInterval time.Duration
	sensorsCount    int
	sensorsJQ       string
)

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "Dump live telemetry snapshots as JSON",
	Long: `Read the chassis serial feed and print one JSON snapshot per interval.
When the serial device is absent the feed is synthetic, so this also works
on a bench.

The --jq flag filters each snapshot, e.g.:

  chaos sensors --jq '.rpm'
  chaos sensors --jq '.odometry.linear'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSensors(cmd.Context())
	},
}

func init() {
	sensorsCmd.Flags().DurationVar(&sensorsInterval, "interval", time.Second, "print interval")
	sensorsCmd.Flags().IntVar(&sensorsCount, "count", 0, "stop after this many snapshots (0 = run until interrupted)")
	sensorsCmd.Flags().StringVar(&sensorsJQ, "jq", "", "jq expression applied to each snapshot")
	rootCmd.AddCommand(sensorsCmd)
}

func runSensors(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var query *gojq.Query
	if sensorsJQ != "" {
		query, err = gojq.Parse(sensorsJQ)
		if err != nil {
			return fmt.Errorf("sensors: invalid jq expression %q: %w", sensorsJQ, err)
		}
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := telemetry.NewStore()
	reader := telemetry.NewReader(telemetry.Config{
		Port:      cfg.SerialPort,
		ForceStub: cfg.StubHardware,
	}, store, slog.Default())
	go reader.Run(ctx)

	ticker := time.NewTicker(sensorsInterval)
	defer ticker.Stop()

	printed := 0
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			line, err := renderSnapshot(store.Snapshot(), query)
			if err != nil {
				return err
			}
			fmt.Println(line)
			printed++
			if sensorsCount > 0 && printed >= sensorsCount {
				return nil
			}
		}
	}
}

// renderSnapshot marshals the snapshot, optionally piping it through the jq
// query. gojq consumes plain maps, so the snapshot takes a JSON round trip.
func renderSnapshot(snap *telemetry.Snapshot, query *gojq.Query) (string, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("sensors: encode snapshot: %w", err)
	}
	if query == nil {
		return string(raw), nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("sensors: decode snapshot: %w", err)
	}
	iter := query.Run(doc)
	v, ok := iter.Next()
	if !ok {
		return "", fmt.Errorf("sensors: jq expression returned no result")
	}
	if jqErr, ok := v.(error); ok {
		return "", fmt.Errorf("sensors: jq: %w", jqErr)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sensors: encode jq result: %w", err)
	}
	return string(out), nil
}
