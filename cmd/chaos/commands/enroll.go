package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaosbotics/chaos/pkg/audio/fbank"
	"github.com/chaosbotics/chaos/pkg/audio/mic"
	"github.com/chaosbotics/chaos/pkg/kv"
	"github.com/chaosbotics/chaos/pkg/wakeword"
)

var (
	enrollName    string
	enrollSeconds int
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll the wake phrase",
	Long: `Record the wake phrase once and store its acoustic profile.

The daemon compares live audio against this profile, so enroll in the same
room and at the same distance from the microphone you expect to use.
Enrolling an existing name overwrites it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnroll(cmd.Context())
	},
}

func init() {
	enrollCmd.Flags().StringVar(&enrollName, "name", "", "profile name (defaults to the configured wake profile)")
	enrollCmd.Flags().IntVar(&enrollSeconds, "seconds", 2, "recording length in seconds")
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	name := enrollName
	if name == "" {
		name = cfg.WakeProfile
	}
	if enrollSeconds <= 0 {
		return fmt.Errorf("enroll: --seconds must be positive")
	}
	log := slog.Default()

	store, err := kv.NewBadger(kv.BadgerOptions{Dir: cfg.DataDir, Logger: log})
	if err != nil {
		return err
	}
	defer store.Close()

	device := mic.NewDevice(mic.DeviceConfig{
		Index:        cfg.MicIndex,
		Rate:         cfg.MicRate,
		BlockSamples: cfg.MicRate / 100,
	})
	arb, err := mic.Open(mic.Config{
		HardwareRate: cfg.MicRate,
		ModelRate:    cfg.ModelRate,
		ChunkSamples: cfg.ChunkSamples,
	}, device, log)
	if err != nil {
		return err
	}
	defer arb.Close()

	fmt.Printf("Press enter, then speak the wake phrase (%d seconds)... ", enrollSeconds)
	if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil {
		return fmt.Errorf("enroll: read stdin: %w", err)
	}

	samples, err := arb.Capture(ctx, time.Duration(enrollSeconds)*time.Second)
	if err != nil {
		return err
	}

	fbankCfg := fbank.DefaultConfig()
	fbankCfg.SampleRate = cfg.ModelRate
	profile, err := wakeword.Enroll(name, samples, cfg.ModelRate, wakeword.NewFbankEmbedder(fbankCfg))
	if err != nil {
		return err
	}
	if err := wakeword.NewProfileStore(store).Save(ctx, profile); err != nil {
		return err
	}

	fmt.Printf("Enrolled %q (%d samples at %d Hz).\n", name, len(samples), cfg.ModelRate)
	return nil
}
