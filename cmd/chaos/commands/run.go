package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaosbotics/chaos/pkg/agents"
	"github.com/chaosbotics/chaos/pkg/audio/fbank"
	"github.com/chaosbotics/chaos/pkg/audio/mic"
	"github.com/chaosbotics/chaos/pkg/audio/speaker"
	"github.com/chaosbotics/chaos/pkg/brain"
	"github.com/chaosbotics/chaos/pkg/canbus"
	"github.com/chaosbotics/chaos/pkg/kv"
	"github.com/chaosbotics/chaos/pkg/telemetry"
	"github.com/chaosbotics/chaos/pkg/tools"
	"github.com/chaosbotics/chaos/pkg/wakeword"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the robot brain",
	Long: `Run the full interaction loop: wake-phrase scanning, utterance capture,
transcription, intent classification, and plan execution or spoken replies.

Requires an enrolled wake profile (see 'chaos enroll'). With
STUB_HARDWARE=true the chassis CAN bus is replaced by a logging stub and
telemetry is synthesized, so the brain runs on any machine with a mic and
speaker.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := slog.Default()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := kv.NewBadger(kv.BadgerOptions{Dir: cfg.DataDir, Logger: log})
	if err != nil {
		return err
	}
	defer store.Close()

	profiles := wakeword.NewProfileStore(store)
	profile, err := profiles.Load(ctx, cfg.WakeProfile)
	if errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("wake profile %q is not enrolled; run 'chaos enroll --name %s' first",
			cfg.WakeProfile, cfg.WakeProfile)
	}
	if err != nil {
		return err
	}

	// Microphone: one device, arbitrated between the scanner and captures.
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

	fbankCfg := fbank.DefaultConfig()
	fbankCfg.SampleRate = cfg.ModelRate
	embedder := wakeword.NewFbankEmbedder(fbankCfg)

	scanner, err := wakeword.NewScanner(wakeword.ScannerConfig{
		Threshold:    cfg.WakeThreshold,
		WindowChunks: cfg.WakeWindow,
	}, arb, embedder, profile, log)
	if err != nil {
		return err
	}

	// Chassis.
	telStore := telemetry.NewStore()
	reader := telemetry.NewReader(telemetry.Config{
		Port:      cfg.SerialPort,
		ForceStub: cfg.StubHardware,
	}, telStore, log)

	var bus canbus.Bus
	if cfg.StubHardware {
		bus = canbus.NewStub(log)
	} else {
		bus, err = canbus.DialSocketCAN(ctx, cfg.CANInterface)
		if err != nil {
			return err
		}
	}
	defer bus.Close()

	// Models. Audio always goes through OpenAI; chat follows the configured
	// backend.
	oa, err := agents.NewOpenAI(agents.OpenAIConfig{
		APIKey:          cfg.OpenAIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		ChatModel:       cfg.ChatModel,
		TranscribeModel: cfg.TranscribeModel,
	}, log)
	if err != nil {
		return err
	}
	var (
		classifier brain.Classifier = oa
		responder  brain.Responder  = oa
		planner    brain.Planner    = oa
	)
	if cfg.LLMBackend == "genai" {
		ga, err := agents.NewGenAI(ctx, agents.GenAIConfig{
			APIKey: cfg.GeminiKey,
			Model:  cfg.GeminiModel,
		}, log)
		if err != nil {
			return err
		}
		classifier, responder, planner = ga, ga, ga
	}

	player, err := speaker.Open(speaker.Config{Rate: cfg.SpeakerRate}, log)
	if err != nil {
		return err
	}
	defer player.Close()

	b := brain.New(brain.Config{
		CaptureDuration: time.Duration(cfg.CaptureSeconds) * time.Second,
		SampleRate:      cfg.ModelRate,
	}, brain.Deps{
		Wake:        scanner.Detections(),
		Mic:         arb,
		Transcriber: oa,
		Classifier:  classifier,
		Responder:   responder,
		Planner:     planner,
		Actor:       tools.NewExecutor(bus, telStore, log),
		Speaker:     agents.NewVoice(oa, player, log),
	}, log)

	log.Info("chaos starting",
		"wake_profile", cfg.WakeProfile,
		"backend", cfg.LLMBackend,
		"stub_hardware", cfg.StubHardware)

	errCh := make(chan error, 3)
	go func() { errCh <- scanner.Run(ctx) }()
	go func() { errCh <- reader.Run(ctx) }()
	go func() { errCh <- b.Run(ctx) }()

	err = <-errCh
	stop()
	if errors.Is(err, context.Canceled) {
		log.Info("shutting down")
		return nil
	}
	return err
}
