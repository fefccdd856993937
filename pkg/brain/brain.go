// Package brain runs the robot's interaction loop.
//
// One interaction cycle is: wait for the wake phrase, capture an utterance,
// transcribe it, classify the intent, then either execute a movement plan or
// produce a conversational reply, and finally speak the result. The loop is
// strictly sequential: the robot does one thing at a time, and a failure in
// any phase abandons the cycle and returns to listening instead of crashing
// the daemon.
package brain

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chaosbotics/chaos/pkg/tools"
	"github.com/chaosbotics/chaos/pkg/wakeword"
)

// Intent is the classified disposition of an utterance.
type Intent string

const (
	// IntentAction means the user asked the robot to do something physical.
	IntentAction Intent = "action"
	// IntentConversation means the user wants a spoken reply.
	IntentConversation Intent = "conversation"
)

// Capturer records a fixed-duration utterance from the microphone.
type Capturer interface {
	Capture(ctx context.Context, d time.Duration) ([]float32, error)
}

// Transcriber converts model-rate samples to text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

// Classifier decides whether an utterance asks for action or conversation.
type Classifier interface {
	Classify(ctx context.Context, transcript string) (Intent, error)
}

// Responder produces a conversational reply.
type Responder interface {
	Respond(ctx context.Context, transcript string) (string, error)
}

// Planner turns an actionable utterance into a movement plan.
type Planner interface {
	Plan(ctx context.Context, transcript string) (*tools.Plan, error)
}

// Actor executes a plan and reports a spoken summary. Satisfied by
// tools.Executor.
type Actor interface {
	Execute(ctx context.Context, plan *tools.Plan) (string, error)
}

// Speaker voices text on the robot's output device.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// Config tunes the interaction loop.
type Config struct {
	// CaptureDuration is how long to record after a wake detection.
	// Defaults to 3s.
	CaptureDuration time.Duration
	// SampleRate is the model rate of captured audio.
	SampleRate int
}

func (c *Config) captureDuration() time.Duration {
	if c.CaptureDuration > 0 {
		return c.CaptureDuration
	}
	return 3 * time.Second
}

// Brain wires the collaborators into the interaction loop.
type Brain struct {
	cfg  Config
	wake <-chan wakeword.Detection
	mic  Capturer
	stt  Transcriber
	cls  Classifier
	resp Responder
	plan Planner
	act  Actor
	say  Speaker
	log  *slog.Logger
}

// Deps are the brain's collaborators. All fields are required.
type Deps struct {
	Wake        <-chan wakeword.Detection
	Mic         Capturer
	Transcriber Transcriber
	Classifier  Classifier
	Responder   Responder
	Planner     Planner
	Actor       Actor
	Speaker     Speaker
}

// New creates a brain over its collaborators.
func New(cfg Config, deps Deps, log *slog.Logger) *Brain {
	if log == nil {
		log = slog.Default()
	}
	return &Brain{
		cfg:  cfg,
		wake: deps.Wake,
		mic:  deps.Mic,
		stt:  deps.Transcriber,
		cls:  deps.Classifier,
		resp: deps.Responder,
		plan: deps.Planner,
		act:  deps.Actor,
		say:  deps.Speaker,
		log:  log.With("component", "brain"),
	}
}

// Run executes interaction cycles until ctx is done.
func (b *Brain) Run(ctx context.Context) error {
	b.log.Info("listening for wake phrase")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case det := <-b.wake:
			b.cycle(ctx, det)
		}
	}
}

// cycle runs one interaction from wake to speech. Every failure path logs
// and returns so the loop goes back to listening.
func (b *Brain) cycle(ctx context.Context, det wakeword.Detection) {
	log := b.log.With("cycle", uuid.NewString()[:8])
	log.Info("wake detected", "score", det.Score)

	samples, err := b.mic.Capture(ctx, b.cfg.captureDuration())
	if err != nil {
		log.Error("capture failed", "error", err)
		return
	}

	transcript, err := b.stt.Transcribe(ctx, samples, b.cfg.SampleRate)
	if err != nil {
		log.Error("transcription failed", "error", err)
		return
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		log.Info("heard nothing, back to listening")
		return
	}
	log.Info("heard", "transcript", transcript)

	intent, err := b.cls.Classify(ctx, transcript)
	if err != nil {
		log.Error("classification failed", "error", err)
		return
	}
	log.Info("classified", "intent", intent)

	var reply string
	switch intent {
	case IntentAction:
		reply = b.actOn(ctx, log, transcript)
	default:
		reply, err = b.resp.Respond(ctx, transcript)
		if err != nil {
			log.Error("response failed", "error", err)
			return
		}
	}
	if reply == "" {
		return
	}
	if err := b.say.Say(ctx, reply); err != nil {
		log.Error("speech failed", "error", err)
	}
}

// actOn plans and executes, returning the spoken summary. An empty return
// means the cycle is abandoned.
func (b *Brain) actOn(ctx context.Context, log *slog.Logger, transcript string) string {
	plan, err := b.plan.Plan(ctx, transcript)
	if err != nil {
		log.Error("planning failed", "error", err)
		return ""
	}
	log.Info("plan ready", "steps", len(plan.Steps))

	summary, err := b.act.Execute(ctx, plan)
	if err != nil {
		log.Error("plan execution aborted", "error", err)
		return ""
	}
	return summary
}
