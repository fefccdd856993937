package agents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chaosbotics/chaos/pkg/audio/pcm"
)

// Synthesizer renders text to a PCM stream. Satisfied by the OpenAI agent.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, pcm.Format, error)
}

// Player plays a PCM stream on the output device. Satisfied by
// speaker.Player.
type Player interface {
	Play(ctx context.Context, src io.Reader, srcFmt pcm.Format) error
}

// Voice is the brain's Speaker: synthesize, then play. Empty or
// whitespace-only text skips synthesis entirely.
type Voice struct {
	synth  Synthesizer
	player Player
	log    *slog.Logger
}

// NewVoice wires a synthesizer to an output device.
func NewVoice(synth Synthesizer, player Player, log *slog.Logger) *Voice {
	if log == nil {
		log = slog.Default()
	}
	return &Voice{synth: synth, player: player, log: log.With("component", "voice")}
}

func (v *Voice) Say(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	stream, format, err := v.synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("agents: say: %w", err)
	}
	defer stream.Close()

	v.log.Debug("speaking", "chars", len(text))
	return v.player.Play(ctx, stream, format)
}
