package agents

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/chaosbotics/chaos/pkg/audio/pcm"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"clean", `{"intent":"action"}`, "action"},
		{"code fence", "```json\n{\"intent\":\"action\"}\n```", "action"},
		{"trailing comma", `{"intent":"conversation",}`, "conversation"},
		{"single quotes", `{'intent':'action'}`, "action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c classification
			if err := decodeJSON(tt.raw, &c); err != nil {
				t.Fatalf("decodeJSON: %v", err)
			}
			if c.Intent != tt.want {
				t.Errorf("intent = %q, want %q", c.Intent, tt.want)
			}
		})
	}
}

func TestDecodeJSON_unrecoverable(t *testing.T) {
	var c classification
	if err := decodeJSON("the user wants to drive", &c); err == nil && c.Intent != "" {
		t.Errorf("prose decoded to %+v", c)
	}
}

type fakeSynth struct {
	pcm   []byte
	err   error
	calls int
}

func (f *fakeSynth) Synthesize(context.Context, string) (io.ReadCloser, pcm.Format, error) {
	f.calls++
	if f.err != nil {
		return nil, pcm.Format{}, f.err
	}
	return io.NopCloser(strings.NewReader(string(f.pcm))), pcm.Format{SampleRate: speechRate}, nil
}

type fakePlayer struct {
	played []byte
	calls  int
}

func (f *fakePlayer) Play(_ context.Context, src io.Reader, _ pcm.Format) error {
	f.calls++
	b, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	f.played = append(f.played, b...)
	return nil
}

func TestVoice_synthesizesAndPlays(t *testing.T) {
	synth := &fakeSynth{pcm: []byte{1, 0, 2, 0}}
	player := &fakePlayer{}
	v := NewVoice(synth, player, nil)

	if err := v.Say(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if player.calls != 1 || len(player.played) != 4 {
		t.Errorf("player calls = %d, bytes = %d", player.calls, len(player.played))
	}
}

func TestVoice_emptyTextSkipsSynthesis(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{}
	v := NewVoice(synth, player, nil)

	for _, text := range []string{"", "   ", "\n"} {
		if err := v.Say(context.Background(), text); err != nil {
			t.Fatal(err)
		}
	}
	if synth.calls != 0 || player.calls != 0 {
		t.Errorf("synth calls = %d, player calls = %d, want 0", synth.calls, player.calls)
	}
}

func TestVoice_synthesisErrorPropagates(t *testing.T) {
	synth := &fakeSynth{err: errors.New("tts down")}
	v := NewVoice(synth, &fakePlayer{}, nil)

	if err := v.Say(context.Background(), "hello"); err == nil {
		t.Error("Say succeeded despite synthesis error")
	}
}

func TestOpenAIConfig_defaults(t *testing.T) {
	cfg := (&OpenAIConfig{APIKey: "k"}).withDefaults()
	if cfg.ChatModel == "" || cfg.TranscribeModel == "" || cfg.SpeechModel == "" || cfg.Voice == "" {
		t.Errorf("defaults not filled: %+v", cfg)
	}
}

func TestNewOpenAI_requiresKey(t *testing.T) {
	if _, err := NewOpenAI(OpenAIConfig{}, nil); err == nil {
		t.Error("NewOpenAI without key succeeded")
	}
}
