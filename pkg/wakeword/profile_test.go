package wakeword

import (
	"context"
	"errors"
	"testing"

	"github.com/chaosbotics/chaos/pkg/kv"
)

func TestProfileStore_roundtrip(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore(kv.NewMemory())

	p := &Profile{Name: "default", Embedding: []float32{0.1, 0.2, 0.3}, SampleRate: 16000}
	if err := s.Save(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx, "default")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "default" || got.SampleRate != 16000 {
		t.Errorf("loaded profile = %+v", got)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != 0.2 {
		t.Errorf("embedding = %v, want [0.1 0.2 0.3]", got.Embedding)
	}
}

func TestProfileStore_loadMissing(t *testing.T) {
	s := NewProfileStore(kv.NewMemory())
	if _, err := s.Load(context.Background(), "nobody"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Load missing = %v, want kv.ErrNotFound", err)
	}
}

func TestProfileStore_list(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore(kv.NewMemory())
	for _, name := range []string{"bravo", "alpha"} {
		if err := s.Save(ctx, &Profile{Name: name, Embedding: []float32{1}}); err != nil {
			t.Fatal(err)
		}
	}
	names, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "bravo" {
		t.Errorf("List = %v, want [alpha bravo]", names)
	}
}

func TestProfileStore_saveValidation(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore(kv.NewMemory())
	if err := s.Save(ctx, &Profile{Embedding: []float32{1}}); err == nil {
		t.Error("Save with empty name succeeded, want error")
	}
	if err := s.Save(ctx, &Profile{Name: "x"}); err == nil {
		t.Error("Save with empty embedding succeeded, want error")
	}
}

func TestEnroll(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{0.6, 0.8}}
	p, err := Enroll("default", make([]float32, 16000), 16000, emb)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "default" || p.SampleRate != 16000 {
		t.Errorf("profile = %+v", p)
	}
	if Cosine(p.Embedding, emb.vec) < 0.999999 {
		t.Errorf("embedding = %v, want %v", p.Embedding, emb.vec)
	}
	if p.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}
