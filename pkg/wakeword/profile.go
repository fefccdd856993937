package wakeword

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/chaosbotics/chaos/pkg/kv"
)

// Profile is an enrolled wake phrase: the reference embedding plus the
// metadata needed to reproduce it.
type Profile struct {
	Name       string    `msgpack:"name"`
	Embedding  []float32 `msgpack:"embedding"`
	SampleRate int       `msgpack:"sample_rate"`
	CreatedAt  time.Time `msgpack:"created_at"`
}

// ProfileStore persists wake profiles in a kv.Store under wake:profile:<name>.
type ProfileStore struct {
	store kv.Store
}

// NewProfileStore wraps an opened kv store.
func NewProfileStore(store kv.Store) *ProfileStore {
	return &ProfileStore{store: store}
}

func profileKey(name string) kv.Key {
	return kv.Key{"wake", "profile", name}
}

// Save encodes and stores a profile, overwriting any previous enrollment of
// the same name.
func (s *ProfileStore) Save(ctx context.Context, p *Profile) error {
	if p.Name == "" {
		return fmt.Errorf("wakeword: profile name is empty")
	}
	if len(p.Embedding) == 0 {
		return fmt.Errorf("wakeword: profile %q has no embedding", p.Name)
	}
	raw, err := msgpack.Marshal(p)
	if err != nil {
		return fmt.Errorf("wakeword: encode profile %q: %w", p.Name, err)
	}
	return s.store.Set(ctx, profileKey(p.Name), raw)
}

// Load retrieves a profile by name. kv.ErrNotFound passes through so callers
// can distinguish a missing enrollment from a corrupt one.
func (s *ProfileStore) Load(ctx context.Context, name string) (*Profile, error) {
	raw, err := s.store.Get(ctx, profileKey(name))
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := msgpack.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("wakeword: decode profile %q: %w", name, err)
	}
	return &p, nil
}

// List returns the names of all enrolled profiles.
func (s *ProfileStore) List(ctx context.Context) ([]string, error) {
	var names []string
	for e, err := range s.store.List(ctx, kv.Key{"wake", "profile"}) {
		if err != nil {
			return nil, err
		}
		names = append(names, e.Key[len(e.Key)-1])
	}
	return names, nil
}

// Delete removes an enrollment. Deleting a missing profile is not an error.
func (s *ProfileStore) Delete(ctx context.Context, name string) error {
	return s.store.Delete(ctx, profileKey(name))
}

// Enroll builds a profile from a recorded utterance of the wake phrase.
func Enroll(name string, samples []float32, sampleRate int, emb Embedder) (*Profile, error) {
	vec, err := emb.Embed(samples)
	if err != nil {
		return nil, fmt.Errorf("wakeword: enroll %q: %w", name, err)
	}
	return &Profile{
		Name:       name,
		Embedding:  vec,
		SampleRate: sampleRate,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
