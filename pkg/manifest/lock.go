package manifest

import (
	"context"

	"github.com/nais/disquick/pkg/stage"
)

// Lock is held on every target of a manifest between activation and profile set.
type Lock struct {
	manifest *Manifest
	released bool
}

// Lock acquires the deployment lock. If acquisition fails there is nothing to release.
func (m *Manifest) Lock(ctx context.Context) (*Lock, error) {
	err := stage.Run(ctx, stage.Lock, "Acquiring locks", func(ctx context.Context) error {
		return m.run(ctx, DisnixLock, m.Path)
	})
	if err != nil {
		return nil, err
	}
	return &Lock{manifest: m}, nil
}

// Release unlocks the targets. Only the first call has any effect.
func (l *Lock) Release(ctx context.Context) error {
	if l.released {
		return nil
	}
	l.released = true
	return stage.Run(ctx, stage.Unlock, "Releasing locks", func(ctx context.Context) error {
		return l.manifest.run(ctx, DisnixLock, "--unlock", l.manifest.Path)
	})
}
