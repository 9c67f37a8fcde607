// Package manifest drives the distribute, lock, activate and set steps for a built
// manifest, and rewrites recorded manifests for a new target.
package manifest

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/nais/disquick/pkg/runner"
	"github.com/nais/disquick/pkg/stage"
	"github.com/nais/disquick/pkg/suppress"
)

const (
	DisnixDistribute = "disnix-distribute"
	DisnixLock       = "disnix-lock"
	DisnixActivate   = "disnix-activate"
	DisnixSet        = "disnix-set"

	coordinatorProfilePathFlag = "--coordinator-profile-path"
)

// Manifest is a finished build describing which artifacts go to which targets.
// Its path is never mutated; retargeting produces a new manifest.
type Manifest struct {
	Path   string
	Runner runner.Runner
}

func New(path string, r runner.Runner) *Manifest {
	return &Manifest{
		Path:   path,
		Runner: r,
	}
}

func (m *Manifest) Document() (*Document, error) {
	return ReadDocument(m.Path)
}

func (m *Manifest) run(ctx context.Context, args ...string) error {
	_, err := m.Runner.Run(ctx, runner.Command{Args: args})
	return err
}

// Distribute transfers intra-dependency closures to every target in the manifest.
func (m *Manifest) Distribute(ctx context.Context) error {
	return stage.Run(ctx, stage.Distribute, "Distributing intra-dependency closures", func(ctx context.Context) error {
		return m.run(ctx, DisnixDistribute, m.Path)
	})
}

func (m *Manifest) Activate(ctx context.Context, profilePath string) error {
	return stage.Run(ctx, stage.Activate, "Activating new configuration", func(ctx context.Context) error {
		return m.run(ctx, DisnixActivate, coordinatorProfilePathFlag, profilePath, m.Path)
	})
}

func (m *Manifest) Set(ctx context.Context, profilePath string) error {
	return stage.Run(ctx, stage.Set, "Setting profiles", func(ctx context.Context) error {
		return m.run(ctx, DisnixSet, coordinatorProfilePathFlag, profilePath, m.Path)
	})
}

// Deploy distributes the manifest, then activates it and sets profiles while holding the lock.
// The lock is released whether or not activation succeeds; a failed activation is
// not rolled back.
func (m *Manifest) Deploy(ctx context.Context, profilePath string) (err error) {
	err = m.Distribute(ctx)
	if err != nil {
		return err
	}

	lock, err := m.Lock(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = suppress.Attach(err, lock.Release(ctx))
	}()

	err = m.Activate(ctx, profilePath)
	if err != nil {
		return err
	}

	err = m.Set(ctx, profilePath)
	if err != nil {
		return err
	}

	log.Infof("The system has been successfully deployed!")
	return nil
}
