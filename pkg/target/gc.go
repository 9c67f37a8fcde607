package target

import (
	"context"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/nais/disquick/pkg/metrics"
	"github.com/nais/disquick/pkg/runner"
	"github.com/nais/disquick/pkg/stage"
	"github.com/nais/disquick/pkg/store"
)

const (
	DisnixCollectGarbage = "disnix-collect-garbage"

	InterfaceClient    = "disnix-client"
	InterfaceSSHClient = "disnix-ssh-client"
)

func (t *Target) clientInterface() string {
	if t.IsLocal() {
		return InterfaceClient
	}
	return InterfaceSSHClient
}

// RunGC collects garbage in the store of the target. Everything not reachable from a
// garbage collection root, including generations deleted from the coordinator profile,
// is removed.
func (t *Target) RunGC(ctx context.Context) error {
	logger := log.WithField("target", t.Name)
	return stage.Run(ctx, stage.CollectGarbage, "Running garbage collection on "+t.Name, func(ctx context.Context) error {
		expr, err := store.InfrastructureExpression(t.Name, t.System)
		if err != nil {
			return err
		}

		dir, err := os.MkdirTemp("", "disquick-gc-")
		if err != nil {
			return err
		}
		defer func() {
			err := os.RemoveAll(dir)
			if err != nil {
				logger.Warnf("Unable to remove temporary directory %s: %s", dir, err)
			}
		}()

		infrastructure := filepath.Join(dir, "infrastructure.nix")
		err = os.WriteFile(infrastructure, []byte(expr+"\n"), 0o644)
		if err != nil {
			return err
		}

		_, err = t.Runner.Run(ctx, runner.Command{
			Args: []string{DisnixCollectGarbage, "--interface", t.clientInterface(), "-d", infrastructure},
		})
		if err != nil {
			return err
		}
		metrics.GarbageCollectorRun.Inc()
		return nil
	})
}
