// Package stage announces, traces and times the steps of a deployment.
package stage

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nais/disquick/pkg/metrics"
	"github.com/nais/disquick/pkg/telemetry"
)

const (
	Build          = "build"
	BuildOnRemote  = "build_on_remote"
	ProfilePull    = "profile_pull"
	ProfilePush    = "profile_push"
	Retarget       = "retarget"
	Distribute     = "distribute"
	Lock           = "lock"
	Activate       = "activate"
	Set            = "set"
	Unlock         = "unlock"
	Prune          = "prune"
	CollectGarbage = "collect_garbage"

	LogFieldStage = "stage"
)

// Run announces the stage, then runs fn inside a span and records its duration.
func Run(ctx context.Context, name, announcement string, fn func(ctx context.Context) error) error {
	log.WithField(LogFieldStage, name).Info(announcement)

	ctx, span := telemetry.StartStage(ctx, name)
	started := time.Now()

	err := fn(ctx)

	metrics.ObserveStage(name, time.Since(started), err)
	telemetry.EndSpan(span, err)
	return err
}
