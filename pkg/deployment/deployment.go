// Package deployment runs the complete pipeline for one deployment: build the manifest,
// pull the coordinator profile, retarget its history if needed, distribute, activate
// under lock, push the profile back and prune old generations.
package deployment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nais/disquick/pkg/manifest"
	"github.com/nais/disquick/pkg/metrics"
	"github.com/nais/disquick/pkg/profile"
	"github.com/nais/disquick/pkg/runner"
	"github.com/nais/disquick/pkg/stage"
	"github.com/nais/disquick/pkg/store"
	"github.com/nais/disquick/pkg/suppress"
	"github.com/nais/disquick/pkg/target"
	"github.com/nais/disquick/pkg/telemetry"
)

const (
	DisnixBuild = "disnix-build"

	LogFieldDeploymentID = "deployment_id"
	LogFieldTarget       = "target"

	// KeepAll disables pruning of old generations.
	KeepAll = -1
)

type Deployment struct {
	ID string
	// Filename is the deployment description evaluated by the build.
	Filename      string
	Target        *target.Target
	Profile       profile.CoordinatorProfile
	Store         *store.Store
	Runner        runner.Runner
	BuildOnRemote bool
	Logger        *log.Entry

	manifest *manifest.Manifest
}

func New(filename string, t *target.Target, s *store.Store, stateDir string, buildOnRemote bool) *Deployment {
	id := uuid.New().String()
	return &Deployment{
		ID:            id,
		Filename:      filename,
		Target:        t,
		Profile:       t.CoordinatorProfile(stateDir),
		Store:         s,
		Runner:        t.Runner,
		BuildOnRemote: buildOnRemote,
		Logger: log.WithFields(log.Fields{
			LogFieldDeploymentID: id,
			LogFieldTarget:       t.Name,
		}),
	}
}

func (d *Deployment) serviceParams(attribute string) store.ServiceParams {
	return store.ServiceParams{
		Filename:  d.Filename,
		System:    d.Target.System,
		Hostname:  d.Target.Name,
		Attribute: attribute,
	}
}

// buildOnRemote builds the services of the deployment on the target itself.
// A distributed derivation without build items is not an error; there is simply
// nothing to build.
func (d *Deployment) buildOnRemote(ctx context.Context) error {
	var derivation string
	err := stage.Run(ctx, stage.BuildOnRemote, "Instantiating store derivations", func(ctx context.Context) error {
		var err error
		derivation, err = d.Store.BuildService(ctx, d.serviceParams(store.AttributeDistributedDerivation))
		return err
	})
	if err != nil {
		return err
	}

	doc, err := manifest.ReadDocument(derivation)
	if err != nil {
		return err
	}
	if doc.BuildItems() == 0 {
		d.Logger.Infof("No store derivations to build")
		return nil
	}

	return stage.Run(ctx, stage.BuildOnRemote, "Building store derivations", func(ctx context.Context) error {
		_, err := d.Runner.Run(ctx, runner.Command{Args: []string{DisnixBuild, derivation}})
		return err
	})
}

// Manifest builds the manifest of the deployment. The result is memoized.
func (d *Deployment) Manifest(ctx context.Context) (*manifest.Manifest, error) {
	if d.manifest != nil {
		return d.manifest, nil
	}

	if d.BuildOnRemote {
		err := d.buildOnRemote(ctx)
		if err != nil {
			return nil, err
		}
	}

	var path string
	err := stage.Run(ctx, stage.Build, "Building manifest", func(ctx context.Context) error {
		var err error
		path, err = d.Store.BuildService(ctx, d.serviceParams(store.AttributeManifest))
		if err != nil {
			return err
		}
		doc, err := manifest.ReadDocument(path)
		if err != nil {
			return err
		}
		return doc.ValidateTarget(d.Target.Name)
	})
	if err != nil {
		return nil, err
	}

	d.Logger.Debugf("Manifest is %s", path)
	d.manifest = manifest.New(path, d.Runner)
	return d.manifest, nil
}

// Deploy runs the pipeline. keep is the number of generations older than the new one to
// retain, or KeepAll.
//
// The coordinator profile is pushed back to the target even if the deployment fails;
// errors from the push never replace the error that caused the failure. Old
// generations are only pruned after a successful deployment.
func (d *Deployment) Deploy(ctx context.Context, keep int) (err error) {
	ctx, span := telemetry.StartStage(ctx, "deploy",
		attribute.String(LogFieldDeploymentID, d.ID),
		attribute.String(LogFieldTarget, d.Target.Name),
	)
	defer func() {
		if err != nil {
			metrics.DeployFailed.Inc()
		} else {
			metrics.DeploySuccessful.Inc()
		}
		telemetry.EndSpan(span, err)
	}()

	d.Logger.Infof("Deploying %s to %s", d.Filename, d.Target.Identity())

	m, err := d.Manifest(ctx)
	if err != nil {
		return err
	}

	scope, err := profile.Open(ctx, d.Profile)
	if err != nil {
		return err
	}
	defer func() {
		err = suppress.Attach(err, scope.Close(ctx))
	}()

	link, err := profile.CurrentGenerationLink(scope.Path(), false)
	if err != nil {
		return err
	}
	if len(link) > 0 {
		_, _, err = manifest.Retarget(ctx, d.Store, d.Target.Name, link)
		if err != nil {
			return fmt.Errorf("retarget %s: %w", link, err)
		}
	}

	err = m.Deploy(ctx, scope.Path())
	if err != nil {
		return err
	}

	if keep >= 0 {
		return stage.Run(ctx, stage.Prune, fmt.Sprintf("Keeping %d generations besides the current one", keep), func(ctx context.Context) error {
			_, err := profile.DeleteGenerations(scope.Path(), keep)
			return err
		})
	}

	return nil
}
