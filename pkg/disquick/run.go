// Package disquick wires configuration, logging and the deployment pipeline into the
// disquick command.
package disquick

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/nais/disquick/pkg/deployment"
	"github.com/nais/disquick/pkg/metrics"
	"github.com/nais/disquick/pkg/runner"
	"github.com/nais/disquick/pkg/store"
	"github.com/nais/disquick/pkg/target"
	"github.com/nais/disquick/pkg/telemetry"
)

const (
	ServiceName = "disquick"

	EnvTraceParent = "TRACEPARENT"
)

// Orchestrator carries out one invocation of the command.
type Orchestrator struct {
	Config  *Config
	SSHUser string
	Runner  runner.Runner
	Stdout  io.Writer
}

// Run resolves the process environment and runs cfg against real external tools.
// Tracing and metrics export are set up here so they cover the whole invocation.
func Run(ctx context.Context, cfg *Config) (err error) {
	if len(cfg.OpenTelemetryCollectorURL) > 0 {
		tracerProvider, err := telemetry.New(ctx, ServiceName, cfg.OpenTelemetryCollectorURL)
		if err != nil {
			return ErrorWrap(ExitInvocationFailure, fmt.Errorf("set up tracing: %w", err))
		}
		defer func() {
			err := tracerProvider.Shutdown(context.Background())
			if err != nil {
				log.Warnf("Unable to flush traces: %s", err)
			}
		}()
	}
	ctx = telemetry.WithTraceParent(ctx, os.Getenv(EnvTraceParent))

	if len(cfg.MetricsFile) > 0 {
		defer func() {
			err := metrics.WriteTextfile(cfg.MetricsFile)
			if err != nil {
				log.Warnf("Unable to write metrics to %s: %s", cfg.MetricsFile, err)
			}
		}()
	}

	env, err := runner.NewEnvironment(cfg.SSHUser, cfg.ToolPath)
	if err != nil {
		return ErrorWrap(ExitConfigurationError, err)
	}

	o := &Orchestrator{
		Config:  cfg,
		SSHUser: env.SSHUser,
		Runner:  runner.NewExec(env),
		Stdout:  os.Stdout,
	}
	return o.Run(ctx)
}

func (o *Orchestrator) target() (*target.Target, error) {
	if len(o.Config.Target) > 0 {
		return target.Parse(o.Config.Target, o.Config.System, o.SSHUser, o.Runner)
	}
	log.Infof("Using the first target of %s", o.Config.Manifest)
	return target.FromManifest(o.Config.Manifest, o.SSHUser, o.Runner)
}

func (o *Orchestrator) Run(ctx context.Context) error {
	cfg := o.Config

	t, err := o.target()
	if err != nil {
		return err
	}

	if cfg.GCOnly {
		return t.RunGC(ctx)
	}

	policy, err := store.ParseBinaryCachePolicy(cfg.BinaryCaches)
	if err != nil {
		return ErrorWrap(ExitInvocationFailure, err)
	}
	s := &store.Store{
		Runner:       o.Runner,
		BinaryCaches: policy,
		Nixpkgs:      cfg.Nixpkgs,
	}

	d := deployment.New(cfg.Deployment, t, s, cfg.StateDir, cfg.BuildOnRemote)

	if cfg.PrintManifest || cfg.DryRun {
		err = o.printManifest(ctx, d)
		if err != nil {
			return err
		}
	}

	if cfg.DryRun {
		d.Logger.Infof("Dry run; not distributing or activating the manifest")
		return nil
	}

	err = d.Deploy(ctx, cfg.KeepGenerations)
	if err != nil {
		return err
	}

	if cfg.GC {
		return t.RunGC(ctx)
	}
	return nil
}

func (o *Orchestrator) printManifest(ctx context.Context, d *deployment.Deployment) error {
	m, err := d.Manifest(ctx)
	if err != nil {
		return err
	}
	doc, err := m.Document()
	if err != nil {
		return err
	}
	out, err := doc.YAML(m.Path)
	if err != nil {
		return err
	}
	_, err = o.Stdout.Write(out)
	return err
}
