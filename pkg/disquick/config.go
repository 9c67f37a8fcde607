package disquick

import (
	"fmt"
	"path/filepath"
	"runtime"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nais/disquick/pkg/conftools"
	"github.com/nais/disquick/pkg/deployment"
	"github.com/nais/disquick/pkg/store"
)

const (
	ConfigName = "disquick"

	DefaultStateDir  = "/var/lib/disquick"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

type Config struct {
	Actions                   bool     `json:"actions"`
	BinaryCaches              string   `json:"binary-caches"`
	BuildOnRemote             bool     `json:"build-on-remote"`
	Deployment                string   `json:"deployment"`
	DryRun                    bool     `json:"dry-run"`
	GC                        bool     `json:"gc"`
	GCOnly                    bool     `json:"gc-only"`
	KeepGenerations           int      `json:"keep-generations"`
	LogFormat                 string   `json:"log-format"`
	LogLevel                  string   `json:"log-level"`
	Manifest                  string   `json:"manifest"`
	MetricsFile               string   `json:"metrics-file"`
	Nixpkgs                   string   `json:"nixpkgs"`
	OpenTelemetryCollectorURL string   `json:"otel-collector-endpoint"`
	PrintManifest             bool     `json:"print-manifest"`
	Quiet                     bool     `json:"quiet"`
	SSHUser                   string   `json:"ssh-user"`
	StateDir                  string   `json:"state-dir"`
	System                    string   `json:"system"`
	Target                    string   `json:"target"`
	ToolPath                  []string `json:"tool-path"`
}

const (
	Actions                   = "actions"
	BinaryCaches              = "binary-caches"
	BuildOnRemote             = "build-on-remote"
	Deployment                = "deployment"
	DryRun                    = "dry-run"
	GC                        = "gc"
	GCOnly                    = "gc-only"
	KeepGenerations           = "keep-generations"
	LogFormat                 = "log-format"
	LogLevel                  = "log-level"
	Manifest                  = "manifest"
	MetricsFile               = "metrics-file"
	Nixpkgs                   = "nixpkgs"
	OpenTelemetryCollectorURL = "otel-collector-endpoint"
	PrintManifest             = "print-manifest"
	Quiet                     = "quiet"
	SSHUser                   = "ssh-user"
	StateDir                  = "state-dir"
	System                    = "system"
	Target                    = "target"
	ToolPath                  = "tool-path"
)

// DefaultSystem is the Nix system identifier of the coordinator.
func DefaultSystem() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "i686"
	}
	return fmt.Sprintf("%s-%s", arch, runtime.GOOS)
}

// InitConfig registers every option with flags and prepares v to read the configuration
// file and environment variables.
func InitConfig(v *viper.Viper, flags *flag.FlagSet) {
	conftools.Initialize(v, ConfigName)

	flags.Bool(Actions, false, "Use GitHub Actions compatible error and warning messages.")
	flags.String(BinaryCaches, "", "Force binary cache usage on ('true') or off ('false'). Empty leaves the decision to the build tool.")
	flags.Bool(BuildOnRemote, true, "Build services on the target instead of on the coordinator.")
	flags.String(Deployment, "", "Deployment description. May also be given as the only positional argument.")
	flags.Bool(DryRun, false, "Build and print the manifest, but do not distribute or activate it.")
	flags.Bool(GC, false, "Collect garbage on the target after a successful deployment.")
	flags.Bool(GCOnly, false, "Only collect garbage on the target; do not deploy.")
	flags.Int(KeepGenerations, deployment.KeepAll, "Number of generations older than the current one to keep in the coordinator profile. Negative keeps all.")
	flags.String(LogFormat, DefaultLogFormat, "Log format, either 'json' or 'text'.")
	flags.String(LogLevel, DefaultLogLevel, "Logging verbosity level.")
	flags.String(Manifest, "", "Previously deployed manifest. Its first target is used when --target is not given.")
	flags.String(MetricsFile, "", "Write deployment metrics to this file in Prometheus text format.")
	flags.String(Nixpkgs, store.DefaultNixpkgs, "Nix expression for the package set used by build expressions.")
	flags.String(OpenTelemetryCollectorURL, "", "OpenTelemetry collector endpoint. Tracing is disabled when empty.")
	flags.Bool(PrintManifest, false, "Print a summary of the built manifest to standard output.")
	flags.Bool(Quiet, false, "Suppress printing of informational messages except errors.")
	flags.String(SSHUser, "", "User for remote operations. Defaults to $SSH_USER, then $USER.")
	flags.String(StateDir, DefaultStateDir, "Directory holding coordinator profile mirrors of remote targets.")
	flags.String(System, DefaultSystem(), "System identifier of the target.")
	flags.String(Target, "", "Target to deploy to, as host[:port]. Use 'localhost' for the coordinator itself.")
	flags.StringSlice(ToolPath, nil, "Directories searched for external tools before $PATH. Can be specified multiple times.")
}

// Configuration loads the configuration from args, the environment and the
// configuration file. A single positional argument names the deployment description.
func Configuration(v *viper.Viper, flags *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	err := conftools.Load(v, flags, args, cfg)
	if err != nil {
		return nil, ErrorWrap(ExitInvocationFailure, err)
	}

	switch flags.NArg() {
	case 0:
	case 1:
		cfg.Deployment = flags.Arg(0)
	default:
		return nil, Errorf(ExitInvocationFailure, "expected at most one deployment description, got %d", flags.NArg())
	}

	return cfg, nil
}

func (cfg *Config) Validate() error {
	_, err := store.ParseBinaryCachePolicy(cfg.BinaryCaches)
	if err != nil {
		return ErrorWrap(ExitInvocationFailure, err)
	}

	if len(cfg.Target) == 0 && len(cfg.Manifest) == 0 {
		return Errorf(ExitInvocationFailure, "a target or a previously deployed manifest is required")
	}

	if !cfg.GCOnly && len(cfg.Deployment) == 0 {
		return Errorf(ExitInvocationFailure, "a deployment description is required")
	}

	if len(cfg.Deployment) > 0 && !filepath.IsAbs(cfg.Deployment) {
		abs, err := filepath.Abs(cfg.Deployment)
		if err != nil {
			return ErrorWrap(ExitInvocationFailure, err)
		}
		cfg.Deployment = abs
	}

	switch cfg.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return Errorf(ExitInvocationFailure, "log format '%s' is not recognized", cfg.LogFormat)
	}

	return nil
}
