// Package target identifies the machine a deployment is sent to.
package target

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nais/disquick/pkg/manifest"
	"github.com/nais/disquick/pkg/profile"
	"github.com/nais/disquick/pkg/runner"
)

const (
	// Localhost denotes the coordinator itself.
	Localhost   = "localhost"
	DefaultPort = 22
)

var ErrInvalidTarget = errors.New("invalid target")

type Target struct {
	// Name is the target as given, host[:port]. Manifests and the coordinator
	// profile refer to the target by this name.
	Name     string
	Hostname string
	Port     int
	System   string
	SSHUser  string
	Runner   runner.Runner
}

// Parse creates a target from a host[:port] specification.
func Parse(spec, system, sshUser string, r runner.Runner) (*Target, error) {
	if len(spec) == 0 {
		return nil, fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}

	hostname := spec
	port := DefaultPort
	if i := strings.LastIndex(spec, ":"); i >= 0 {
		hostname = spec[:i]
		p, err := strconv.Atoi(spec[i+1:])
		if err != nil || p < 0 {
			return nil, fmt.Errorf("%w: port in '%s' is not numeric", ErrInvalidTarget, spec)
		}
		port = p
	}
	if len(hostname) == 0 {
		return nil, fmt.Errorf("%w: no hostname in '%s'", ErrInvalidTarget, spec)
	}

	return &Target{
		Name:     spec,
		Hostname: hostname,
		Port:     port,
		System:   system,
		SSHUser:  sshUser,
		Runner:   r,
	}, nil
}

// FromManifest creates a target from the first target recorded in a manifest.
func FromManifest(path, sshUser string, r runner.Runner) (*Target, error) {
	doc, err := manifest.ReadDocument(path)
	if err != nil {
		return nil, err
	}
	hostname, system, err := doc.FirstTarget()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Parse(hostname, system, sshUser, r)
}

// Identity is hostname:port.
func (t *Target) Identity() string {
	return fmt.Sprintf("%s:%d", t.Hostname, t.Port)
}

func (t *Target) String() string {
	return t.Name
}

func (t *Target) IsLocal() bool {
	return t.Name == Localhost
}

// CoordinatorProfile returns the profile recording what is deployed on this target.
// Remote targets are mirrored below stateDir.
func (t *Target) CoordinatorProfile(stateDir string) profile.CoordinatorProfile {
	if t.IsLocal() {
		return profile.NewLocal()
	}
	return &profile.Syncing{
		Name:     t.Name,
		Hostname: t.Hostname,
		Port:     t.Port,
		SSHUser:  t.SSHUser,
		StateDir: stateDir,
		Runner:   t.Runner,
	}
}
