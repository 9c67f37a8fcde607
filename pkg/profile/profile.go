// Package profile keeps the coordinator profile: the per-target record of which
// manifest generation is currently deployed.
package profile

import (
	"context"
	"os"
)

const (
	// TargetProfileDir is the profile location on a target, and on a coordinator
	// deploying to itself.
	TargetProfileDir = "/var/lib/disenv/coordinator-profile"

	DefaultLink = "default"
)

type CoordinatorProfile interface {
	// LocalPath returns the coordinator-side profile directory, creating it if needed.
	LocalPath() (string, error)
	// Pull makes the local profile reflect the target before a deployment.
	Pull(ctx context.Context) error
	// Push makes the target reflect the local profile after a deployment.
	Push(ctx context.Context) error
}

// Scope brackets a deployment with a profile pull and push.
type Scope struct {
	profile CoordinatorProfile
	path    string
	closed  bool
}

// Open pulls the profile. The returned scope must be closed, which pushes it back.
// If pulling fails there is nothing to push and no scope is returned.
func Open(ctx context.Context, p CoordinatorProfile) (*Scope, error) {
	path, err := p.LocalPath()
	if err != nil {
		return nil, err
	}
	err = p.Pull(ctx)
	if err != nil {
		return nil, err
	}
	return &Scope{profile: p, path: path}, nil
}

func (s *Scope) Path() string {
	return s.path
}

// Close pushes the profile. Only the first call has any effect.
func (s *Scope) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.profile.Push(ctx)
}

// Local is the profile of a coordinator deploying to itself. Coordinator and target
// share the directory, so nothing is transferred.
type Local struct {
	Path string
}

func NewLocal() *Local {
	return &Local{Path: TargetProfileDir}
}

func (l *Local) LocalPath() (string, error) {
	return l.Path, ensureDir(l.Path, 0o755)
}

func (l *Local) Pull(context.Context) error {
	return nil
}

func (l *Local) Push(context.Context) error {
	return nil
}

func ensureDir(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}
