// Package store wraps the build and garbage collection root primitives of the artifact store.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/nais/disquick/pkg/runner"
)

const (
	NixBuild = "nix-build"
	NixStore = "nix-store"

	DefaultNixpkgs = "<nixpkgs>"
)

// BinaryCachePolicy is passed through to every build.
type BinaryCachePolicy int

const (
	BinaryCachesDefault BinaryCachePolicy = iota
	BinaryCachesEnabled
	BinaryCachesDisabled
)

func ParseBinaryCachePolicy(s string) (BinaryCachePolicy, error) {
	switch strings.ToLower(s) {
	case "":
		return BinaryCachesDefault, nil
	case "true", "yes", "on":
		return BinaryCachesEnabled, nil
	case "false", "no", "off":
		return BinaryCachesDisabled, nil
	default:
		return BinaryCachesDefault, fmt.Errorf("binary cache policy must be empty, 'true' or 'false'; found '%s'", s)
	}
}

func (p BinaryCachePolicy) Args() []string {
	switch p {
	case BinaryCachesEnabled:
		return []string{"--option", "use-binary-caches", "true"}
	case BinaryCachesDisabled:
		return []string{"--option", "use-binary-caches", "false"}
	default:
		return nil
	}
}

type Store struct {
	Runner       runner.Runner
	BinaryCaches BinaryCachePolicy
	Nixpkgs      string
}

// Build realises expr and returns its output path.
func (s *Store) Build(ctx context.Context, expr string) (string, error) {
	args := []string{NixBuild, "--no-out-link", "--show-trace", "-E", expr}
	args = append(args, s.BinaryCaches.Args()...)
	path, err := s.Runner.Run(ctx, runner.Command{Args: args, Capture: true})
	if err != nil {
		return "", err
	}
	if len(path) == 0 {
		return "", fmt.Errorf("%s produced no output path", NixBuild)
	}
	return path, nil
}

// BuildService evaluates the deployment description and builds the selected attribute.
func (s *Store) BuildService(ctx context.Context, params ServiceParams) (string, error) {
	if len(params.Nixpkgs) == 0 {
		params.Nixpkgs = s.Nixpkgs
	}
	expr, err := ServiceExpression(params)
	if err != nil {
		return "", fmt.Errorf("render service expression: %w", err)
	}
	return s.Build(ctx, expr)
}

// BuildFile stores content as a new immutable artifact named name.
func (s *Store) BuildFile(ctx context.Context, name string, content []byte) (string, error) {
	dir, err := os.MkdirTemp("", "disquick-")
	if err != nil {
		return "", err
	}
	defer func() {
		err := os.RemoveAll(dir)
		if err != nil {
			log.Warnf("Unable to remove temporary directory %s: %s", dir, err)
		}
	}()

	const file = "content"
	err = os.WriteFile(filepath.Join(dir, file), content, 0o644)
	if err != nil {
		return "", err
	}

	expr, err := SourceExpression(s.Nixpkgs, name, dir, file)
	if err != nil {
		return "", fmt.Errorf("render source expression: %w", err)
	}

	args := []string{NixBuild, "--no-out-link", "-E", expr}
	args = append(args, s.BinaryCaches.Args()...)
	path, err := s.Runner.Run(ctx, runner.Command{Args: args, Capture: true})
	if err != nil {
		return "", err
	}
	if len(path) == 0 {
		return "", fmt.Errorf("%s produced no output path", NixBuild)
	}
	return path, nil
}

// AddRoot registers root as an indirect garbage collection root for artifact.
// An existing symlink at root is replaced.
func (s *Store) AddRoot(ctx context.Context, root, artifact string) error {
	_, err := s.Runner.Run(ctx, runner.Command{
		Args: AddRootArgs(root, artifact),
	})
	return err
}

func AddRootArgs(root, artifact string) []string {
	return []string{NixStore, "--max-jobs", "0", "-r", "--add-root", root, "--indirect", artifact}
}
