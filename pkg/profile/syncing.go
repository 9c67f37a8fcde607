package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nais/disquick/pkg/runner"
	"github.com/nais/disquick/pkg/stage"
	"github.com/nais/disquick/pkg/store"
)

const (
	Rsync             = "rsync"
	SSH               = "ssh"
	DisnixCopyClosure = "disnix-copy-closure"

	directionFrom = "--from"
	directionTo   = "--to"
)

// Syncing is the profile of a coordinator deploying to another machine. The coordinator
// keeps a mirror of the target's profile, pulled before and pushed after each deployment,
// and makes sure every generation it references is present and pinned on both sides.
type Syncing struct {
	// Name of the target as recorded in manifests.
	Name     string
	Hostname string
	Port     int
	SSHUser  string
	StateDir string
	Runner   runner.Runner

	// RemoteDir is the profile directory on the target.
	RemoteDir string
}

func (s *Syncing) LocalPath() (string, error) {
	path := filepath.Join(s.StateDir, s.Name)
	return path, ensureDir(path, 0o700)
}

func (s *Syncing) remoteDir() string {
	if len(s.RemoteDir) == 0 {
		return TargetProfileDir
	}
	return s.RemoteDir
}

func (s *Syncing) login() string {
	return fmt.Sprintf("%s@%s", s.SSHUser, s.Hostname)
}

func (s *Syncing) remotePath() string {
	return fmt.Sprintf("%s:%s", s.login(), s.remoteDir())
}

func (s *Syncing) Pull(ctx context.Context) error {
	local, err := s.LocalPath()
	if err != nil {
		return err
	}
	return stage.Run(ctx, stage.ProfilePull, "Retrieving coordinator profile from remote", func(ctx context.Context) error {
		err := s.rsync(ctx, s.remotePath(), local)
		if err != nil {
			return err
		}
		return s.copyClosures(ctx, local, directionFrom)
	})
}

func (s *Syncing) Push(ctx context.Context) error {
	local, err := s.LocalPath()
	if err != nil {
		return err
	}
	return stage.Run(ctx, stage.ProfilePush, "Sending coordinator profile to remote", func(ctx context.Context) error {
		err := s.rsync(ctx, local, s.remotePath())
		if err != nil {
			return err
		}
		err = s.copyClosures(ctx, local, directionTo)
		if err != nil {
			return err
		}
		return s.registerRemoteRoots(ctx)
	})
}

// rsync makes destination an exact copy of source, creating the remote profile
// directory if it does not exist yet.
func (s *Syncing) rsync(ctx context.Context, source, destination string) error {
	_, err := s.Runner.Run(ctx, runner.Command{
		Args: []string{
			Rsync,
			"-rl",
			"--delete-after",
			"--rsync-path", fmt.Sprintf("mkdir -p %s && rsync", s.remoteDir()),
			"-e", fmt.Sprintf("%s -p %d", SSH, s.Port),
			source + "/",
			destination,
		},
	})
	return err
}

// copyClosures transfers the closure of every generation in the local profile.
func (s *Syncing) copyClosures(ctx context.Context, local, direction string) error {
	links, err := generationArtifacts(local)
	if err != nil {
		return err
	}
	for _, artifact := range links {
		_, err = s.Runner.Run(ctx, runner.Command{
			Args: []string{DisnixCopyClosure, direction, "-t", s.Name, artifact},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// registerRemoteRoots pins every generation on the target against garbage collection.
func (s *Syncing) registerRemoteRoots(ctx context.Context) error {
	addRoot := store.AddRootArgs(`"$x"`, `"$(readlink "$x")"`)
	script := fmt.Sprintf(`for x in %s/*-link; do [ -L "$x" ] || continue; %s; done`, s.remoteDir(), strings.Join(addRoot, " "))
	_, err := s.Runner.Run(ctx, runner.Command{
		Args: []string{SSH, "-p", strconv.Itoa(s.Port), s.login(), script},
	})
	return err
}

// generationArtifacts returns the link targets of every entry but the default link, by name.
func generationArtifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name() != DefaultLink {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	artifacts := make([]string, 0, len(names))
	for _, name := range names {
		destination, err := os.Readlink(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, destination)
	}
	return artifacts, nil
}
