package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nais/disquick/pkg/runner"
)

// FakeRsync returns a runner.Handler that mirrors profile directories the way rsync does
// for a Syncing profile, treating remote paths of the form login:dir as local directories.
func FakeRsync(login string) runner.Handler {
	strip := func(path string) string {
		return strings.TrimSuffix(strings.TrimPrefix(path, login+":"), "/")
	}
	return func(cmd runner.Command) (string, error) {
		if len(cmd.Args) < 3 {
			return "", fmt.Errorf("unsupported %s invocation", Rsync)
		}
		source := strip(cmd.Args[len(cmd.Args)-2])
		destination := strip(cmd.Args[len(cmd.Args)-1])
		return "", mirror(source, destination)
	}
}

func mirror(source, destination string) error {
	err := os.MkdirAll(source, 0o755)
	if err != nil {
		return err
	}
	err = os.MkdirAll(destination, 0o755)
	if err != nil {
		return err
	}

	existing, err := os.ReadDir(destination)
	if err != nil {
		return err
	}
	for _, e := range existing {
		err = os.Remove(filepath.Join(destination, e.Name()))
		if err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return err
	}
	for _, e := range entries {
		link, err := os.Readlink(filepath.Join(source, e.Name()))
		if err != nil {
			return err
		}
		err = os.Symlink(link, filepath.Join(destination, e.Name()))
		if err != nil {
			return err
		}
	}
	return nil
}
