package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/nais/disquick/pkg/runner"
)

var (
	sourcePattern    = regexp.MustCompile(`src = (\S+);`)
	namePattern      = regexp.MustCompile(`name = "([^"]+)";`)
	attributePattern = regexp.MustCompile(`in props\.(\w+)$`)
)

// Fake simulates the artifact store on top of a runner.Fake. Files built with BuildFile
// are copied into Dir, service builds return the paths registered in Services, and
// garbage collection roots are plain symlinks.
type Fake struct {
	Dir      string
	Services map[string]string
	Roots    map[string]string

	count int
}

func NewFake(dir string) *Fake {
	return &Fake{
		Dir:      dir,
		Services: make(map[string]string),
		Roots:    make(map[string]string),
	}
}

func (f *Fake) Install(r *runner.Fake) {
	r.Handle(NixBuild, f.build)
	r.Handle(NixStore, f.addRoot)
}

func (f *Fake) build(cmd runner.Command) (string, error) {
	expr := ""
	for i, arg := range cmd.Args {
		if arg == "-E" && i+1 < len(cmd.Args) {
			expr = cmd.Args[i+1]
		}
	}

	if src := sourcePattern.FindStringSubmatch(expr); src != nil {
		content, err := os.ReadFile(filepath.Join(src[1], "content"))
		if err != nil {
			return "", err
		}
		name := "artifact"
		if n := namePattern.FindStringSubmatch(expr); n != nil {
			name = n[1]
		}
		f.count++
		path := filepath.Join(f.Dir, fmt.Sprintf("%d-%s", f.count, name))
		return path, os.WriteFile(path, content, 0o444)
	}

	if attribute := attributePattern.FindStringSubmatch(expr); attribute != nil {
		path, ok := f.Services[attribute[1]]
		if !ok {
			return "", fmt.Errorf("attribute '%s' missing", attribute[1])
		}
		return path, nil
	}

	return "", fmt.Errorf("unrecognized expression")
}

func (f *Fake) addRoot(cmd runner.Command) (string, error) {
	var root, artifact string
	for i, arg := range cmd.Args {
		switch {
		case arg == "--add-root" && i+1 < len(cmd.Args):
			root = cmd.Args[i+1]
		case arg == "--indirect" && i+1 < len(cmd.Args):
			artifact = cmd.Args[i+1]
		}
	}
	if len(root) == 0 || len(artifact) == 0 {
		return "", fmt.Errorf("unsupported %s invocation", NixStore)
	}

	tmp := root + ".tmp"
	err := os.Symlink(artifact, tmp)
	if err != nil {
		return "", err
	}
	f.Roots[root] = artifact
	return "", os.Rename(tmp, root)
}
