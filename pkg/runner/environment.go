package runner

import (
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
)

const (
	EnvSSHUser          = "SSH_USER"
	EnvUser             = "USER"
	EnvPath             = "PATH"
	EnvTempDir          = "TMPDIR"
	EnvDisnixImportSudo = "DISNIX_IMPORT_SUDO"

	DefaultTempDir = "/tmp"
)

var ErrMissingCredential = errors.New("ssh user not specified and cannot be determined from environment")

// ResolveSSHUser returns the identity used for remote operations.
// The first of the explicit value, $SSH_USER and $USER that is set wins.
func ResolveSSHUser(explicit string) (string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	for _, key := range []string{EnvSSHUser, EnvUser} {
		if value := os.Getenv(key); len(value) > 0 {
			return value, nil
		}
	}
	return "", ErrMissingCredential
}

// Environment is the baseline process environment for every external command.
// The SSH user is resolved once, when the environment is created.
type Environment struct {
	SSHUser   string
	ToolPaths []string
	TempDir   string

	once sync.Once
	env  map[string]string
}

func NewEnvironment(sshUser string, toolPaths []string) (*Environment, error) {
	user, err := ResolveSSHUser(sshUser)
	if err != nil {
		return nil, err
	}
	return &Environment{
		SSHUser:   user,
		ToolPaths: toolPaths,
		TempDir:   DefaultTempDir,
	}, nil
}

func (e *Environment) baseline() map[string]string {
	e.once.Do(func() {
		env := ParseEnv(os.Environ())
		env[EnvTempDir] = e.TempDir
		env[EnvDisnixImportSudo] = "true"
		env[EnvSSHUser] = e.SSHUser

		paths := make([]string, 0, len(e.ToolPaths)+1)
		for _, p := range e.ToolPaths {
			if len(p) > 0 {
				paths = append(paths, p)
			}
		}
		if current, ok := env[EnvPath]; ok && len(current) > 0 {
			paths = append(paths, current)
		}
		env[EnvPath] = strings.Join(paths, string(os.PathListSeparator))
		e.env = env
	})
	return e.env
}

// With returns a copy of the baseline environment with extra merged over it.
func (e *Environment) With(extra map[string]string) map[string]string {
	base := e.baseline()
	env := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		env[k] = v
	}
	for k, v := range extra {
		env[k] = v
	}
	env[EnvSSHUser] = e.SSHUser
	return env
}

func ParseEnv(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		tokens := strings.SplitN(kv, "=", 2)
		if len(tokens) != 2 {
			continue
		}
		env[tokens[0]] = tokens[1]
	}
	return env
}

// FormatEnv returns env in KEY=VALUE form, sorted by key.
func FormatEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	formatted := make([]string, 0, len(keys))
	for _, k := range keys {
		formatted = append(formatted, k+"="+env[k])
	}
	return formatted
}
