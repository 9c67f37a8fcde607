package conftools_test

import (
	"os"
	"path/filepath"
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nais/disquick/pkg/conftools"
)

type config struct {
	Target string `json:"target"`
	Keep   int    `json:"keep-generations"`
	Token  string `json:"token"`
}

func setup(t *testing.T, yaml string) (*viper.Viper, *flag.FlagSet) {
	t.Helper()
	dir := t.TempDir()
	if len(yaml) > 0 {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "testtool.yaml"), []byte(yaml), 0o644))
	}

	v := viper.New()
	conftools.Initialize(v, "testtool")
	v.AddConfigPath(dir)

	flags := flag.NewFlagSet("testtool", flag.ContinueOnError)
	flags.String("target", "localhost", "")
	flags.Int("keep-generations", -1, "")
	flags.String("token", "", "")
	return v, flags
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("TESTTOOL_KEEP_GENERATIONS", "3")
	v, flags := setup(t, "target: from-file\nkeep-generations: 1\ntoken: secret\n")

	cfg := &config{}
	err := conftools.Load(v, flags, []string{"--target", "from-flag"}, cfg)
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.Target)
	assert.Equal(t, 3, cfg.Keep)
	assert.Equal(t, "secret", cfg.Token)
}

func TestLoadDefaults(t *testing.T) {
	v, flags := setup(t, "")

	cfg := &config{}
	err := conftools.Load(v, flags, nil, cfg)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Target)
	assert.Equal(t, -1, cfg.Keep)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	v, flags := setup(t, "bogus: true\n")

	err := conftools.Load(v, flags, nil, &config{})
	assert.Error(t, err)
}

func TestFormatRedactsSecrets(t *testing.T) {
	v, flags := setup(t, "")
	require.NoError(t, conftools.Load(v, flags, []string{"--token", "hunter2"}, &config{}))

	assert.Equal(t, []string{
		"keep-generations: -1",
		"target: localhost",
		"token: ***REDACTED***",
	}, conftools.Format(v, []string{"token"}))
}
