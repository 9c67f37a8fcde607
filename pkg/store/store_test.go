package store_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/nais/disquick/pkg/runner"
	"github.com/nais/disquick/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBinaryCachePolicy(t *testing.T) {
	for input, expected := range map[string]store.BinaryCachePolicy{
		"":      store.BinaryCachesDefault,
		"true":  store.BinaryCachesEnabled,
		"TRUE":  store.BinaryCachesEnabled,
		"false": store.BinaryCachesDisabled,
		"off":   store.BinaryCachesDisabled,
	} {
		policy, err := store.ParseBinaryCachePolicy(input)
		assert.NoError(t, err, input)
		assert.Equal(t, expected, policy, input)
	}

	_, err := store.ParseBinaryCachePolicy("sometimes")
	assert.Error(t, err)
}

func TestBuildPassesBinaryCachePolicy(t *testing.T) {
	for _, tt := range []struct {
		policy   store.BinaryCachePolicy
		expected []string
	}{
		{store.BinaryCachesDefault, []string{"nix-build", "--no-out-link", "--show-trace", "-E", "expr"}},
		{store.BinaryCachesEnabled, []string{"nix-build", "--no-out-link", "--show-trace", "-E", "expr", "--option", "use-binary-caches", "true"}},
		{store.BinaryCachesDisabled, []string{"nix-build", "--no-out-link", "--show-trace", "-E", "expr", "--option", "use-binary-caches", "false"}},
	} {
		fake := runner.NewFake()
		fake.Handle(store.NixBuild, func(cmd runner.Command) (string, error) {
			return "/nix/store/abc-result", nil
		})
		s := &store.Store{Runner: fake, BinaryCaches: tt.policy}

		path, err := s.Build(context.Background(), "expr")
		assert.NoError(t, err)
		assert.Equal(t, "/nix/store/abc-result", path)
		require.Len(t, fake.Commands, 1)
		assert.Equal(t, tt.expected, fake.Commands[0].Args)
		assert.True(t, fake.Commands[0].Capture)
	}
}

func TestBuildWithoutOutput(t *testing.T) {
	s := &store.Store{Runner: runner.NewFake()}
	_, err := s.Build(context.Background(), "expr")
	assert.Error(t, err)
}

func TestBuildFile(t *testing.T) {
	var seen []byte
	fake := runner.NewFake()
	fake.Handle(store.NixBuild, func(cmd runner.Command) (string, error) {
		expr := cmd.Args[len(cmd.Args)-1]
		src := regexp.MustCompile(`src = (\S+);`).FindStringSubmatch(expr)
		require.Len(t, src, 2)
		var err error
		seen, err = os.ReadFile(filepath.Join(src[1], "content"))
		require.NoError(t, err)
		assert.Contains(t, expr, `name = "manifest.xml";`)
		return "/nix/store/def-manifest.xml", nil
	})
	s := &store.Store{Runner: fake}

	path, err := s.BuildFile(context.Background(), "manifest.xml", []byte("<manifest/>"))
	assert.NoError(t, err)
	assert.Equal(t, "/nix/store/def-manifest.xml", path)
	assert.Equal(t, "<manifest/>", string(seen))
}

func TestAddRoot(t *testing.T) {
	fake := runner.NewFake()
	s := &store.Store{Runner: fake}

	err := s.AddRoot(context.Background(), "/profile/default-2-link", "/nix/store/abc-manifest")
	assert.NoError(t, err)
	require.Len(t, fake.Commands, 1)
	assert.Equal(t, []string{"nix-store", "--max-jobs", "0", "-r", "--add-root", "/profile/default-2-link", "--indirect", "/nix/store/abc-manifest"}, fake.Commands[0].Args)
}
