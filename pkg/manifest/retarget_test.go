package manifest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nais/disquick/pkg/manifest"
	"github.com/nais/disquick/pkg/runner"
	"github.com/nais/disquick/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type retargetFixture struct {
	runner   *runner.Fake
	store    *store.Store
	link     string
	original string
}

func newRetargetFixture(t *testing.T) *retargetFixture {
	t.Helper()
	storeDir := t.TempDir()
	profileDir := t.TempDir()

	content, err := os.ReadFile("testdata/manifest.xml")
	require.NoError(t, err)
	original := filepath.Join(storeDir, "0-manifest.xml")
	require.NoError(t, os.WriteFile(original, content, 0o444))

	link := filepath.Join(profileDir, "default-3-link")
	require.NoError(t, os.Symlink(original, link))

	fake := runner.NewFake()
	store.NewFake(storeDir).Install(fake)

	return &retargetFixture{
		runner:   fake,
		store:    &store.Store{Runner: fake},
		link:     link,
		original: original,
	}
}

func TestRetargetIsIdempotent(t *testing.T) {
	f := newRetargetFixture(t)

	artifact, moved, err := manifest.Retarget(context.Background(), f.store, "app1.example.com", f.link)
	assert.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, f.original, artifact)
	assert.Empty(t, f.runner.Commands)

	destination, err := os.Readlink(f.link)
	require.NoError(t, err)
	assert.Equal(t, f.original, destination)
}

func TestRetargetToNewHost(t *testing.T) {
	f := newRetargetFixture(t)
	ctx := context.Background()

	artifact, moved, err := manifest.Retarget(ctx, f.store, "app2.example.com", f.link)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.NotEqual(t, f.original, artifact)
	assert.Equal(t, []string{"nix-build", "nix-store"}, f.runner.Programs())

	destination, err := os.Readlink(f.link)
	require.NoError(t, err)
	assert.Equal(t, artifact, destination)

	doc, err := manifest.ReadDocument(f.link)
	require.NoError(t, err)
	assert.Equal(t, "app2.example.com", doc.CurrentTarget())

	// The original artifact is immutable.
	old, err := manifest.ReadDocument(f.original)
	require.NoError(t, err)
	assert.Equal(t, "app1.example.com", old.CurrentTarget())

	// Retargeting again to the same host is a no-op.
	again, moved, err := manifest.Retarget(ctx, f.store, "app2.example.com", f.link)
	assert.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, artifact, again)
	assert.Len(t, f.runner.Commands, 2)
}

func TestRetargetBuildFailure(t *testing.T) {
	f := newRetargetFixture(t)
	f.runner.Fail(store.NixBuild, 1)

	_, moved, err := manifest.Retarget(context.Background(), f.store, "app2.example.com", f.link)
	var commandErr *runner.ExternalCommandError
	assert.ErrorAs(t, err, &commandErr)
	assert.False(t, moved)

	destination, err := os.Readlink(f.link)
	require.NoError(t, err)
	assert.Equal(t, f.original, destination)
}

func TestRetargetMissingLink(t *testing.T) {
	f := newRetargetFixture(t)

	_, _, err := manifest.Retarget(context.Background(), f.store, "app2.example.com", filepath.Join(filepath.Dir(f.link), "default-9-link"))
	assert.Error(t, err)
}
