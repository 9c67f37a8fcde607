package manifest_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nais/disquick/pkg/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTestManifest(t *testing.T) *manifest.Document {
	t.Helper()
	doc, err := manifest.ReadDocument("testdata/manifest.xml")
	require.NoError(t, err)
	return doc
}

func TestDocumentTargets(t *testing.T) {
	doc := readTestManifest(t)

	assert.Equal(t, "app1.example.com", doc.CurrentTarget())
	assert.Equal(t, []string{"app1.example.com"}, doc.DistributionTargets())

	hostname, system, err := doc.FirstTarget()
	assert.NoError(t, err)
	assert.Equal(t, "app1.example.com", hostname)
	assert.Equal(t, "x86_64-linux", system)
}

func TestDocumentRetarget(t *testing.T) {
	doc := readTestManifest(t)

	retargeted, rewrites := doc.Retarget("app2.example.com:2222")

	// distribution target, activation target, dependency target, target hostname
	assert.Equal(t, 4, rewrites)
	assert.Equal(t, "app2.example.com:2222", retargeted.CurrentTarget())
	assert.Equal(t, []string{"app2.example.com:2222"}, retargeted.DistributionTargets())

	// The original document is left untouched.
	assert.Equal(t, "app1.example.com", doc.CurrentTarget())

	content, err := retargeted.Bytes()
	require.NoError(t, err)
	assert.NotContains(t, string(content), "<target>app1.example.com</target>")
	assert.Equal(t, 1, strings.Count(string(content), "<hostname>app1.example.com</hostname>"), "only the hostname property is kept")
	assert.Contains(t, string(content), "<service>/nix/store/bbbb-hello</service>")
	assert.Contains(t, string(content), `<manifest version="1">`)
}

func TestDocumentEncodeRoundTrip(t *testing.T) {
	doc := readTestManifest(t)

	content, err := doc.Bytes()
	require.NoError(t, err)

	reparsed, err := manifest.ParseDocument(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, doc.Summary("x"), reparsed.Summary("x"))
}

func TestValidateTarget(t *testing.T) {
	doc := readTestManifest(t)

	assert.NoError(t, doc.ValidateTarget("app1.example.com"))
	assert.ErrorIs(t, doc.ValidateTarget("app2.example.com"), manifest.ErrTargetMismatch)
}

func TestBuildItems(t *testing.T) {
	empty, err := manifest.ReadDocument("testdata/distributed-empty.xml")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.BuildItems())

	full, err := manifest.ReadDocument("testdata/distributed.xml")
	require.NoError(t, err)
	assert.Equal(t, 2, full.BuildItems())
}

func TestEmptyManifest(t *testing.T) {
	doc, err := manifest.ParseDocument(strings.NewReader(`<manifest><distribution/><activation/><targets/></manifest>`))
	require.NoError(t, err)

	assert.Empty(t, doc.CurrentTarget())
	assert.NoError(t, doc.ValidateTarget("anything"))
	_, _, err = doc.FirstTarget()
	assert.Error(t, err)
}

func TestParseInvalidDocument(t *testing.T) {
	_, err := manifest.ParseDocument(strings.NewReader("<manifest>"))
	assert.Error(t, err)
}

func TestSummaryYAML(t *testing.T) {
	doc := readTestManifest(t)

	out, err := doc.YAML("/nix/store/ffff-manifest.xml")
	require.NoError(t, err)
	assert.Equal(t, `activation:
- service: hello
  target: app1.example.com
distribution:
- service: /nix/store/aaaa-app1
  target: app1.example.com
path: /nix/store/ffff-manifest.xml
targets:
- hostname: app1.example.com
  system: x86_64-linux
`, string(out))
}
