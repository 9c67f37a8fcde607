package store_test

import (
	"testing"

	"github.com/nais/disquick/pkg/store"
	"github.com/stretchr/testify/assert"
)

func TestServiceExpression(t *testing.T) {
	expr, err := store.ServiceExpression(store.ServiceParams{
		Filename:  "/srv/deploy/services.nix",
		System:    "x86_64-linux",
		Hostname:  "app1.example.com:2222",
		Attribute: store.AttributeManifest,
	})
	assert.NoError(t, err)
	assert.Equal(t, `let
  pkgsPath = <nixpkgs>;
  system = "x86_64-linux";
  serviceSet = import /srv/deploy/services.nix { pkgs = import pkgsPath { inherit system; }; inherit (props) infrastructure; };
  props = (import pkgsPath {}).disquickProps { inherit serviceSet system; hostname = "app1.example.com:2222"; };
in props.manifest`, expr)
}

func TestInfrastructureExpression(t *testing.T) {
	expr, err := store.InfrastructureExpression("app1", "aarch64-linux")
	assert.NoError(t, err)
	assert.Equal(t, `{ target = { hostname = "app1"; system = "aarch64-linux"; }; }`, expr)
}

func TestEscapeString(t *testing.T) {
	assert.Equal(t, `a\"b\\c\${d}`, store.EscapeString(`a"b\c${d}`))
	assert.Equal(t, "plain", store.EscapeString("plain"))
}
