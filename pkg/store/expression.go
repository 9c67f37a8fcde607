package store

import (
	"strings"

	"github.com/aymerick/raymond"
)

// Attributes of the disquick properties set selected by a service expression.
const (
	AttributeDistributedDerivation = "distributedDerivation"
	AttributeManifest              = "manifest"
)

// Triple-stash everywhere: values are escaped for Nix, not HTML.
var (
	serviceTemplate = raymond.MustParse(`let
  pkgsPath = {{{nixpkgs}}};
  system = "{{{system}}}";
  serviceSet = import {{{filename}}} { pkgs = import pkgsPath { inherit system; }; inherit (props) infrastructure; };
  props = (import pkgsPath {}).disquickProps { inherit serviceSet system; hostname = "{{{hostname}}}"; };
in props.{{{attribute}}}`)

	sourceTemplate = raymond.MustParse(`(import {{{nixpkgs}}} {}).stdenv.mkDerivation {
  name = "{{{name}}}";
  phases = [ "unpackPhase" "installPhase" ];
  src = {{{src}}};
  installPhase = "cp {{{file}}} $out";
}`)

	infrastructureTemplate = raymond.MustParse(`{ target = { hostname = "{{{hostname}}}"; system = "{{{system}}}"; }; }`)
)

type ServiceParams struct {
	Nixpkgs   string
	Filename  string
	System    string
	Hostname  string
	Attribute string
}

// ServiceExpression evaluates the deployment description for one target and selects
// the given attribute from the resulting disquick properties.
func ServiceExpression(params ServiceParams) (string, error) {
	return serviceTemplate.Exec(map[string]string{
		"nixpkgs":   nixpkgsOrDefault(params.Nixpkgs),
		"filename":  params.Filename,
		"system":    EscapeString(params.System),
		"hostname":  EscapeString(params.Hostname),
		"attribute": params.Attribute,
	})
}

// SourceExpression copies a single file from the directory src into the store.
func SourceExpression(nixpkgs, name, src, file string) (string, error) {
	return sourceTemplate.Exec(map[string]string{
		"nixpkgs": nixpkgsOrDefault(nixpkgs),
		"name":    EscapeString(name),
		"src":     src,
		"file":    EscapeString(file),
	})
}

// InfrastructureExpression describes a topology with a single target.
func InfrastructureExpression(hostname, system string) (string, error) {
	return infrastructureTemplate.Exec(map[string]string{
		"hostname": EscapeString(hostname),
		"system":   EscapeString(system),
	})
}

var nixStringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "${", `\${`)

// EscapeString escapes s for use inside a double-quoted Nix string.
func EscapeString(s string) string {
	return nixStringEscaper.Replace(s)
}

func nixpkgsOrDefault(nixpkgs string) string {
	if len(nixpkgs) == 0 {
		return DefaultNixpkgs
	}
	return nixpkgs
}
