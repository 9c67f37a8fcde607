package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrTargetMismatch = errors.New("manifest distributes to a different target")

// Node is a generic XML element. Documents are parsed into a tree of nodes so that
// elements this package does not know about survive a rewrite unchanged.
type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []*Node    `xml:",any"`
}

// Child returns the first child element with the given local name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Nodes {
		if c.XMLName.Local == name {
			return c
		}
	}
	return nil
}

func (n *Node) Children(name string) []*Node {
	found := make([]*Node, 0)
	if n == nil {
		return found
	}
	for _, c := range n.Nodes {
		if c.XMLName.Local == name {
			found = append(found, c)
		}
	}
	return found
}

// Descendants returns every element below n with the given local name, in document order.
func (n *Node) Descendants(name string) []*Node {
	found := make([]*Node, 0)
	if n == nil {
		return found
	}
	for _, c := range n.Nodes {
		if c.XMLName.Local == name {
			found = append(found, c)
		}
		found = append(found, c.Descendants(name)...)
	}
	return found
}

func (n *Node) Value() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Text)
}

func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		XMLName: n.XMLName,
		Text:    n.Text,
		Attrs:   append([]xml.Attr(nil), n.Attrs...),
		Nodes:   make([]*Node, 0, len(n.Nodes)),
	}
	for _, child := range n.Nodes {
		c.Nodes = append(c.Nodes, child.Clone())
	}
	return c
}

// Drop the whitespace between child elements; it is regenerated on encoding.
func (n *Node) normalize() {
	if len(n.Nodes) > 0 && len(strings.TrimSpace(n.Text)) == 0 {
		n.Text = ""
	}
	for _, c := range n.Nodes {
		c.normalize()
	}
}

// Document is a parsed manifest or distributed derivation.
type Document struct {
	Root *Node
}

func ParseDocument(r io.Reader) (*Document, error) {
	root := &Node{}
	err := xml.NewDecoder(r).Decode(root)
	if err != nil {
		return nil, fmt.Errorf("parse manifest document: %w", err)
	}
	root.normalize()
	return &Document{Root: root}, nil
}

func ReadDocument(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	doc, err := ParseDocument(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func (d *Document) Encode(w io.Writer) error {
	_, err := io.WriteString(w, xml.Header)
	if err != nil {
		return err
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	err = encoder.Encode(d.Root)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func (d *Document) Bytes() ([]byte, error) {
	buf := &bytes.Buffer{}
	err := d.Encode(buf)
	return buf.Bytes(), err
}

// DistributionTargets returns the target of every distribution mapping.
func (d *Document) DistributionTargets() []string {
	targets := make([]string, 0)
	for _, mapping := range d.Root.Child("distribution").Children("mapping") {
		targets = append(targets, mapping.Child("target").Value())
	}
	return targets
}

// CurrentTarget returns the target this manifest was built for: the target of the first
// distribution mapping, or for a manifest without services, the hostname of the first target.
func (d *Document) CurrentTarget() string {
	for _, mapping := range d.Root.Child("distribution").Children("mapping") {
		if target := mapping.Child("target"); target != nil {
			return target.Value()
		}
	}
	for _, target := range d.Root.Child("targets").Children("target") {
		if hostname := target.Child("hostname"); hostname != nil {
			return hostname.Value()
		}
		if hostname := target.Child("properties").Child("hostname"); hostname != nil {
			return hostname.Value()
		}
	}
	return ""
}

// FirstTarget returns the hostname property and system of the first target.
func (d *Document) FirstTarget() (hostname, system string, err error) {
	target := d.Root.Child("targets").Child("target")
	if target == nil {
		return "", "", fmt.Errorf("manifest has no targets")
	}
	hostnameNode := target.Child("properties").Child("hostname")
	systemNode := target.Child("system")
	if hostnameNode == nil || systemNode == nil {
		return "", "", fmt.Errorf("first target in manifest lacks hostname or system")
	}
	return hostnameNode.Value(), systemNode.Value(), nil
}

// Retarget returns a copy of the document in which every target reference in the
// distribution and activation sections, and every target hostname, is replaced by target.
// The receiver is left unchanged.
func (d *Document) Retarget(target string) (*Document, int) {
	root := d.Root.Clone()
	nodes := make([]*Node, 0)
	nodes = append(nodes, root.Child("distribution").Descendants("target")...)
	nodes = append(nodes, root.Child("activation").Descendants("target")...)
	for _, t := range root.Child("targets").Children("target") {
		nodes = append(nodes, t.Children("hostname")...)
	}
	for _, n := range nodes {
		n.Text = target
	}
	return &Document{Root: root}, len(nodes)
}

// ValidateTarget checks that every distribution mapping names target.
func (d *Document) ValidateTarget(target string) error {
	for _, t := range d.DistributionTargets() {
		if t != target {
			return fmt.Errorf("%w: expected '%s', found '%s'", ErrTargetMismatch, target, t)
		}
	}
	return nil
}

// BuildItems returns the number of derivations a distributed derivation asks to build.
func (d *Document) BuildItems() int {
	build := d.Root.Child("build")
	if build == nil {
		return 0
	}
	return len(build.Nodes)
}
