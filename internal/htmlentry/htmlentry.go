// Package htmlentry parses an HTML entry point, finds the local scripts,
// stylesheets and images it references and renders it again once those
// references have been rewritten to their built output.
package htmlentry

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Kind int

const (
	Script Kind = iota
	Stylesheet
	Asset
)

func (k Kind) String() string {
	switch k {
	case Script:
		return "script"
	case Stylesheet:
		return "stylesheet"
	default:
		return "asset"
	}
}

// Ref is a reference to a local file found in the document.
type Ref struct {
	Kind Kind
	// Value is the attribute value as written in the document.
	Value string
	// Module is set for <script type="module">.
	Module bool

	node *html.Node
	attr string
}

// Path returns the file part of the reference, without query or fragment.
func (r *Ref) Path() string {
	p, _, _ := strings.Cut(r.Value, "?")
	p, _, _ = strings.Cut(p, "#")
	return p
}

// Set rewrites the reference in the document.
func (r *Ref) Set(value string) {
	for i := range r.node.Attr {
		if r.node.Attr[i].Key == r.attr {
			r.node.Attr[i].Val = value
			return
		}
	}
}

type Document struct {
	root *html.Node
	Refs []*Ref
}

// Parse reads an HTML document and collects its local references in document order.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	doc := &Document{root: root}
	doc.collect(root)

	return doc, nil
}

func (d *Document) collect(n *html.Node) {
	if n.Type == html.ElementNode {
		if ref := refFor(n); ref != nil && IsLocal(ref.Value) {
			d.Refs = append(d.Refs, ref)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.collect(c)
	}
}

func refFor(n *html.Node) *Ref {
	switch n.DataAtom {
	case atom.Script:
		if src, ok := attr(n, "src"); ok {
			typ, _ := attr(n, "type")
			return &Ref{Kind: Script, Value: src, Module: strings.EqualFold(typ, "module"), node: n, attr: "src"}
		}
	case atom.Link:
		href, ok := attr(n, "href")
		if !ok {
			return nil
		}
		rel, _ := attr(n, "rel")
		switch {
		case hasToken(rel, "stylesheet"):
			return &Ref{Kind: Stylesheet, Value: href, node: n, attr: "href"}
		case hasToken(rel, "icon"), hasToken(rel, "apple-touch-icon"), hasToken(rel, "mask-icon"):
			return &Ref{Kind: Asset, Value: href, node: n, attr: "href"}
		}
	case atom.Img, atom.Source:
		if src, ok := attr(n, "src"); ok {
			return &Ref{Kind: Asset, Value: src, node: n, attr: "src"}
		}
	}

	return nil
}

// IsLocal reports whether a reference points at a project file rather than
// a URL, a root relative path, a fragment or inline data.
func IsLocal(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "#") {
		return false
	}

	u, err := url.Parse(ref)
	if err != nil {
		return false
	}

	// "@src/..." parses without a scheme, "data:..." and "https://..." do not
	return u.Scheme == "" && u.Host == ""
}

// AppendStylesheet adds a <link rel="stylesheet"> to the document head.
func (d *Document) AppendStylesheet(href string) {
	d.appendTo(atom.Head, &html.Node{
		Type:     html.ElementNode,
		Data:     "link",
		DataAtom: atom.Link,
		Attr: []html.Attribute{
			{Key: "rel", Val: "stylesheet"},
			{Key: "href", Val: href},
		},
	})
}

// AppendScript adds an inline <script> with the given source to the end of the body.
func (d *Document) AppendScript(source string) {
	script := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
	}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: source})

	d.appendTo(atom.Body, script)
}

func (d *Document) appendTo(parent atom.Atom, child *html.Node) {
	if n := find(d.root, parent); n != nil {
		n.AppendChild(child)
	}
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}
