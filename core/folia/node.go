package folia

import (
	"encoding/xml"
	"strings"

	"github.com/antchfx/xmlquery"
)

// prefixes maps namespace URLs to the prefixes written on output. The
// decoder may report either form depending on how a document binds them.
var prefixes = map[string]string{
	xmlNamespace:   "xml",
	XLinkNamespace: "xlink",
}

// isElement reports whether n is an unprefixed element with the given name.
func isElement(n *xmlquery.Node, name string) bool {
	return n != nil && n.Type == xmlquery.ElementNode && n.Prefix == "" && n.Data == name
}

// childElement returns the first child element of n named name.
func childElement(n *xmlquery.Node, name string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, name) {
			return c
		}
	}
	return nil
}

// firstElement returns the first element child of n.
func firstElement(n *xmlquery.Node) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// sameSpace compares attribute spaces, treating a known namespace URL and
// its prefix as equal.
func sameSpace(got, want string) bool {
	if got == want {
		return true
	}
	if p, ok := prefixes[got]; ok && p == want {
		return true
	}
	p, ok := prefixes[want]
	return ok && p == got
}

// attr returns the value of the attribute space:local on n. Use an empty
// space for unqualified attributes.
func attr(n *xmlquery.Node, space, local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == local && sameSpace(a.Name.Space, space) {
			return a.Value, true
		}
	}
	return "", false
}

func attrValue(n *xmlquery.Node, space, local string) string {
	v, _ := attr(n, space, local)
	return v
}

// setAttr replaces or appends the attribute space:local on n.
func setAttr(n *xmlquery.Node, space, local, value string) {
	for i, a := range n.Attr {
		if a.Name.Local == local && sameSpace(a.Name.Space, space) {
			n.Attr[i].Value = value
			return
		}
	}
	n.Attr = append(n.Attr, xmlquery.Attr{
		Name:  xml.Name{Space: space, Local: local},
		Value: value,
	})
}

func newElement(name string) *xmlquery.Node {
	return &xmlquery.Node{
		Type:         xmlquery.ElementNode,
		Data:         name,
		NamespaceURI: Namespace,
	}
}

func newText(s string) *xmlquery.Node {
	return &xmlquery.Node{Type: xmlquery.TextNode, Data: s}
}

func isBlank(n *xmlquery.Node) bool {
	return n != nil && n.Type == xmlquery.TextNode && strings.TrimSpace(n.Data) == ""
}

// indentOf returns the whitespace that precedes n on its own line, or ""
// when the document is not indented around n.
func indentOf(n *xmlquery.Node) string {
	if !isBlank(n.PrevSibling) {
		return ""
	}
	ws := n.PrevSibling.Data
	i := strings.LastIndexByte(ws, '\n')
	if i < 0 {
		return ""
	}
	return ws[i+1:]
}

// insertBefore links n into ref's parent immediately before ref.
func insertBefore(ref, n *xmlquery.Node) {
	parent := ref.Parent
	n.Parent = parent
	n.NextSibling = ref
	n.PrevSibling = ref.PrevSibling
	if ref.PrevSibling != nil {
		ref.PrevSibling.NextSibling = n
	} else {
		parent.FirstChild = n
	}
	ref.PrevSibling = n
}

// insertAfter links n into ref's parent immediately after ref.
func insertAfter(ref, n *xmlquery.Node) {
	if ref.NextSibling == nil {
		xmlquery.AddChild(ref.Parent, n)
		return
	}
	insertBefore(ref.NextSibling, n)
}

// appendElement adds child as the last element of parent and keeps the
// surrounding indentation when parent is pretty-printed.
func appendElement(parent, child *xmlquery.Node) {
	indent := indentOf(parent)
	step := "  "
	if first := firstElement(parent); first != nil {
		if inner := indentOf(first); len(inner) > len(indent) {
			step = inner[len(indent):]
		}
	}

	switch {
	case parent.FirstChild == nil:
		if indent == "" && !isBlank(parent.PrevSibling) {
			xmlquery.AddChild(parent, child)
			return
		}
		xmlquery.AddChild(parent, newText("\n"+indent+step))
		xmlquery.AddChild(parent, child)
		xmlquery.AddChild(parent, newText("\n"+indent))
	case isBlank(parent.LastChild):
		closing := parent.LastChild
		insertBefore(closing, newText("\n"+indent+step))
		insertBefore(closing, child)
	default:
		xmlquery.AddChild(parent, child)
	}
}

// prependElement adds child as the first element of parent.
func prependElement(parent, child *xmlquery.Node) {
	first := firstElement(parent)
	if first == nil {
		appendElement(parent, child)
		return
	}
	indent := indentOf(first)
	insertBefore(first, child)
	if indent != "" {
		insertBefore(first, newText("\n"+indent))
	}
}

// hasAncestor reports whether any ancestor of n is an element named in names.
func hasAncestor(n *xmlquery.Node, names map[string]bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == xmlquery.ElementNode && p.Prefix == "" && names[p.Data] {
			return true
		}
	}
	return false
}
