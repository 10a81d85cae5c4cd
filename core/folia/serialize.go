package folia

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"
)

const xmlDeclaration = `<?xml version="1.0" encoding="utf-8"?>`

// Serialize converts the document back to XML bytes. Text and whitespace
// of the source are written as they were read.
func (d *Document) Serialize() []byte {
	var buf bytes.Buffer
	if !hasDeclaration(d.root) {
		buf.WriteString(xmlDeclaration)
		buf.WriteString("\n")
	}
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		writeNode(&buf, c)
		if isProlog(c) && (c.NextSibling == nil || c.NextSibling.Type != xmlquery.TextNode) {
			buf.WriteByte('\n')
		}
	}
	if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func isProlog(n *xmlquery.Node) bool {
	switch n.Type {
	case xmlquery.DeclarationNode, xmlquery.ProcessingInstruction, xmlquery.NotationNode:
		return true
	}
	return false
}

func hasDeclaration(root *xmlquery.Node) bool {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.DeclarationNode && c.Data == "xml" {
			return true
		}
	}
	return false
}

// writeNode recursively writes an XML node.
func writeNode(w *bytes.Buffer, n *xmlquery.Node) {
	switch n.Type {
	case xmlquery.DeclarationNode:
		w.WriteString("<?")
		w.WriteString(n.Data)
		for _, a := range n.Attr {
			w.WriteString(" ")
			w.WriteString(a.Name.Local)
			w.WriteString(`="`)
			w.WriteString(escapeAttr(a.Value))
			w.WriteString(`"`)
		}
		w.WriteString("?>")

	case xmlquery.ProcessingInstruction:
		w.WriteString("<?")
		if n.ProcInst != nil {
			w.WriteString(n.ProcInst.Target)
			if n.ProcInst.Inst != "" {
				w.WriteString(" ")
				w.WriteString(n.ProcInst.Inst)
			}
		} else {
			w.WriteString(n.Data)
		}
		w.WriteString("?>")

	case xmlquery.NotationNode:
		// doctype and other directives, kept verbatim
		w.WriteString("<!")
		w.WriteString(n.Data)
		w.WriteString(">")

	case xmlquery.ElementNode:
		w.WriteString("<")
		writeName(w, n.Prefix, n.Data)
		for _, a := range n.Attr {
			w.WriteString(" ")
			writeName(w, a.Name.Space, a.Name.Local)
			w.WriteString(`="`)
			w.WriteString(escapeAttr(a.Value))
			w.WriteString(`"`)
		}
		if n.FirstChild == nil {
			w.WriteString("/>")
			return
		}
		w.WriteString(">")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(w, c)
		}
		w.WriteString("</")
		writeName(w, n.Prefix, n.Data)
		w.WriteString(">")

	case xmlquery.TextNode:
		w.WriteString(escapeText(n.Data))

	case xmlquery.CharDataNode:
		w.WriteString("<![CDATA[")
		w.WriteString(n.Data)
		w.WriteString("]]>")

	case xmlquery.CommentNode:
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->")
	}
}

func writeName(w *bytes.Buffer, space, local string) {
	if space != "" {
		if p, ok := prefixes[space]; ok {
			space = p
		}
		w.WriteString(space)
		w.WriteString(":")
	}
	w.WriteString(local)
}

// escapeText escapes the basic XML entities for text content.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// escapeAttr escapes text for use in double-quoted XML attributes.
func escapeAttr(s string) string {
	s = escapeText(s)
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "\n", "&#10;")
	s = strings.ReplaceAll(s, "\t", "&#9;")
	return s
}
