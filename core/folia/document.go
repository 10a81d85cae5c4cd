// Package folia provides a FoLiA document model on top of xmlquery.
//
// The model covers what entity annotation needs: annotation declarations
// and provenance, sentence enumeration, per-sentence text reconstruction,
// character-offset to token resolution, and the construction of entity,
// metric and relation annotations. Everything else in a document is kept
// as parsed and written back unchanged.
package folia

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/wikiente/core/errors"
)

// Namespaces used by FoLiA documents.
const (
	Namespace      = "http://ilk.uvt.nl/folia"
	XLinkNamespace = "http://www.w3.org/1999/xlink"
	xmlNamespace   = "http://www.w3.org/XML/1998/namespace"
)

// AnnotationType names a FoLiA annotation type as used in declarations
// (<TYPE-annotation>).
type AnnotationType string

const (
	SentenceAnnotation  AnnotationType = "sentence"
	ParagraphAnnotation AnnotationType = "paragraph"
	TokenAnnotation     AnnotationType = "token"
	EntityAnnotation    AnnotationType = "entity"
	MetricAnnotation    AnnotationType = "metric"
	RelationAnnotation  AnnotationType = "relation"
	LangAnnotation      AnnotationType = "lang"
)

// structureTags maps structure annotation types to their element names.
// Legacy documents did not have to declare these.
var structureTags = map[AnnotationType]string{
	SentenceAnnotation:  "s",
	ParagraphAnnotation: "p",
	TokenAnnotation:     "w",
}

// ignored holds elements whose content is not part of the authoritative
// document: sentences and words below them are not enumerated.
var ignored = map[string]bool{
	"original":     true,
	"suggestion":   true,
	"alternative":  true,
	"altlayers":    true,
	"foreign-data": true,
}

var (
	sentenceExpr    = xpath.MustCompile(`//*[local-name()='s']`)
	entityExpr      = xpath.MustCompile(`//*[local-name()='entity']`)
	declarationExpr = xpath.MustCompile(`/*[local-name()='FoLiA']/*[local-name()='metadata']/*[local-name()='annotations']/*`)
)

// Document is a parsed FoLiA document.
type Document struct {
	root  *xmlquery.Node // document node
	folia *xmlquery.Node // <FoLiA> element

	ids map[string]*xmlquery.Node

	processor     *Processor
	processorNode *xmlquery.Node
}

// Parse parses FoLiA XML data and returns a Document.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		perr := errors.NewParse("FoLiA", "", err.Error())
		perr.Err = err
		return nil, perr
	}

	top := firstElement(root)
	if !isElement(top, "FoLiA") {
		return nil, errors.NewParse("FoLiA", "", "no FoLiA root element")
	}

	d := &Document{root: root, folia: top, ids: make(map[string]*xmlquery.Node)}
	d.index(top)
	return d, nil
}

// index records the xml:id of n and all its descendant elements.
func (d *Document) index(n *xmlquery.Node) {
	if id := attrValue(n, "xml", "id"); id != "" {
		d.ids[id] = n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			d.index(c)
		}
	}
}

// ID returns the document identifier (xml:id of the root element).
func (d *Document) ID() string {
	return attrValue(d.folia, "xml", "id")
}

// Version returns the FoLiA version the document declares.
func (d *Document) Version() string {
	return attrValue(d.folia, "", "version")
}

// Legacy reports whether the document predates FoLiA 2 (or carries no
// version). Legacy documents use annotator attributes instead of
// provenance, and do not declare structure annotation.
func (d *Document) Legacy() bool {
	major, _, _ := strings.Cut(d.Version(), ".")
	n, err := strconv.Atoi(major)
	return err != nil || n < 2
}

// Declarations returns the annotation declarations of the document.
func (d *Document) Declarations() []Declaration {
	var decls []Declaration
	for _, n := range xmlquery.QuerySelectorAll(d.root, declarationExpr) {
		typ, ok := strings.CutSuffix(n.Data, "-annotation")
		if !ok {
			continue
		}
		decls = append(decls, Declaration{Type: AnnotationType(typ), Set: attrValue(n, "", "set")})
	}
	return decls
}

// Declaration is a single <TYPE-annotation set="..."> entry.
type Declaration struct {
	Type AnnotationType
	Set  string
}

// Declared reports whether the document declares annotation type t, in
// any set. Structure types in legacy documents count as declared when the
// corresponding elements are present.
func (d *Document) Declared(t AnnotationType) bool {
	for _, decl := range d.Declarations() {
		if decl.Type == t {
			return true
		}
	}
	if tag, ok := structureTags[t]; ok && d.Legacy() {
		return d.hasElement(tag)
	}
	return false
}

// DeclaredSet reports whether annotation type t is declared with set.
func (d *Document) DeclaredSet(t AnnotationType, set string) bool {
	return d.declaration(t, set) != nil
}

func (d *Document) hasElement(name string) bool {
	var found bool
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
			if isElement(c, name) {
				found = true
				return
			}
			walk(c)
		}
	}
	walk(d.folia)
	return found
}

func (d *Document) declaration(t AnnotationType, set string) *xmlquery.Node {
	annotations := d.annotationsNode(false)
	if annotations == nil {
		return nil
	}
	for c := annotations.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, string(t)+"-annotation") && attrValue(c, "", "set") == set {
			return c
		}
	}
	return nil
}

// Declare makes sure annotation type t is declared with set and that the
// document's processor is registered as its annotator.
func (d *Document) Declare(t AnnotationType, set string) {
	decl := d.declaration(t, set)
	if decl == nil {
		decl = newElement(string(t) + "-annotation")
		if set != "" {
			setAttr(decl, "", "set", set)
		}
		appendElement(d.annotationsNode(true), decl)
	}
	if d.processor == nil {
		return
	}

	if d.Legacy() {
		if _, ok := attr(decl, "", "annotator"); !ok {
			setAttr(decl, "", "annotator", d.processor.Name)
			setAttr(decl, "", "annotatortype", d.processor.Type)
		}
		return
	}

	id := d.registerProcessor()
	for c := decl.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, "annotator") && attrValue(c, "", "processor") == id {
			return
		}
	}
	annotator := newElement("annotator")
	setAttr(annotator, "", "processor", id)
	appendElement(decl, annotator)
}

// SetProcessor sets the processor credited for annotations added to the
// document. It is written to the provenance data on first use.
func (d *Document) SetProcessor(p Processor) {
	d.processor = &p
	d.processorNode = nil
}

// Processor returns the processor set on the document, if any.
func (d *Document) Processor() (Processor, bool) {
	if d.processor == nil {
		return Processor{}, false
	}
	return *d.processor, true
}

// registerProcessor writes the processor into <provenance> and returns its id.
func (d *Document) registerProcessor() string {
	if d.processorNode != nil {
		return attrValue(d.processorNode, "xml", "id")
	}
	p := d.processor
	if p.ID == "" || d.ids[p.ID] != nil {
		p.ID = d.newID(p.Name, "processor")
	}

	metadata := d.metadataNode(true)
	provenance := childElement(metadata, "provenance")
	if provenance == nil {
		provenance = newElement("provenance")
		if annotations := childElement(metadata, "annotations"); annotations != nil {
			insertAfter(annotations, provenance)
			if indent := indentOf(annotations); indent != "" {
				insertBefore(provenance, newText("\n"+indent))
			}
		} else {
			appendElement(metadata, provenance)
		}
	}

	n := newElement("processor")
	setAttr(n, "xml", "id", p.ID)
	for _, a := range p.attributes() {
		setAttr(n, "", a[0], a[1])
	}
	appendElement(provenance, n)

	d.ids[p.ID] = n
	d.processorNode = n
	return p.ID
}

func (d *Document) metadataNode(create bool) *xmlquery.Node {
	metadata := childElement(d.folia, "metadata")
	if metadata == nil && create {
		metadata = newElement("metadata")
		setAttr(metadata, "", "type", "native")
		prependElement(d.folia, metadata)
	}
	return metadata
}

func (d *Document) annotationsNode(create bool) *xmlquery.Node {
	metadata := d.metadataNode(create)
	if metadata == nil {
		return nil
	}
	annotations := childElement(metadata, "annotations")
	if annotations == nil && create {
		annotations = newElement("annotations")
		prependElement(metadata, annotations)
	}
	return annotations
}

// Sentences returns the sentences of the document in document order.
func (d *Document) Sentences() []*Sentence {
	var sentences []*Sentence
	for _, n := range xmlquery.QuerySelectorAll(d.root, sentenceExpr) {
		if n.Prefix != "" || hasAncestor(n, ignored) {
			continue
		}
		sentences = append(sentences, &Sentence{doc: d, node: n})
	}
	return sentences
}

// Entities returns all entity annotations of the document in document order.
func (d *Document) Entities() []*Entity {
	var entities []*Entity
	for _, n := range xmlquery.QuerySelectorAll(d.root, entityExpr) {
		if n.Prefix != "" || hasAncestor(n, ignored) {
			continue
		}
		entities = append(entities, &Entity{doc: d, node: n})
	}
	return entities
}

// newID returns the first unused identifier of the form prefix.tag.N.
func (d *Document) newID(prefix, tag string) string {
	if prefix == "" {
		prefix = "doc"
	}
	for i := 1; ; i++ {
		id := fmt.Sprintf("%s.%s.%d", prefix, tag, i)
		if _, taken := d.ids[id]; !taken {
			return id
		}
	}
}

// ensureID returns the xml:id of n, assigning one derived from the nearest
// identified ancestor when n has none.
func (d *Document) ensureID(n *xmlquery.Node) string {
	if id := attrValue(n, "xml", "id"); id != "" {
		return id
	}
	prefix := d.ID()
	for p := n.Parent; p != nil && p != d.folia; p = p.Parent {
		if id := attrValue(p, "xml", "id"); id != "" {
			prefix = id
			break
		}
	}
	id := d.newID(prefix, n.Data)
	setAttr(n, "xml", "id", id)
	d.ids[id] = n
	return id
}

// ensureXLink binds the xlink prefix on the root element.
func (d *Document) ensureXLink() {
	for _, a := range d.folia.Attr {
		if a.Name.Space == "xmlns" && a.Name.Local == "xlink" {
			return
		}
	}
	setAttr(d.folia, "xmlns", "xlink", XLinkNamespace)
}
