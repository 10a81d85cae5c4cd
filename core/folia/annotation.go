package folia

import (
	"github.com/antchfx/xmlquery"
)

// Entity is an <entity> annotation.
type Entity struct {
	doc  *Document
	node *xmlquery.Node
}

// Metric is a <metric> annotation attached to another annotation.
type Metric struct {
	Class string
	Value string
	Set   string
}

// Relation is a <relation> annotation pointing at an external resource.
type Relation struct {
	Class  string
	Href   string
	Format string
	Set    string
}

// ID returns the xml:id of the entity.
func (e *Entity) ID() string {
	return attrValue(e.node, "xml", "id")
}

// Class returns the entity class.
func (e *Entity) Class() string {
	return attrValue(e.node, "", "class")
}

// Set returns the set the entity class belongs to.
func (e *Entity) Set() string {
	return attrValue(e.node, "", "set")
}

// TokenIDs returns the ids of the words the entity spans.
func (e *Entity) TokenIDs() []string {
	var ids []string
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, "wref") {
			ids = append(ids, attrValue(c, "", "id"))
		}
	}
	return ids
}

// Text returns the texts of the spanned words joined by a space.
func (e *Entity) Text() string {
	var s string
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if !isElement(c, "wref") {
			continue
		}
		t := attrValue(c, "", "t")
		if t == "" {
			if w := e.doc.ids[attrValue(c, "", "id")]; w != nil {
				tc, _ := textContent(w)
				t = tc.text
			}
		}
		if s != "" {
			s += " "
		}
		s += t
	}
	return s
}

// AddMetric attaches a metric to the entity.
func (e *Entity) AddMetric(class, value, set string) {
	n := newElement("metric")
	setAttr(n, "", "class", class)
	setAttr(n, "", "value", value)
	if set != "" {
		setAttr(n, "", "set", set)
	}
	appendElement(e.node, n)
}

// AddRelation attaches a simple XLink relation to the entity.
func (e *Entity) AddRelation(class, href, format, set string) {
	e.doc.ensureXLink()
	n := newElement("relation")
	setAttr(n, "", "class", class)
	setAttr(n, XLinkNamespace, "href", href)
	setAttr(n, XLinkNamespace, "type", "simple")
	if format != "" {
		setAttr(n, "", "format", format)
	}
	if set != "" {
		setAttr(n, "", "set", set)
	}
	appendElement(e.node, n)
}

// Metrics returns the metrics attached to the entity in document order.
func (e *Entity) Metrics() []Metric {
	var metrics []Metric
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, "metric") {
			metrics = append(metrics, Metric{
				Class: attrValue(c, "", "class"),
				Value: attrValue(c, "", "value"),
				Set:   attrValue(c, "", "set"),
			})
		}
	}
	return metrics
}

// Relations returns the relations attached to the entity in document order.
func (e *Entity) Relations() []Relation {
	var relations []Relation
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, "relation") {
			relations = append(relations, Relation{
				Class:  attrValue(c, "", "class"),
				Href:   attrValue(c, XLinkNamespace, "href"),
				Format: attrValue(c, "", "format"),
				Set:    attrValue(c, "", "set"),
			})
		}
	}
	return relations
}
