package folia

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/wikiente/core/errors"
)

// maxLanguageDepth bounds the upward walk when looking for a language.
const maxLanguageDepth = 64

// Sentence is an <s> element of a document.
type Sentence struct {
	doc  *Document
	node *xmlquery.Node
}

// Token is a <w> element together with its span in the sentence text.
// Begin and End are rune offsets; the span is half-open.
type Token struct {
	node     *xmlquery.Node
	text     string
	recorded int // <t offset>, -1 when absent

	Begin int
	End   int
}

// ID returns the xml:id of the token, which may be empty until the token
// is referenced by an annotation.
func (t Token) ID() string {
	return attrValue(t.node, "xml", "id")
}

// Text returns the token text.
func (t Token) Text() string {
	return t.text
}

// RecordedOffset returns the offset stored on the token's text content.
func (t Token) RecordedOffset() (int, bool) {
	return t.recorded, t.recorded >= 0
}

// ID returns the xml:id of the sentence.
func (s *Sentence) ID() string {
	return attrValue(s.node, "xml", "id")
}

// Language returns the class of the language annotation that applies to
// the sentence: its own, or that of the nearest ancestor carrying one.
func (s *Sentence) Language() (string, bool) {
	n := s.node
	for depth := 0; n != nil && depth < maxLanguageDepth; depth++ {
		if n.Type != xmlquery.ElementNode {
			break
		}
		if lang := childElement(n, "lang"); lang != nil {
			if cls := attrValue(lang, "", "class"); cls != "" {
				return cls, true
			}
		}
		if n == s.doc.folia {
			break
		}
		n = n.Parent
	}
	return "", false
}

// Tokens returns the tokens of the sentence with their spans in Text().
// Words without text content get no span and are left out.
func (s *Sentence) Tokens() []Token {
	var tokens []Token
	pos := 0
	for _, w := range s.words() {
		t, ok := textContent(w)
		if !ok {
			continue
		}
		if len(tokens) > 0 {
			pos++ // delimiter
		}
		tok := Token{node: w, text: t.text, recorded: t.offset, Begin: pos}
		pos += utf8.RuneCountInString(t.text)
		tok.End = pos
		tokens = append(tokens, tok)
	}
	return tokens
}

// Text reconstructs the sentence text with the original tokenisation
// retained: token texts joined by a single space, whatever their space
// attributes say. A sentence without textual tokens yields its own text.
func (s *Sentence) Text() string {
	tokens := s.Tokens()
	if len(tokens) == 0 {
		t, _ := textContent(s.node)
		return t.text
	}
	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok.text)
	}
	return sb.String()
}

// ResolveOffsets returns the tokens whose spans intersect the rune range
// [begin, end) of Text(), in order. A range that is empty, or that falls in
// a gap or beyond the text, resolves to no tokens. A token whose recorded
// offset contradicts the sentence text yields an InconsistentTextError.
func (s *Sentence) ResolveOffsets(begin, end int) ([]Token, error) {
	if begin < 0 || end <= begin {
		return nil, nil
	}

	var reference []rune
	if t, ok := textContent(s.node); ok {
		reference = []rune(t.text)
	}

	var span []Token
	for _, tok := range s.Tokens() {
		if tok.End <= begin || tok.Begin >= end {
			continue
		}
		if err := checkOffset(tok, reference); err != nil {
			return nil, err
		}
		span = append(span, tok)
	}
	return span, nil
}

func checkOffset(tok Token, reference []rune) error {
	if tok.recorded < 0 || reference == nil {
		return nil
	}
	want := []rune(tok.text)
	from := min(tok.recorded, len(reference))
	to := min(tok.recorded+len(want), len(reference))
	if got := string(reference[from:to]); got != tok.text {
		return &errors.InconsistentTextError{
			TokenID: tok.ID(),
			Offset:  tok.recorded,
			Want:    tok.text,
			Got:     got,
		}
	}
	return nil
}

// words returns the <w> descendants of the sentence in document order.
func (s *Sentence) words() []*xmlquery.Node {
	var words []*xmlquery.Node
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode || c.Prefix != "" || ignored[c.Data] {
				continue
			}
			if c.Data == "w" {
				words = append(words, c)
				continue
			}
			walk(c)
		}
	}
	walk(s.node)
	return words
}

type text struct {
	text   string
	offset int
}

// textContent returns the current text content (<t> without a class, or
// with class "current") directly below n.
func textContent(n *xmlquery.Node) (text, bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !isElement(c, "t") {
			continue
		}
		if cls := attrValue(c, "", "class"); cls != "" && cls != "current" {
			continue
		}
		t := text{text: strings.TrimSpace(c.InnerText()), offset: -1}
		if v, ok := attr(c, "", "offset"); ok {
			if off, err := strconv.Atoi(v); err == nil && off >= 0 {
				t.offset = off
			}
		}
		return t, true
	}
	return text{offset: -1}, false
}

// AddEntity creates an entity annotation spanning tokens, in the entity
// layer of the sentence for set. The tokens must come from this sentence.
func (s *Sentence) AddEntity(tokens []Token, class, set string) (*Entity, error) {
	if len(tokens) == 0 {
		return nil, errors.NewValidation("entity", "an entity must span at least one token")
	}

	layer := s.layer("entities", set)
	id := s.doc.newID(s.doc.ensureID(s.node), "entity")

	n := newElement("entity")
	setAttr(n, "xml", "id", id)
	setAttr(n, "", "class", class)
	if set != "" {
		setAttr(n, "", "set", set)
	}
	appendElement(layer, n)
	s.doc.ids[id] = n

	for _, tok := range tokens {
		ref := newElement("wref")
		setAttr(ref, "", "id", s.doc.ensureID(tok.node))
		setAttr(ref, "", "t", tok.text)
		appendElement(n, ref)
	}
	return &Entity{doc: s.doc, node: n}, nil
}

// layer returns the annotation layer named name for set below the
// sentence, creating it after the last existing element when missing.
func (s *Sentence) layer(name, set string) *xmlquery.Node {
	var fallback *xmlquery.Node
	for c := s.node.FirstChild; c != nil; c = c.NextSibling {
		if !isElement(c, name) {
			continue
		}
		switch attrValue(c, "", "set") {
		case set:
			return c
		case "":
			if fallback == nil {
				fallback = c
			}
		}
	}
	if fallback != nil {
		return fallback
	}
	layer := newElement(name)
	appendElement(s.node, layer)
	return layer
}
