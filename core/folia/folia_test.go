package folia

import (
	"strings"
	"testing"

	"github.com/FocuswithJustin/wikiente/core/errors"
)

const sampleV2 = `<?xml version="1.0" encoding="utf-8"?>
<FoLiA xmlns="http://ilk.uvt.nl/folia" xml:id="doc" version="2.0">
  <metadata type="native">
    <annotations>
      <text-annotation/>
      <sentence-annotation/>
      <token-annotation/>
      <lang-annotation set="iso"/>
    </annotations>
  </metadata>
  <text xml:id="doc.text">
    <p xml:id="doc.p.1">
      <lang class="nld"/>
      <s xml:id="doc.s.1">
        <t>Barack Obama visited Berlin.</t>
        <w xml:id="doc.s.1.w.1"><t offset="0">Barack</t></w>
        <w xml:id="doc.s.1.w.2"><t offset="7">Obama</t></w>
        <w xml:id="doc.s.1.w.3"><t offset="13">visited</t></w>
        <w xml:id="doc.s.1.w.4" space="no"><t offset="21">Berlin</t></w>
        <w xml:id="doc.s.1.w.5"><t offset="27">.</t></w>
      </s>
    </p>
    <p xml:id="doc.p.2">
      <s xml:id="doc.s.2">
        <w><t>Hallo</t></w>
        <w><t>wereld</t></w>
        <original>
          <w xml:id="doc.s.2.old"><t>Halo</t></w>
        </original>
      </s>
    </p>
  </text>
</FoLiA>
`

const sampleLegacy = `<?xml version="1.0" encoding="utf-8"?>
<FoLiA xmlns="http://ilk.uvt.nl/folia" xml:id="old" version="1.5">
  <metadata type="native">
    <annotations>
      <token-annotation/>
    </annotations>
  </metadata>
  <text xml:id="old.text">
    <s xml:id="old.s.1">
      <w xml:id="old.s.1.w.1"><t>Amsterdam</t></w>
    </s>
  </text>
</FoLiA>
`

const sampleUnsegmented = `<?xml version="1.0" encoding="utf-8"?>
<FoLiA xmlns="http://ilk.uvt.nl/folia" xml:id="flat" version="2.0">
  <metadata type="native">
    <annotations>
      <text-annotation/>
    </annotations>
  </metadata>
  <text xml:id="flat.text">
    <t>Just some text.</t>
  </text>
</FoLiA>
`

func mustParse(t *testing.T, data string) *Document {
	t.Helper()
	doc, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

// TestParse verifies loading valid and invalid documents.
func TestParse(t *testing.T) {
	doc := mustParse(t, sampleV2)
	if doc.ID() != "doc" {
		t.Errorf("ID() = %q, want doc", doc.ID())
	}
	if doc.Version() != "2.0" {
		t.Errorf("Version() = %q, want 2.0", doc.Version())
	}
	if doc.Legacy() {
		t.Error("2.0 document should not be legacy")
	}

	tests := []struct {
		name string
		xml  string
	}{
		{"malformed", "<FoLiA><s></FoLiA>"},
		{"not folia", `<?xml version="1.0"?><html><body/></html>`},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.xml))
			if err == nil {
				t.Fatal("Parse should fail")
			}
			var perr *errors.ParseError
			if !errors.As(err, &perr) {
				t.Errorf("expected ParseError, got %T", err)
			}
		})
	}
}

// TestDeclared verifies declaration lookup including the legacy fallback.
func TestDeclared(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want bool
	}{
		{"declared", sampleV2, true},
		{"legacy with sentences", sampleLegacy, true},
		{"not declared", sampleUnsegmented, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.xml)
			if got := doc.Declared(SentenceAnnotation); got != tt.want {
				t.Errorf("Declared(sentence) = %v, want %v", got, tt.want)
			}
		})
	}

	doc := mustParse(t, sampleV2)
	if !doc.DeclaredSet(LangAnnotation, "iso") {
		t.Error("lang annotation with set iso should be declared")
	}
	if doc.DeclaredSet(LangAnnotation, "other") {
		t.Error("lang annotation with set other should not be declared")
	}
	if len(doc.Declarations()) != 4 {
		t.Errorf("Declarations() = %v, want 4 entries", doc.Declarations())
	}
}

// TestSentences verifies enumeration and text reconstruction.
func TestSentences(t *testing.T) {
	doc := mustParse(t, sampleV2)
	sentences := doc.Sentences()
	if len(sentences) != 2 {
		t.Fatalf("Sentences() returned %d, want 2", len(sentences))
	}

	if got := sentences[0].Text(); got != "Barack Obama visited Berlin ." {
		t.Errorf("Text() = %q", got)
	}
	// words below <original> are not part of the sentence
	if got := sentences[1].Text(); got != "Hallo wereld" {
		t.Errorf("Text() = %q", got)
	}
	if sentences[0].Text() != sentences[0].Text() {
		t.Error("Text() is not stable across calls")
	}

	tokens := sentences[0].Tokens()
	wantSpans := [][2]int{{0, 6}, {7, 12}, {13, 20}, {21, 27}, {28, 29}}
	if len(tokens) != len(wantSpans) {
		t.Fatalf("Tokens() returned %d, want %d", len(tokens), len(wantSpans))
	}
	for i, tok := range tokens {
		if tok.Begin != wantSpans[i][0] || tok.End != wantSpans[i][1] {
			t.Errorf("token %d span = [%d,%d), want %v", i, tok.Begin, tok.End, wantSpans[i])
		}
	}
	if off, ok := tokens[3].RecordedOffset(); !ok || off != 21 {
		t.Errorf("RecordedOffset() = %d, %v", off, ok)
	}
}

// TestSentenceTextMultibyte verifies offsets are counted in characters.
func TestSentenceTextMultibyte(t *testing.T) {
	doc := mustParse(t, `<FoLiA xmlns="http://ilk.uvt.nl/folia" xml:id="d" version="2.0">
  <text xml:id="d.text">
    <s xml:id="d.s.1">
      <w xml:id="d.s.1.w.1"><t>Zoë</t></w>
      <w xml:id="d.s.1.w.2"><t>Brüssel</t></w>
    </s>
  </text>
</FoLiA>`)
	s := doc.Sentences()[0]
	tokens, err := s.ResolveOffsets(4, 11)
	if err != nil {
		t.Fatalf("ResolveOffsets failed: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Text() != "Brüssel" {
		t.Errorf("ResolveOffsets(4, 11) = %v", tokens)
	}
}

// TestResolveOffsets verifies mapping character ranges onto tokens.
func TestResolveOffsets(t *testing.T) {
	s := mustParse(t, sampleV2).Sentences()[0]

	tests := []struct {
		name       string
		begin, end int
		want       []string
	}{
		{"single token", 21, 27, []string{"doc.s.1.w.4"}},
		{"two tokens", 0, 12, []string{"doc.s.1.w.1", "doc.s.1.w.2"}},
		{"partial overlap", 3, 9, []string{"doc.s.1.w.1", "doc.s.1.w.2"}},
		{"whole sentence", 0, 29, []string{"doc.s.1.w.1", "doc.s.1.w.2", "doc.s.1.w.3", "doc.s.1.w.4", "doc.s.1.w.5"}},
		{"gap", 6, 7, nil},
		{"beyond text", 40, 46, nil},
		{"empty range", 5, 5, nil},
		{"negative", -3, 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := s.ResolveOffsets(tt.begin, tt.end)
			if err != nil {
				t.Fatalf("ResolveOffsets failed: %v", err)
			}
			var got []string
			for _, tok := range tokens {
				got = append(got, tok.ID())
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ResolveOffsets(%d, %d) = %v, want %v", tt.begin, tt.end, got, tt.want)
			}
		})
	}
}

// TestResolveOffsetsInconsistent verifies recorded offsets are checked.
func TestResolveOffsetsInconsistent(t *testing.T) {
	doc := mustParse(t, `<FoLiA xmlns="http://ilk.uvt.nl/folia" xml:id="d" version="2.0">
  <text xml:id="d.text">
    <s xml:id="d.s.1">
      <t>Barack Obama</t>
      <w xml:id="d.s.1.w.1"><t offset="0">Barack</t></w>
      <w xml:id="d.s.1.w.2"><t offset="3">Obama</t></w>
    </s>
  </text>
</FoLiA>`)
	s := doc.Sentences()[0]

	if _, err := s.ResolveOffsets(0, 6); err != nil {
		t.Errorf("consistent token should resolve: %v", err)
	}

	_, err := s.ResolveOffsets(7, 12)
	if !errors.Is(err, errors.ErrInconsistentText) {
		t.Fatalf("expected ErrInconsistentText, got %v", err)
	}
	var ierr *errors.InconsistentTextError
	if !errors.As(err, &ierr) || ierr.TokenID != "d.s.1.w.2" || ierr.Offset != 3 {
		t.Errorf("unexpected error detail: %+v", ierr)
	}
}

// TestLanguage verifies language lookup along the parent chain.
func TestLanguage(t *testing.T) {
	sentences := mustParse(t, sampleV2).Sentences()

	lang, ok := sentences[0].Language()
	if !ok || lang != "nld" {
		t.Errorf("Language() = %q, %v, want nld", lang, ok)
	}
	if lang, ok := sentences[1].Language(); ok {
		t.Errorf("Language() = %q, want none", lang)
	}
}

// TestAddEntity verifies entity construction and id assignment.
func TestAddEntity(t *testing.T) {
	doc := mustParse(t, sampleV2)
	sentences := doc.Sentences()

	tokens, err := sentences[0].ResolveOffsets(0, 12)
	if err != nil {
		t.Fatalf("ResolveOffsets failed: %v", err)
	}
	e, err := sentences[0].AddEntity(tokens, "http://dbpedia.org/resource/Barack_Obama", "dbpedia")
	if err != nil {
		t.Fatalf("AddEntity failed: %v", err)
	}
	if e.ID() != "doc.s.1.entity.1" {
		t.Errorf("ID() = %q", e.ID())
	}
	if e.Class() != "http://dbpedia.org/resource/Barack_Obama" || e.Set() != "dbpedia" {
		t.Errorf("Class() = %q, Set() = %q", e.Class(), e.Set())
	}
	if got := strings.Join(e.TokenIDs(), ","); got != "doc.s.1.w.1,doc.s.1.w.2" {
		t.Errorf("TokenIDs() = %s", got)
	}
	if e.Text() != "Barack Obama" {
		t.Errorf("Text() = %q", e.Text())
	}

	second, err := sentences[0].AddEntity(tokens[1:], "x", "dbpedia")
	if err != nil {
		t.Fatalf("AddEntity failed: %v", err)
	}
	if second.ID() != "doc.s.1.entity.2" {
		t.Errorf("second ID() = %q", second.ID())
	}

	if _, err := sentences[0].AddEntity(nil, "x", "dbpedia"); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("empty span should fail with ErrInvalidInput, got %v", err)
	}

	out := string(doc.Serialize())
	want := []string{
		"\n        <entities>\n          <entity xml:id=\"doc.s.1.entity.1\"",
		"\n            <wref id=\"doc.s.1.w.1\" t=\"Barack\"/>",
		"\n            <wref id=\"doc.s.1.w.2\" t=\"Obama\"/>",
		"\n        </entities>\n      </s>",
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}

	if n := len(mustParse(t, out).Entities()); n != 2 {
		t.Errorf("reparsed document has %d entities, want 2", n)
	}
}

// TestAddEntityAssignsWordIDs verifies words without ids get one.
func TestAddEntityAssignsWordIDs(t *testing.T) {
	doc := mustParse(t, sampleV2)
	s := doc.Sentences()[1]

	tokens, err := s.ResolveOffsets(0, 5)
	if err != nil {
		t.Fatalf("ResolveOffsets failed: %v", err)
	}
	e, err := s.AddEntity(tokens, "greeting", "")
	if err != nil {
		t.Fatalf("AddEntity failed: %v", err)
	}
	if got := e.TokenIDs(); len(got) != 1 || got[0] != "doc.s.2.w.1" {
		t.Errorf("TokenIDs() = %v", got)
	}
	if !strings.Contains(string(doc.Serialize()), `<w xml:id="doc.s.2.w.1"><t>Hallo</t></w>`) {
		t.Error("word id not written")
	}
}

// TestMetricsAndRelations verifies sub-annotations survive serialization.
func TestMetricsAndRelations(t *testing.T) {
	doc := mustParse(t, sampleV2)
	s := doc.Sentences()[0]
	tokens, _ := s.ResolveOffsets(21, 27)
	e, err := s.AddEntity(tokens, "loc", "ne")
	if err != nil {
		t.Fatalf("AddEntity failed: %v", err)
	}
	e.AddMetric("similarityScore", "0.97", "metrics")
	e.AddMetric("support", "12", "metrics")
	e.AddRelation("dbpedia", "http://dbpedia.org/resource/Berlin", "application/rdf+xml", "relations")

	out := doc.Serialize()
	if !strings.Contains(string(out), `xmlns:xlink="http://www.w3.org/1999/xlink"`) {
		t.Error("xlink namespace not bound")
	}
	if !strings.Contains(string(out), `<relation class="dbpedia" xlink:href="http://dbpedia.org/resource/Berlin" xlink:type="simple"`) {
		t.Errorf("relation not written:\n%s", out)
	}

	entities := mustParse(t, string(out)).Entities()
	if len(entities) != 1 {
		t.Fatalf("reparsed document has %d entities, want 1", len(entities))
	}
	metrics := entities[0].Metrics()
	if len(metrics) != 2 || metrics[0] != (Metric{"similarityScore", "0.97", "metrics"}) || metrics[1].Value != "12" {
		t.Errorf("Metrics() = %+v", metrics)
	}
	relations := entities[0].Relations()
	if len(relations) != 1 || relations[0].Href != "http://dbpedia.org/resource/Berlin" || relations[0].Format != "application/rdf+xml" {
		t.Errorf("Relations() = %+v", relations)
	}
}

// TestDeclareProvenance verifies declarations in FoLiA 2 documents.
func TestDeclareProvenance(t *testing.T) {
	doc := mustParse(t, sampleV2)
	doc.SetProcessor(Processor{ID: "wikiente.test", Name: "wikiente", Version: "0.1.0", Type: "auto"})
	doc.Declare(EntityAnnotation, "dbpedia")
	doc.Declare(MetricAnnotation, "metrics")
	doc.Declare(EntityAnnotation, "dbpedia")

	out := string(doc.Serialize())
	for _, w := range []string{
		`<entity-annotation set="dbpedia">`,
		`<annotator processor="wikiente.test"/>`,
		`<metric-annotation set="metrics">`,
		`<provenance>`,
		`<processor xml:id="wikiente.test" name="wikiente" version="0.1.0" type="auto"/>`,
	} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
	if n := strings.Count(out, "<entity-annotation"); n != 1 {
		t.Errorf("entity-annotation declared %d times", n)
	}
	if n := strings.Count(out, "<processor "); n != 1 {
		t.Errorf("processor written %d times", n)
	}

	again := mustParse(t, out)
	if !again.DeclaredSet(EntityAnnotation, "dbpedia") {
		t.Error("declaration lost on reparse")
	}
}

// TestDeclareLegacy verifies annotator attributes in legacy documents.
func TestDeclareLegacy(t *testing.T) {
	doc := mustParse(t, sampleLegacy)
	if !doc.Legacy() {
		t.Fatal("1.5 document should be legacy")
	}
	doc.SetProcessor(NewProcessor("wikiente", "0.1.0"))
	doc.Declare(EntityAnnotation, "dbpedia")

	out := string(doc.Serialize())
	if !strings.Contains(out, `<entity-annotation set="dbpedia" annotator="wikiente" annotatortype="auto"/>`) {
		t.Errorf("legacy declaration not written:\n%s", out)
	}
	if strings.Contains(out, "<provenance>") {
		t.Error("legacy documents should not get provenance")
	}
}

// TestNewProcessor verifies generated processor identifiers.
func TestNewProcessor(t *testing.T) {
	a := NewProcessor("wikiente", "1.0")
	b := NewProcessor("wikiente", "1.0")
	if a.ID == b.ID {
		t.Error("processor ids should be unique")
	}
	if !strings.HasPrefix(a.ID, "wikiente.") {
		t.Errorf("ID = %q", a.ID)
	}
	if a.Type != "auto" || a.Begin.IsZero() {
		t.Errorf("unexpected processor %+v", a)
	}
}

// TestSerializeKeepsLayout verifies an unmodified document keeps its text
// and its prolog.
func TestSerializeKeepsLayout(t *testing.T) {
	stylesheet := `<?xml-stylesheet type="text/xsl" href="folia2html.xsl"?>`
	doctype := `<!DOCTYPE FoLiA>`
	src := strings.Replace(sampleV2, xmlDeclaration+"\n", xmlDeclaration+"\n"+stylesheet+"\n"+doctype+"\n", 1)
	if src == sampleV2 {
		t.Fatal("sample does not start with the expected declaration")
	}
	out := string(mustParse(t, src).Serialize())
	if !strings.HasPrefix(out, xmlDeclaration+"\n"+stylesheet+"\n"+doctype+"\n<FoLiA") {
		t.Errorf("prolog not kept:\n%s", out)
	}
	for _, w := range []string{
		xmlDeclaration,
		"\n    <p xml:id=\"doc.p.1\">\n      <lang class=\"nld\"/>",
		`<w xml:id="doc.s.1.w.4" space="no"><t offset="21">Berlin</t></w>`,
	} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
	if !strings.HasSuffix(out, "</FoLiA>\n") {
		t.Error("output should end with the root element and a newline")
	}
}
