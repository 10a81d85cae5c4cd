package annotate

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// TypeRef is one entry of a Spotlight type list, e.g. "DBpedia:Person".
type TypeRef struct {
	Vocabulary string // "DBpedia", "Schema", "Wikidata", ...
	Name       string
}

func (t TypeRef) String() string {
	if t.Vocabulary == "" {
		return t.Name
	}
	return t.Vocabulary + ":" + t.Name
}

// typeListGrammar accepts comma separated, possibly empty, entries.
//
//nolint:govet // participle grammar tags are not standard struct tags
type typeListGrammar struct {
	Entries []*typeGrammar `( @@ | "," )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type typeGrammar struct {
	Parts []string `@Ident ( ":" @Ident )*`
}

var typeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[^,:\s]+`},
	{Name: "Punct", Pattern: `[,:]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var typeParser = participle.MustBuild[typeListGrammar](
	participle.Lexer(typeLexer),
	participle.Elide("Whitespace"),
)

// ParseTypes parses a comma separated type list as sent by Spotlight.
// Entries are split on their first colon only, so URL types such as
// "Http://xmlns.com/foaf/0.1/Person" keep their name intact.
func ParseTypes(s string) ([]TypeRef, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parsed, err := typeParser.ParseString("", s)
	if err != nil {
		return nil, err
	}
	refs := make([]TypeRef, 0, len(parsed.Entries))
	for _, e := range parsed.Entries {
		if len(e.Parts) == 1 {
			refs = append(refs, TypeRef{Name: e.Parts[0]})
			continue
		}
		refs = append(refs, TypeRef{Vocabulary: e.Parts[0], Name: strings.Join(e.Parts[1:], ":")})
	}
	return refs, nil
}

// coarseClasses lists the named entity classes in priority order with the
// DBpedia types that map to them.
var coarseClasses = []struct {
	class string
	types []string
}{
	{"loc", []string{"Place", "Location"}},
	{"per", []string{"Person"}},
	{"eve", []string{"Event"}},
	{"prod", []string{"Product"}},
	{"time", []string{"Time"}},
	{"org", []string{"Organization"}},
}

// CoarseClass returns the named entity class for a type list. The first
// class in priority order with a matching DBpedia type wins, regardless of
// the order of the list. A list that does not parse has no known types.
func CoarseClass(types string) (string, bool) {
	refs, err := ParseTypes(types)
	if err != nil {
		return "", false
	}
	has := make(map[string]bool, len(refs))
	for _, r := range refs {
		if r.Vocabulary == "DBpedia" {
			has[r.Name] = true
		}
	}
	for _, c := range coarseClasses {
		for _, t := range c.types {
			if has[t] {
				return c.class, true
			}
		}
	}
	return "", false
}
