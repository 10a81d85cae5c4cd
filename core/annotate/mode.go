package annotate

import (
	"fmt"

	"github.com/FocuswithJustin/wikiente/core/errors"
	"github.com/FocuswithJustin/wikiente/core/spotlight"
)

// Mode selects how mentions are turned into entities.
type Mode int

const (
	// FineGrained uses the resource URI as the entity class.
	FineGrained Mode = 1
	// CoarseGrained assigns a broad named entity class and links the
	// resource through a relation.
	CoarseGrained Mode = 2
)

// ParseMode validates a numeric mode as given on the command line.
func ParseMode(n int) (Mode, error) {
	switch m := Mode(n); m {
	case FineGrained, CoarseGrained:
		return m, nil
	default:
		return 0, &errors.InvalidModeError{Mode: n}
	}
}

func (m Mode) String() string {
	switch m {
	case FineGrained:
		return "fine-grained"
	case CoarseGrained:
		return "coarse-grained"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// RelationClass and RelationFormat describe the link added in coarse mode.
const (
	RelationClass  = "dbpedia"
	RelationFormat = "application/rdf+xml"
)

// LabelSets holds the set definitions annotations are created in.
type LabelSets struct {
	FineGrained   string // entity classes are DBpedia resources
	CoarseGrained string // entity classes are named entity categories
	Metrics       string
	Relations     string
}

// DefaultLabelSets are the published FoLiA set definitions.
var DefaultLabelSets = LabelSets{
	FineGrained:   "https://raw.githubusercontent.com/proycon/folia/master/setdefinitions/spotlight/dbpedia.foliaset.ttl",
	CoarseGrained: "https://raw.githubusercontent.com/proycon/folia/master/setdefinitions/namedentities.foliaset.ttl",
	Metrics:       "https://raw.githubusercontent.com/proycon/folia/master/setdefinitions/spotlight/metrics.foliaset.ttl",
	Relations:     "https://raw.githubusercontent.com/proycon/folia/master/setdefinitions/babelente.relations.ttl",
}

// withDefaults fills empty entries from DefaultLabelSets.
func (l LabelSets) withDefaults() LabelSets {
	if l.FineGrained == "" {
		l.FineGrained = DefaultLabelSets.FineGrained
	}
	if l.CoarseGrained == "" {
		l.CoarseGrained = DefaultLabelSets.CoarseGrained
	}
	if l.Metrics == "" {
		l.Metrics = DefaultLabelSets.Metrics
	}
	if l.Relations == "" {
		l.Relations = DefaultLabelSets.Relations
	}
	return l
}

// Entities returns the entity set used in mode m.
func (l LabelSets) Entities(m Mode) string {
	if m == CoarseGrained {
		return l.CoarseGrained
	}
	return l.FineGrained
}

// classify returns the entity class for a mention, or false when the mode
// cannot label it.
func (m Mode) classify(mention spotlight.Mention) (string, bool) {
	switch m {
	case FineGrained:
		return mention.URI, mention.URI != ""
	case CoarseGrained:
		return CoarseClass(mention.Types)
	default:
		return "", false
	}
}
