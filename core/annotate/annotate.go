// Package annotate adds DBpedia Spotlight entities to FoLiA documents.
//
// For each sentence the reconstructed text is sent to an annotation
// service. Every mention that comes back is resolved onto the tokens it
// covers, classified according to the run's Mode, and attached to the
// sentence as an entity annotation with optional metrics and relation.
// Problems with single mentions or sentences are logged and skipped; only
// a missing sentence layer, cancellation or an unhandled transport failure
// stop a document.
package annotate

import (
	"context"
	"fmt"

	"github.com/FocuswithJustin/wikiente/core/errors"
	"github.com/FocuswithJustin/wikiente/core/folia"
	"github.com/FocuswithJustin/wikiente/core/spotlight"
	"github.com/FocuswithJustin/wikiente/internal/logging"
)

// Service finds entity mentions in text.
type Service interface {
	Annotate(ctx context.Context, text string, confidence float64) ([]spotlight.Mention, error)
}

// Config controls an Annotator.
type Config struct {
	Mode         Mode
	Confidence   float64
	Language     string // only annotate sentences in this language when set
	Metrics      bool   // attach the mention's metrics to each entity
	IgnoreErrors bool   // log transport failures and continue
	LabelSets    LabelSets
}

// SentenceState is the processing state of a sentence.
type SentenceState int

const (
	StatePending SentenceState = iota
	StateSkipped
	StateResolved
	StateFailed
	StateDone
)

func (s SentenceState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSkipped:
		return "skipped"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("SentenceState(%d)", int(s))
	}
}

// Outcome is what happened to a single mention.
type Outcome int

const (
	Merged Outcome = iota
	SkippedUnresolved
	SkippedInconsistent
	SkippedUntyped
)

func (o Outcome) String() string {
	switch o {
	case Merged:
		return "merged"
	case SkippedUnresolved:
		return "unable to resolve entity"
	case SkippedInconsistent:
		return "inconsistent text"
	case SkippedUntyped:
		return "no known types"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// SentenceResult reports how a sentence was processed.
type SentenceResult struct {
	ID       string
	State    SentenceState
	Outcomes []Outcome // one per mention, in response order
}

// Stats counts what happened to a document.
type Stats struct {
	Sentences    int
	Skipped      int
	Failed       int
	Mentions     int
	Entities     int
	Unresolved   int
	Inconsistent int
	Untyped      int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Sentences += o.Sentences
	s.Skipped += o.Skipped
	s.Failed += o.Failed
	s.Mentions += o.Mentions
	s.Entities += o.Entities
	s.Unresolved += o.Unresolved
	s.Inconsistent += o.Inconsistent
	s.Untyped += o.Untyped
}

func (s *Stats) record(r SentenceResult) {
	s.Sentences++
	switch r.State {
	case StateSkipped:
		s.Skipped++
	case StateFailed:
		s.Failed++
	}
	for _, o := range r.Outcomes {
		s.Mentions++
		switch o {
		case Merged:
			s.Entities++
		case SkippedUnresolved:
			s.Unresolved++
		case SkippedInconsistent:
			s.Inconsistent++
		case SkippedUntyped:
			s.Untyped++
		}
	}
}

// Annotator applies a Service to documents.
type Annotator struct {
	service Service
	cfg     Config
}

// New validates cfg and returns an Annotator. An unknown mode is reported
// here, before any document is touched.
func New(service Service, cfg Config) (*Annotator, error) {
	if service == nil {
		return nil, errors.NewValidation("service", "an annotation service is required")
	}
	if _, err := ParseMode(int(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.Confidence < 0 || cfg.Confidence > 1 {
		return nil, errors.NewValidation("confidence", fmt.Sprintf("must be between 0 and 1, got %g", cfg.Confidence))
	}
	cfg.LabelSets = cfg.LabelSets.withDefaults()
	return &Annotator{service: service, cfg: cfg}, nil
}

// Config returns the effective configuration.
func (a *Annotator) Config() Config {
	return a.cfg
}

// AnnotateDocument annotates every sentence of doc in document order. The
// document is modified in place; on error it must not be written.
func (a *Annotator) AnnotateDocument(ctx context.Context, doc *folia.Document) (Stats, error) {
	var stats Stats
	if !doc.Declared(folia.SentenceAnnotation) {
		return stats, errors.NewMissingAnnotationLayer(string(folia.SentenceAnnotation), logging.GetDocument(ctx))
	}

	for _, s := range doc.Sentences() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		result, err := a.AnnotateSentence(ctx, doc, s)
		stats.record(result)
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// AnnotateSentence runs one sentence through the service and merges the
// mentions it returns. Only fatal conditions are returned as errors.
func (a *Annotator) AnnotateSentence(ctx context.Context, doc *folia.Document, s *folia.Sentence) (SentenceResult, error) {
	result := SentenceResult{ID: s.ID(), State: StatePending}

	if want := a.cfg.Language; want != "" {
		lang, ok := s.Language()
		if !ok {
			logging.SentenceSkipped(ctx, result.ID, "no language information")
			result.State = StateSkipped
			return result, nil
		}
		if lang != want {
			logging.SentenceSkipped(ctx, result.ID, "language does not match", "expected", want, "found", lang)
			result.State = StateSkipped
			return result, nil
		}
	}

	text := s.Text()
	if text == "" {
		logging.SentenceSkipped(ctx, result.ID, "no text")
		result.State = StateSkipped
		return result, nil
	}
	logging.DebugContext(ctx, "processing_sentence", "sentence", result.ID, "text", text)

	mentions, err := a.service.Annotate(ctx, text, a.cfg.Confidence)
	if err != nil {
		result.State = StateFailed
		switch {
		case ctx.Err() != nil:
			return result, ctx.Err()
		case errors.Is(err, errors.ErrService):
			logging.ServiceFailure(ctx, result.ID, err)
			return result, nil
		case errors.Is(err, errors.ErrTransport) && a.cfg.IgnoreErrors:
			logging.TransportFailure(ctx, result.ID, err)
			return result, nil
		default:
			return result, err
		}
	}
	result.State = StateResolved

	for _, m := range mentions {
		logging.DebugContext(ctx, "mention", "sentence", result.ID, "surface_form", m.SurfaceForm,
			"offset", m.Offset, "uri", m.URI, "types", m.Types)
		result.Outcomes = append(result.Outcomes, a.merge(ctx, doc, s, m))
	}
	result.State = StateDone
	return result, nil
}

// merge turns a mention into an entity on s, or reports why it cannot.
func (a *Annotator) merge(ctx context.Context, doc *folia.Document, s *folia.Sentence, m spotlight.Mention) Outcome {
	tokens, err := s.ResolveOffsets(m.Offset, m.End())
	if err != nil {
		logging.MentionSkipped(ctx, s.ID(), m.SurfaceForm, SkippedInconsistent.String(), "error", err.Error())
		return SkippedInconsistent
	}
	if len(tokens) == 0 {
		logging.MentionSkipped(ctx, s.ID(), m.SurfaceForm, SkippedUnresolved.String(), "offset", m.Offset)
		return SkippedUnresolved
	}

	class, ok := a.cfg.Mode.classify(m)
	if !ok {
		logging.MentionSkipped(ctx, s.ID(), m.SurfaceForm, SkippedUntyped.String(), "types", m.Types)
		return SkippedUntyped
	}

	sets := a.cfg.LabelSets
	entitySet := sets.Entities(a.cfg.Mode)
	doc.Declare(folia.EntityAnnotation, entitySet)
	entity, err := s.AddEntity(tokens, class, entitySet)
	if err != nil {
		logging.MentionSkipped(ctx, s.ID(), m.SurfaceForm, SkippedUnresolved.String(), "error", err.Error())
		return SkippedUnresolved
	}

	if a.cfg.Metrics {
		if metrics := m.Metrics(); len(metrics) > 0 {
			doc.Declare(folia.MetricAnnotation, sets.Metrics)
			for _, f := range metrics {
				entity.AddMetric(f.Key, f.Value, sets.Metrics)
			}
		}
	}

	if a.cfg.Mode == CoarseGrained {
		doc.Declare(folia.RelationAnnotation, sets.Relations)
		entity.AddRelation(RelationClass, m.URI, RelationFormat, sets.Relations)
	}
	return Merged
}
