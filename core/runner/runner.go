// Package runner drives the per-file pipeline: read a document, annotate it,
// serialize it and write it to its destination.
package runner

import (
	"context"
	"io"
	"os"
	"os/user"
	"strings"

	"github.com/FocuswithJustin/wikiente/core/annotate"
	"github.com/FocuswithJustin/wikiente/core/errors"
	"github.com/FocuswithJustin/wikiente/core/folia"
	"github.com/FocuswithJustin/wikiente/internal/fileutil"
	"github.com/FocuswithJustin/wikiente/internal/logging"
	"github.com/FocuswithJustin/wikiente/internal/validation"
	"github.com/FocuswithJustin/wikiente/internal/workerpool"
)

// ProcessorName is the name recorded in provenance data.
const ProcessorName = "wikiente"

// Options configures a Runner.
type Options struct {
	// Output is empty to overwrite the sources, "-" for standard output,
	// an existing directory, or a file path when there is a single input.
	Output string
	// Jobs is the number of files processed in parallel.
	Jobs int
	// Stdout receives documents when Output is "-".
	Stdout io.Writer
	// Version is recorded in provenance data.
	Version string
	// Command is the invocation recorded in provenance data.
	Command string
}

// FileResult is the outcome of processing one input.
type FileResult struct {
	Path        string
	Destination string
	Stats       annotate.Stats
	Digest      string
	Unchanged   bool
	Err         error

	data []byte
}

// Summary aggregates the results of a run.
type Summary struct {
	Files        int
	Written      int
	Unchanged    int
	Failed       int
	MissingLayer int
	Stats        annotate.Stats
	Results      []FileResult
}

// Runner processes documents with an Annotator.
type Runner struct {
	annotator *annotate.Annotator
	opts      Options
	host      string
	user      string
}

// New creates a Runner.
func New(annotator *annotate.Annotator, opts Options) (*Runner, error) {
	if annotator == nil {
		return nil, errors.NewValidation("annotator", "annotator is required")
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Jobs <= 0 {
		opts.Jobs = 1
	}

	r := &Runner{annotator: annotator, opts: opts}
	r.host, _ = os.Hostname()
	if u, err := user.Current(); err == nil {
		r.user = u.Username
	}
	return r, nil
}

type job struct {
	path        string
	destination string
}

// Run processes inputs and writes each result in input order. Failures of
// single documents are recorded in the summary and do not stop the run. A
// fatal error cancels the remaining work and is returned.
func (r *Runner) Run(ctx context.Context, inputs []string) (Summary, error) {
	var summary Summary
	if len(inputs) == 0 {
		return summary, errors.NewValidation("files", "no input documents")
	}

	mode, err := validation.ValidateOutput(r.opts.Output, len(inputs))
	if err != nil {
		return summary, r.outputError(err)
	}
	dests, err := validation.ValidateDestinations(mode, r.opts.Output, inputs)
	if err != nil {
		return summary, r.outputError(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make([]job, len(inputs))
	for i, path := range inputs {
		jobs[i] = job{path: path, destination: dests[i]}
	}

	var fatal error
	workerpool.Ordered(r.opts.Jobs, jobs, func(j job) FileResult {
		res := r.process(ctx, j)
		if errors.IsFatal(res.Err) {
			cancel()
		}
		return res
	}, func(_ int, res FileResult) {
		dctx := logging.WithDocument(ctx, res.Path)
		switch {
		case res.Err != nil:
		case fatal != nil:
			// aborted runs write nothing past the fatal document
			res.Err = context.Canceled
		default:
			res.Err = r.write(dctx, mode, &res)
		}
		res.data = nil

		summary.Files++
		summary.Stats.Add(res.Stats)
		switch {
		case res.Err == nil && res.Unchanged:
			summary.Unchanged++
		case res.Err == nil:
			summary.Written++
		case fatal != nil && errors.Is(res.Err, context.Canceled):
			summary.Failed++
		default:
			summary.Failed++
			if errors.Is(res.Err, errors.ErrMissingAnnotationLayer) {
				summary.MissingLayer++
			}
			logging.DocumentFailed(dctx, res.Err)
			if fatal == nil && errors.IsFatal(res.Err) {
				fatal = res.Err
			}
		}
		summary.Results = append(summary.Results, res)
	})

	if fatal != nil {
		return summary, fatal
	}
	return summary, ctx.Err()
}

func (r *Runner) outputError(err error) error {
	verr := errors.NewValidation("output", err.Error())
	verr.Value = r.opts.Output
	return verr
}

// process loads and annotates one document. Nothing is written here.
func (r *Runner) process(ctx context.Context, j job) FileResult {
	res := FileResult{Path: j.path, Destination: j.destination}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	ctx = logging.WithDocument(ctx, j.path)

	if _, err := validation.ValidateInput(j.path); err != nil {
		res.Err = errors.NewIO("read", j.path, err)
		return res
	}
	data, err := fileutil.ReadFile(j.path)
	if err != nil {
		res.Err = err
		return res
	}

	doc, err := folia.Parse(data)
	if err != nil {
		var perr *errors.ParseError
		if errors.As(err, &perr) {
			perr.Path = j.path
		}
		res.Err = err
		return res
	}
	doc.SetProcessor(r.processor())

	stats, err := r.annotator.AnnotateDocument(ctx, doc)
	res.Stats = stats
	if err != nil {
		res.Err = err
		return res
	}
	logging.DebugContext(ctx, "document_annotated",
		"sentences", stats.Sentences,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"mentions", stats.Mentions,
		"entities", stats.Entities)

	res.data = doc.Serialize()
	res.Digest = fileutil.Digest(res.data)
	return res
}

// write sends a processed document to its destination.
func (r *Runner) write(ctx context.Context, mode validation.OutputMode, res *FileResult) error {
	if mode == validation.OutputStdout {
		if _, err := r.opts.Stdout.Write(res.data); err != nil {
			return errors.NewIO("write", validation.StdoutPath, err)
		}
		logging.DocumentWritten(ctx, validation.StdoutPath, res.Digest, len(res.data))
		return nil
	}

	if existing, err := fileutil.ReadFile(res.Destination); err == nil && fileutil.Digest(existing) == res.Digest {
		res.Unchanged = true
		logging.DebugContext(ctx, "document_unchanged", "destination", res.Destination, "blake3", res.Digest)
		return nil
	}
	if err := fileutil.WriteFileAtomic(res.Destination, res.data); err != nil {
		return err
	}
	logging.DocumentWritten(ctx, res.Destination, res.Digest, len(res.data))
	return nil
}

// processor describes this run for provenance data. Every document gets
// its own processor id.
func (r *Runner) processor() folia.Processor {
	p := folia.NewProcessor(ProcessorName, r.opts.Version)
	p.Host = r.host
	p.User = r.user
	p.Command = strings.TrimSpace(r.opts.Command)
	return p
}
