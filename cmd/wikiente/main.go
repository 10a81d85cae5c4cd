// Command wikiente annotates FoLiA documents with DBpedia entities found by
// a DBpedia Spotlight server.
package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/FocuswithJustin/wikiente/core/annotate"
	"github.com/FocuswithJustin/wikiente/core/errors"
	"github.com/FocuswithJustin/wikiente/core/runner"
	"github.com/FocuswithJustin/wikiente/core/spotlight"
	"github.com/FocuswithJustin/wikiente/internal/logging"
)

const version = "0.1.0"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitFatal   = 2
)

// CLI defines the command-line interface for wikiente.
type CLI struct {
	Server     string           `short:"s" default:"${server}" env:"WIKIENTE_SERVER" help:"DBpedia Spotlight base URL"`
	Mode       int              `short:"m" default:"1" env:"WIKIENTE_MODE" help:"1 = entity class is the DBpedia URI; 2 = coarse class with a relation to DBpedia"`
	Confidence float64          `short:"c" default:"0.5" env:"WIKIENTE_CONFIDENCE" help:"Confidence threshold"`
	Support    int              `default:"0" env:"WIKIENTE_SUPPORT" help:"Minimum support of a resource"`
	Types      string           `env:"WIKIENTE_TYPES" help:"Comma-separated Spotlight type filter"`
	Policy     string           `env:"WIKIENTE_POLICY" help:"Policy of the type filter (whitelist or blacklist)"`
	Language   string           `short:"l" env:"WIKIENTE_LANGUAGE" help:"Only annotate sentences in this language"`
	Metrics    bool             `short:"M" env:"WIKIENTE_METRICS" help:"Attach the Spotlight scores as metrics"`
	Output     string           `short:"o" env:"WIKIENTE_OUTPUT" help:"Output file, existing directory, or - for stdout (default: overwrite the input)"`
	Ignore     bool             `short:"i" env:"WIKIENTE_IGNORE" help:"Ignore errors reaching the Spotlight server"`
	Jobs       int              `short:"j" default:"1" env:"WIKIENTE_JOBS" help:"Number of files processed in parallel"`
	Timeout    time.Duration    `default:"60s" env:"WIKIENTE_TIMEOUT" help:"HTTP request timeout (0 disables)"`
	LogFormat  string           `name:"log-format" enum:"text,json,pretty" default:"text" env:"WIKIENTE_LOG_FORMAT" help:"Diagnostic format (text, json, pretty)"`
	Debug      bool             `short:"d" env:"WIKIENTE_DEBUG" help:"Debug diagnostics"`
	Version    kong.VersionFlag `help:"Print version information"`

	Files []string `arg:"" name:"files" help:"FoLiA documents to annotate"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "wikiente: loading .env: %v\n", err)
	}

	var cli CLI
	exited, exitCode := false, exitOK
	parser, err := kong.New(&cli,
		kong.Name("wikiente"),
		kong.Description("Annotate FoLiA documents with DBpedia entities via DBpedia Spotlight"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
			"server":  spotlight.DefaultServer,
		},
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) {
			exited, exitCode = true, code
		}),
	)
	if err != nil {
		fmt.Fprintf(stderr, "wikiente: %v\n", err)
		return exitFailure
	}
	if _, err := parser.Parse(args); exited {
		return exitCode
	} else if err != nil {
		fmt.Fprintf(stderr, "wikiente: error: %v\n", err)
		return exitFailure
	}

	return cli.execute(ctx, args, stdout, stderr)
}

func (c *CLI) execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	format, err := logging.ParseFormat(c.LogFormat)
	if err != nil {
		fmt.Fprintf(stderr, "wikiente: %v\n", err)
		return exitFailure
	}
	level := logging.LevelInfo
	if c.Debug {
		level = logging.LevelDebug
	}
	logging.SetOutput(stderr)
	logging.InitLogger(level, format)

	client, err := spotlight.NewClient(c.Server,
		spotlight.WithTimeout(c.Timeout),
		spotlight.WithTransport(logging.NewTransport(nil)),
		spotlight.WithUserAgent("wikiente/"+version),
		spotlight.WithSupport(c.Support),
		spotlight.WithTypes(c.Types),
		spotlight.WithPolicy(c.Policy),
	)
	if err != nil {
		logging.Error("invalid_configuration", "error", err.Error())
		return exitFailure
	}

	annotator, err := annotate.New(client, annotate.Config{
		Mode:         annotate.Mode(c.Mode),
		Confidence:   c.Confidence,
		Language:     c.Language,
		Metrics:      c.Metrics,
		IgnoreErrors: c.Ignore,
	})
	if err != nil {
		logging.Error("invalid_configuration", "error", err.Error())
		return exitCodeFor(err)
	}

	r, err := runner.New(annotator, runner.Options{
		Output:  c.Output,
		Jobs:    c.Jobs,
		Stdout:  stdout,
		Version: version,
		Command: "wikiente " + strings.Join(args, " "),
	})
	if err != nil {
		logging.Error("invalid_configuration", "error", err.Error())
		return exitFailure
	}

	logging.Debug("run_started",
		"server", client.Endpoint(),
		"mode", annotate.Mode(c.Mode).String(),
		"confidence", c.Confidence,
		"files", len(c.Files))

	summary, err := r.Run(ctx, c.Files)
	logging.Debug("run_finished",
		"files", summary.Files,
		"written", summary.Written,
		"unchanged", summary.Unchanged,
		"failed", summary.Failed,
		"sentences", summary.Stats.Sentences,
		"entities", summary.Stats.Entities)

	switch {
	case err != nil:
		logging.Error("run_aborted", "error", err.Error())
		return exitCodeFor(err)
	case summary.MissingLayer > 0:
		return exitFatal
	case summary.Failed > 0:
		return exitFailure
	default:
		return exitOK
	}
}

// exitCodeFor maps an error that ends the run to an exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.IsFatal(err), errors.Is(err, errors.ErrMissingAnnotationLayer):
		return exitFatal
	default:
		return exitFailure
	}
}
