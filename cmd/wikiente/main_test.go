package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/wikiente/core/errors"
	"github.com/FocuswithJustin/wikiente/internal/logging"
)

const testDoc = `<?xml version="1.0" encoding="utf-8"?>
<FoLiA xmlns="http://ilk.uvt.nl/folia" xml:id="doc" version="2.0">
  <metadata type="native">
    <annotations>
      <text-annotation/>
      <sentence-annotation/>
      <token-annotation/>
    </annotations>
  </metadata>
  <text xml:id="doc.text">
    <s xml:id="doc.s.1">
      <w xml:id="doc.s.1.w.1"><t>Visit</t></w>
      <w xml:id="doc.s.1.w.2"><t>Paris</t></w>
    </s>
  </text>
</FoLiA>
`

const unsegmentedDoc = `<?xml version="1.0" encoding="utf-8"?>
<FoLiA xmlns="http://ilk.uvt.nl/folia" xml:id="bare" version="2.0">
  <metadata type="native">
    <annotations>
      <token-annotation/>
    </annotations>
  </metadata>
  <text xml:id="bare.text">
    <s xml:id="bare.s.1">
      <w xml:id="bare.s.1.w.1"><t>Paris</t></w>
    </s>
  </text>
</FoLiA>
`

const parisResponse = `{"@text":"Visit Paris","Resources":[{"@URI":"http://dbpedia.org/resource/Paris","@support":"60000","@types":"Schema:Place,DBpedia:Place,DBpedia:PopulatedPlace","@surfaceForm":"Paris","@offset":"6","@similarityScore":"0.99","@percentageOfSecondRank":"0.001"}]}`

func spotlightServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/annotate" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(parisResponse))
	}))
	t.Cleanup(server.Close)
	return server
}

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

// runCLI runs the command and returns its exit code and both streams.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Cleanup(func() {
		logging.SetOutput(os.Stderr)
		logging.InitLogger(logging.LevelInfo, logging.FormatText)
	})
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "--version")
	if code != exitOK {
		t.Errorf("exit code = %d, want %d", code, exitOK)
	}
	if strings.TrimSpace(stdout) != version {
		t.Errorf("version output = %q", stdout)
	}
}

func TestAnnotateInPlace(t *testing.T) {
	server := spotlightServer(t, http.StatusOK)
	path := createTestFile(t, t.TempDir(), "doc.folia.xml", testDoc)

	code, _, stderr := runCLI(t, "-s", server.URL+"/rest", "-M", path)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`class="http://dbpedia.org/resource/Paris"`,
		`<wref id="doc.s.1.w.2" t="Paris"/>`,
		`<metric class="similarityScore" value="0.99"`,
		`<entity-annotation set="`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s", want)
		}
	}
}

func TestAnnotateStdoutCoarse(t *testing.T) {
	server := spotlightServer(t, http.StatusOK)
	path := createTestFile(t, t.TempDir(), "doc.folia.xml", testDoc)

	code, stdout, stderr := runCLI(t, "--server", server.URL+"/rest", "--mode", "2", "--output=-", path)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, `class="loc"`) {
		t.Error("coarse class missing from stdout")
	}
	if !strings.Contains(stdout, `xlink:href="http://dbpedia.org/resource/Paris"`) {
		t.Error("relation missing from stdout")
	}

	data, _ := os.ReadFile(path)
	if string(data) != testDoc {
		t.Error("source modified when writing to stdout")
	}
}

func TestExitCodes(t *testing.T) {
	ok := spotlightServer(t, http.StatusOK)
	failing := spotlightServer(t, http.StatusInternalServerError)

	tests := []struct {
		name string
		args func(dir string) []string
		want int
	}{
		{
			name: "invalid mode",
			args: func(dir string) []string {
				return []string{"-s", ok.URL + "/rest", "-m", "3", createTestFile(t, dir, "a.xml", testDoc)}
			},
			want: exitFatal,
		},
		{
			name: "missing sentence declaration",
			args: func(dir string) []string {
				return []string{"-s", ok.URL + "/rest",
					createTestFile(t, dir, "bare.xml", unsegmentedDoc),
					createTestFile(t, dir, "a.xml", testDoc)}
			},
			want: exitFatal,
		},
		{
			name: "transport error",
			args: func(dir string) []string {
				return []string{"-s", failing.URL + "/rest", createTestFile(t, dir, "a.xml", testDoc)}
			},
			want: exitFatal,
		},
		{
			name: "ignored transport error",
			args: func(dir string) []string {
				return []string{"-i", "-s", failing.URL + "/rest", createTestFile(t, dir, "a.xml", testDoc)}
			},
			want: exitOK,
		},
		{
			name: "unparseable input",
			args: func(dir string) []string {
				return []string{"-s", ok.URL + "/rest", createTestFile(t, dir, "a.xml", "<FoLiA><s></FoLiA>")}
			},
			want: exitFailure,
		},
		{
			name: "missing input",
			args: func(dir string) []string {
				return []string{"-s", ok.URL + "/rest", filepath.Join(dir, "missing.xml")}
			},
			want: exitFailure,
		},
		{
			name: "output file for several inputs",
			args: func(dir string) []string {
				return []string{"-s", ok.URL + "/rest", "-o", filepath.Join(dir, "out.xml"),
					createTestFile(t, dir, "a.xml", testDoc),
					createTestFile(t, dir, "b.xml", testDoc)}
			},
			want: exitFailure,
		},
		{
			name: "unknown flag",
			args: func(dir string) []string {
				return []string{"--no-such-flag", createTestFile(t, dir, "a.xml", testDoc)}
			},
			want: exitFailure,
		},
		{
			name: "no files",
			args: func(string) []string { return []string{"-s", ok.URL + "/rest"} },
			want: exitFailure,
		},
		{
			name: "bad server URL",
			args: func(dir string) []string {
				return []string{"-s", "ftp://example.org", createTestFile(t, dir, "a.xml", testDoc)}
			},
			want: exitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args(t.TempDir())...)
			if code != tt.want {
				t.Errorf("exit code = %d, want %d; stderr: %s", code, tt.want, stderr)
			}
		})
	}
}

func TestMissingDeclarationLeavesFileUntouched(t *testing.T) {
	server := spotlightServer(t, http.StatusOK)
	dir := t.TempDir()
	bare := createTestFile(t, dir, "bare.xml", unsegmentedDoc)
	good := createTestFile(t, dir, "good.xml", testDoc)

	code, _, _ := runCLI(t, "-s", server.URL+"/rest", bare, good)
	if code != exitFatal {
		t.Errorf("exit code = %d, want %d", code, exitFatal)
	}
	data, _ := os.ReadFile(bare)
	if string(data) != unsegmentedDoc {
		t.Error("document without sentence declaration was modified")
	}
	data, _ = os.ReadFile(good)
	if !strings.Contains(string(data), "resource/Paris") {
		t.Error("other documents should still be annotated")
	}
}

func TestEnvironment(t *testing.T) {
	server := spotlightServer(t, http.StatusOK)
	t.Setenv("WIKIENTE_SERVER", server.URL+"/rest")
	t.Setenv("WIKIENTE_MODE", "2")
	path := createTestFile(t, t.TempDir(), "doc.xml", testDoc)

	code, stdout, stderr := runCLI(t, "-o", "-", path)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, `class="loc"`) {
		t.Error("mode from environment not applied")
	}
}

func TestDiagnosticsOnStderr(t *testing.T) {
	server := spotlightServer(t, http.StatusOK)
	path := createTestFile(t, t.TempDir(), "doc.xml", testDoc)

	code, stdout, stderr := runCLI(t, "-d", "--log-format", "json", "-s", server.URL+"/rest", "-o", "-", path)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if strings.Contains(stdout, "run_finished") {
		t.Error("diagnostics written to stdout")
	}
	if !strings.Contains(stderr, `"msg":"run_finished"`) {
		t.Errorf("debug summary missing from stderr: %s", stderr)
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{&errors.InvalidModeError{Mode: 7}, exitFatal},
		{&errors.TransportError{URL: "http://x", StatusCode: 500, Status: "500"}, exitFatal},
		{errors.NewMissingAnnotationLayer("sentence", "a.xml"), exitFatal},
		{errors.NewValidation("output", "bad"), exitFailure},
		{context.Canceled, exitFailure},
	}
	for _, tt := range tests {
		if got := exitCodeFor(tt.err); got != tt.want {
			t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
