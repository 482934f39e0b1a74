// ABOUTME: Tests for rendering indexed sources
// ABOUTME: Covers table, JSON and YAML output and the empty index message

package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/harper/folio/internal/models"
)

var sampleSources = []models.SourceSummary{
	{Source: "about.md", Chunks: 1, Fingerprints: []string{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}},
	{Source: "projects/rag.txt", Chunks: 4, Fingerprints: []string{"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"}},
}

func TestRenderSources_Table(t *testing.T) {
	var out bytes.Buffer
	if err := renderSources(&out, "table", sampleSources); err != nil {
		t.Fatal(err)
	}

	s := out.String()
	for _, want := range []string{"SOURCE", "about.md", "projects/rag.txt", "aaaaaaaaaaaa", "Total: 2 source(s), 5 chunk(s)"} {
		if !strings.Contains(s, want) {
			t.Errorf("table output missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, strings.Repeat("a", 13)) {
		t.Error("fingerprints should be abbreviated in table output")
	}
}

func TestRenderSources_JSON(t *testing.T) {
	var out bytes.Buffer
	if err := renderSources(&out, "json", sampleSources); err != nil {
		t.Fatal(err)
	}

	var got []models.SourceSummary
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 2 || got[1].Chunks != 4 {
		t.Errorf("got %+v", got)
	}
}

func TestRenderSources_YAML(t *testing.T) {
	var out bytes.Buffer
	if err := renderSources(&out, "yaml", sampleSources); err != nil {
		t.Fatal(err)
	}

	var got []models.SourceSummary
	if err := yaml.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(got) != 2 || got[0].Source != "about.md" {
		t.Errorf("got %+v", got)
	}
}

func TestRenderSources_Empty(t *testing.T) {
	var table bytes.Buffer
	if err := renderSources(&table, "table", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(table.String(), "No indexed documents") {
		t.Errorf("unexpected output %q", table.String())
	}

	var js bytes.Buffer
	if err := renderSources(&js, "json", nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(js.String()) != "[]" {
		t.Errorf("empty JSON should be [], got %q", js.String())
	}
}

func TestSourcesCmd_WithoutCredentials(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "OPENAI_CHAT_API_KEY", "OPENAI_EMBEDDING_API_KEY", "LOG_FORMAT", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	t.Setenv("INDEX_DIR", filepath.Join(t.TempDir(), "index"))
	t.Chdir(t.TempDir())

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--format", "json", "sources"})
	t.Cleanup(func() { outputFormat = "auto" })

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("expected empty JSON list, got %q", out.String())
	}
}
