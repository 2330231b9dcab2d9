package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/sphinxnet/recommender/catalog"
	"github.com/sphinxnet/recommender/internal/app"
	"github.com/sphinxnet/recommender/internal/config"
	"github.com/sphinxnet/recommender/internal/contract"
	"github.com/sphinxnet/recommender/internal/store"
	"github.com/sphinxnet/recommender/survey"
)

// writeConfig creates a config with no model artifacts so runs are
// deterministic.
func writeConfig(t *testing.T, fallback string) string {
	t.Helper()
	dir := t.TempDir()
	body := "model:\n" +
		"  artifact_path: " + filepath.Join(dir, "none.json") + "\n" +
		"  legacy_artifact_path: \"\"\n" +
		"  fallback: " + fallback + "\n" +
		"store:\n" +
		"  path: " + filepath.Join(dir, "surveys.db") + "\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, version) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCatalogJSON(t *testing.T) {
	out, err := run(t, "", "catalog", "--json", "--config", writeConfig(t, "none"), "--category", catalog.CategoryRoaming)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	var pkgs []catalog.Package
	if err := json.Unmarshal([]byte(out), &pkgs); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(pkgs) != 3 {
		t.Fatalf("expected 3 roaming packages, got %d", len(pkgs))
	}
	for _, p := range pkgs {
		if p.Category != catalog.CategoryRoaming {
			t.Fatalf("unexpected category %q", p.Category)
		}
	}
}

func TestScoreFromStdinRulesOnly(t *testing.T) {
	stdin := `{"usage":["` + survey.UsageGaming + `"],"budget":"` + survey.Budget50To100k + `"}`
	out, err := run(t, stdin, "score", "--json", "--config", writeConfig(t, "none"))
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	var res contract.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if res.Metadata.ModelUsed {
		t.Fatalf("model should be unavailable")
	}
	if len(res.Recommendations) == 0 || len(res.Recommendations) > 3 {
		t.Fatalf("expected 1-3 rule picks, got %d", len(res.Recommendations))
	}
}

func TestScoreTableWithHeuristic(t *testing.T) {
	out, err := run(t, "", "score", "--config", writeConfig(t, "heuristic"), "--survey", `{"phone_model":"iPhone 15 Pro Max"}`)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !strings.Contains(out, "model: heuristic") || !strings.Contains(out, "PACKAGE") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestScoreRejectsNonObject(t *testing.T) {
	if _, err := run(t, "[1]", "score", "--config", writeConfig(t, "none")); err == nil {
		t.Fatalf("expected error for array survey")
	}
}

func TestEncodeMatchesSchema(t *testing.T) {
	out, err := run(t, "", "encode", "--json", "--survey", `{}`)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var fields []encodedField
	if err := json.Unmarshal([]byte(out), &fields); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fields) == 0 {
		t.Fatalf("no fields encoded")
	}
}

func TestHistoryReadsStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	db, err := app.OpenStore(config.StoreConfig{Path: dbPath}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rec := store.Record{
		RequestID: "req-1",
		Survey:    survey.Defaults(),
		Recommendations: []contract.Recommendation{{
			Package: catalog.Default().At(3),
			Source:  contract.SourceRule,
		}},
	}
	if err := db.Save(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = db.Close()

	out, err := run(t, "", "history", "--db", dbPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "req-1") || !strings.Contains(out, catalog.Default().At(3).Name) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestHistoryEmpty(t *testing.T) {
	out, err := run(t, "", "history", "--db", filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No stored submissions") {
		t.Fatalf("unexpected output %q", out)
	}
}
