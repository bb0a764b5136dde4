package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/rpdarchive/internal/archive"
	"github.com/nao1215/rpdarchive/internal/database"
	"github.com/nao1215/rpdarchive/internal/metadata"
	"github.com/nao1215/rpdarchive/internal/model"
	"github.com/nao1215/rpdarchive/internal/supply"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSeriesFile(t *testing.T, dir string) {
	t.Helper()
	data := `{"1":["FAKEPEPE"],"2":["BOBOPEPE"]}`
	if err := os.WriteFile(filepath.Join(dir, archive.SeriesFile), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestDataCommands(t *testing.T) {
	t.Parallel()

	t.Run("supply then metadata then series", func(t *testing.T) {
		t.Parallel()
		ledger := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/asset/FAKEPEPE":
				_, _ = w.Write([]byte(`{"supply":"300","divisible":false}`))
			default:
				http.NotFound(w, r)
			}
		}))
		t.Cleanup(ledger.Close)

		dir := t.TempDir()
		writeSeriesFile(t, dir)
		links := `{"FAKEPEPE":"http://rarepepedirectory.com/?p=10"}`
		if err := os.WriteFile(filepath.Join(dir, archive.LinksFile), []byte(links), 0o600); err != nil {
			t.Fatal(err)
		}

		out, err := execute(t, "supply", "--data-dir", dir, "--api-url", ledger.URL+"/api",
			"--delay", "0", "--retries", "0", "--skip-destructions")
		if err != nil {
			t.Fatalf("supply: unexpected error: %v", err)
		}
		if !strings.Contains(out, "Wrote 2 entries") {
			t.Errorf("unexpected supply output %q", out)
		}
		entries, err := supply.ReadFile(filepath.Join(dir, supply.OutputFile))
		if err != nil {
			t.Fatal(err)
		}
		if entries["BOBOPEPE"].Note != model.NoteAPIMissing {
			t.Errorf("expected BOBOPEPE to be api missing, got %+v", entries["BOBOPEPE"])
		}

		if _, err := execute(t, "metadata", "build", "--data-dir", dir); err != nil {
			t.Fatalf("metadata build: unexpected error: %v", err)
		}
		meta, err := metadata.ReadFile(filepath.Join(dir, metadata.FileName))
		if err != nil {
			t.Fatal(err)
		}
		if meta["FAKEPEPE"].Series != "1" || meta["FAKEPEPE"].Issued != "300" {
			t.Errorf("unexpected metadata %+v", meta["FAKEPEPE"])
		}

		if err := os.Remove(filepath.Join(dir, archive.SeriesFile)); err != nil {
			t.Fatal(err)
		}
		out, err = execute(t, "metadata", "series", "--data-dir", dir)
		if err != nil {
			t.Fatalf("metadata series: unexpected error: %v", err)
		}
		if !strings.Contains(out, "Wrote 2 series entries") {
			t.Errorf("unexpected series output %q", out)
		}
	})

	t.Run("metadata build without inputs fails", func(t *testing.T) {
		t.Parallel()
		_, err := execute(t, "metadata", "build", "--data-dir", t.TempDir())
		if !errors.Is(err, metadata.ErrMissingInput) {
			t.Errorf("expected ErrMissingInput, got %v", err)
		}
	})

	t.Run("wiki creates stubs", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeSeriesFile(t, dir)
		wikiDir := filepath.Join(dir, "wiki")

		out, err := execute(t, "wiki", "--data-dir", dir, "--wiki-dir", wikiDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Created 2 stub wiki pages") {
			t.Errorf("unexpected output %q", out)
		}
		if _, err := os.Stat(filepath.Join(wikiDir, "BOBOPEPE.md")); err != nil {
			t.Errorf("expected stub: %v", err)
		}
	})
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	writeConfig := func(t *testing.T, dbDir string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), ".rpdarchive")
		if err := os.WriteFile(path, []byte("db_dir: "+dbDir+"\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("no database yet", func(t *testing.T) {
		t.Parallel()
		out, err := execute(t, "history", "-c", writeConfig(t, t.TempDir()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No runs recorded yet.") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("lists runs and failures", func(t *testing.T) {
		t.Parallel()
		dbDir := t.TempDir()
		db, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		ctx := context.Background()
		started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		runID, err := db.StartRun(ctx, model.ModeFull, "http://rarepepedirectory.com", started)
		if err != nil {
			t.Fatal(err)
		}
		err = db.RecordFailure(ctx, runID, model.Failure{
			PID: "483", AssetName: "GONE", URL: "http://rarepepedirectory.com/?p=483",
			Error: "status 500", Timestamp: started,
		})
		if err != nil {
			t.Fatal(err)
		}
		err = db.RecordFailure(ctx, runID, model.Failure{
			PID: "482", AssetName: "FAKEPEPE", URL: "http://rarepepedirectory.com/?p=482",
			Error: "status 503", Timestamp: started,
		})
		if err != nil {
			t.Fatal(err)
		}
		err = db.RecordPage(ctx, &model.Page{
			PID: "482", AssetName: "FAKEPEPE", URL: "http://rarepepedirectory.com/?p=482",
			StatusCode: 200, FetchedAt: started.Add(-24 * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
		err = db.FinishRun(ctx, &model.RunSummary{
			RunID: runID, Mode: model.ModeFull, StartedAt: started,
			FinishedAt: started.Add(time.Hour), Discovered: 2, Fetched: 1, Failed: 1,
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := db.Close(); err != nil {
			t.Fatal(err)
		}

		cfgPath := writeConfig(t, dbDir)
		out, err := execute(t, "history", "-c", cfgPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "1h0m0s") || !strings.Contains(out, "full") {
			t.Errorf("unexpected runs output %q", out)
		}

		out, err = execute(t, "history", "-c", cfgPath, "--failures", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "http://rarepepedirectory.com/?p=483") {
			t.Errorf("expected retry url, got %q", out)
		}
		if !strings.Contains(out, "LAST OK") || !strings.Contains(out, "never") {
			t.Errorf("expected last fetch column, got %q", out)
		}
		lastOK := started.Add(-24 * time.Hour).Local().Format("2006-01-02 15:04")
		if !strings.Contains(out, lastOK) {
			t.Errorf("expected last fetch %s of 482, got %q", lastOK, out)
		}
	})
}
