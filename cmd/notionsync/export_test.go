package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/notionsync/internal/config"
)

// TestNewExportCmd tests the export command creation.
func TestNewExportCmd(t *testing.T) {
	t.Parallel()

	cmd := NewExportCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "export [page-id...]" {
			t.Errorf("expected use 'export [page-id...]', got %q", cmd.Use)
		}
	})

	t.Run("flag defaults", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name      string
			shorthand string
			def       string
		}{
			{"database", "d", ""},
			{"batch", "b", "3"},
			{"timeout", "t", "1m0s"},
			{"workers", "w", "4"},
			{"json", "j", "false"},
			{"markdown", "m", "false"},
			{"output", "o", ""},
			{"config", "c", ""},
			{"title-property", "", "Name"},
			{"tags-property", "", "Tags"},
			{"max-depth", "", "0"},
			{"page-size", "", "100"},
			{"no-db", "", "false"},
		}
		for _, tt := range tests {
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Errorf("expected %s flag", tt.name)
				continue
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("%s: expected shorthand %q, got %q", tt.name, tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.def {
				t.Errorf("%s: expected default %q, got %q", tt.name, tt.def, flag.DefValue)
			}
		}
	})

	t.Run("base-url is hidden", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("base-url")
		if flag == nil || !flag.Hidden {
			t.Error("expected hidden base-url flag")
		}
	})
}

// emptyConfigFile writes a config file without settings so tests do not pick
// up a .notionsync from the developer's home directory.
func emptyConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("defaults: {}\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func parseExportFlags(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	cmd := NewExportCmd()
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return buildConfig(cmd, cmd.Flags().Args())
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("reads flags and arguments", func(t *testing.T) {
		t.Parallel()
		cfg, err := parseExportFlags(t,
			"--token", "secret_flag",
			"--database", "db-flag",
			"--config", emptyConfigFile(t),
			"--output-dir", "site",
			"--batch", "5",
			"--workers", "2",
			"--timeout", "30s",
			"--text-kind", "heading_1,callout",
			"--no-exif",
			"--no-db",
			"--markdown-pages",
			"-j",
			"p1", "p2",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Token != "secret_flag" || cfg.DatabaseID != "db-flag" {
			t.Errorf("credentials not taken from flags: %q %q", cfg.Token, cfg.DatabaseID)
		}
		if cfg.OutputDir != "site" || cfg.PagesDir() != filepath.Join("site", "pages") {
			t.Errorf("OutputDir = %q", cfg.OutputDir)
		}
		if cfg.BatchSize != 5 || cfg.DownloadWorkers != 2 {
			t.Errorf("BatchSize = %d, DownloadWorkers = %d", cfg.BatchSize, cfg.DownloadWorkers)
		}
		if cfg.RequestTimeout != 30*time.Second {
			t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
		}
		if diff := cmp.Diff([]string{"heading_1", "callout"}, cfg.TextKinds); diff != "" {
			t.Errorf("TextKinds mismatch (-want +got):\n%s", diff)
		}
		if cfg.InspectExif || cfg.SaveToDB {
			t.Error("expected --no-exif and --no-db to disable inspection and the catalog")
		}
		if !cfg.MarkdownExport || !cfg.JSONReport {
			t.Error("expected Markdown pages and JSON report")
		}
		if diff := cmp.Diff([]string{"p1", "p2"}, cfg.PageIDs); diff != "" {
			t.Errorf("PageIDs mismatch (-want +got):\n%s", diff)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("config file applies unless the flag is set", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `defaults:
  titleProperty: Title
databases:
  db-1:
    tagsProperty: Categories
    maxDepth: 4
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cfg, err := parseExportFlags(t,
			"--token", "secret",
			"--database", "db-1",
			"--config", path,
			"--max-depth", "2",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.TitleProperty != "Title" {
			t.Errorf("TitleProperty = %q, expected Title", cfg.TitleProperty)
		}
		if cfg.TagsProperty != "Categories" {
			t.Errorf("TagsProperty = %q, expected Categories", cfg.TagsProperty)
		}
		if cfg.MaxDepth != 2 {
			t.Errorf("MaxDepth = %d, expected the flag value 2", cfg.MaxDepth)
		}
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		t.Parallel()
		_, err := parseExportFlags(t,
			"--token", "secret",
			"--database", "db-1",
			"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		)
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("missing env file is an error", func(t *testing.T) {
		t.Parallel()
		_, err := parseExportFlags(t,
			"--token", "secret",
			"--database", "db-1",
			"--config", emptyConfigFile(t),
			"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		)
		if err == nil {
			t.Error("expected error for a missing env file")
		}
	})
}

// unsetEnv removes key for the duration of the test. godotenv never overrides
// a variable that is already present, even when it is empty.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset %s: %v", key, err)
	}
}

func TestBuildConfig_EnvFile(t *testing.T) {
	unsetEnv(t, config.EnvToken)
	unsetEnv(t, config.EnvDatabaseID)

	envFile := filepath.Join(t.TempDir(), "notion.env")
	content := "NOTION_API_KEY=secret_env\nNOTION_DB_ID=db-env\n"
	if err := os.WriteFile(envFile, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := parseExportFlags(t, "--env-file", envFile, "--config", emptyConfigFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Token != "secret_env" || cfg.DatabaseID != "db-env" {
		t.Errorf("expected credentials from env file, got %q %q", cfg.Token, cfg.DatabaseID)
	}
}

func TestRunExportCmd_MissingCredentials(t *testing.T) {
	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvDatabaseID, "")

	cmd := NewExportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", emptyConfigFile(t), "--no-db"})

	err := cmd.Execute()
	if !errors.Is(err, config.ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

// fakeNotion serves a two-row database. The first row has a paragraph and an
// image, the second a quote. brokenImage makes the image host fail.
func fakeNotion(t *testing.T, brokenImage bool) *httptest.Server {
	t.Helper()

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("POST /databases/db-1/query", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"object":"list","results":[
			{"object":"page","id":"p1","properties":{"Name":{"type":"title","title":[{"plain_text":"First"}]}}},
			{"object":"page","id":"p2","properties":{"Name":{"type":"title","title":[]}}}
		],"next_cursor":null,"has_more":false}`)
	})
	mux.HandleFunc("GET /blocks/p1/children", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"object":"list","results":[
			{"object":"block","id":"b1","type":"paragraph","has_children":false,"paragraph":{"rich_text":[{"plain_text":"Hello"}]}},
			{"object":"block","id":"b2","type":"image","has_children":false,"image":{"type":"external","external":{"url":"`+server.URL+`/img/photo.png"}}}
		],"next_cursor":null,"has_more":false}`)
	})
	mux.HandleFunc("GET /blocks/p2/children", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"object":"list","results":[
			{"object":"block","id":"b3","type":"quote","has_children":false,"quote":{"rich_text":[{"plain_text":"Quoted"}]}}
		],"next_cursor":null,"has_more":false}`)
	})
	mux.HandleFunc("GET /pages/{id}/properties/{prop}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "p1" {
			_, _ = io.WriteString(w, `{"type":"multi_select","multi_select":[{"name":"go"},{"name":"notes"}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"type":"multi_select","multi_select":[]}`)
	})
	mux.HandleFunc("GET /img/photo.png", func(w http.ResponseWriter, _ *http.Request) {
		if brokenImage {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, "PNGDATA")
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testExportConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Token = "secret_test"
	cfg.DatabaseID = "db-1"
	cfg.BaseURL = baseURL
	cfg.OutputDir = t.TempDir()
	cfg.DBDir = t.TempDir()
	cfg.MaxRetries = 0
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunExport(t *testing.T) {
	t.Parallel()

	t.Run("exports every row with images and index", func(t *testing.T) {
		t.Parallel()
		server := fakeNotion(t, false)
		cfg := testExportConfig(t, server.URL)
		cfg.MarkdownExport = true

		var out bytes.Buffer
		if err := runExport(context.Background(), cfg, quietLogger(), &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		index, err := os.ReadFile(filepath.Join(cfg.PagesDir(), "index.json"))
		if err != nil {
			t.Fatalf("failed to read index: %v", err)
		}
		if string(index) != "[\n  \"p1.json\",\n  \"p2.json\"\n]\n" {
			t.Errorf("unexpected index:\n%s", index)
		}

		var doc struct {
			ID      string   `json:"id"`
			Title   string   `json:"title"`
			Tags    []string `json:"tags"`
			Content []struct {
				Type     string `json:"type"`
				Text     string `json:"text"`
				Filename string `json:"filename"`
			} `json:"content"`
			Complete bool `json:"complete"`
		}
		data, err := os.ReadFile(filepath.Join(cfg.PagesDir(), "p1.json"))
		if err != nil {
			t.Fatalf("failed to read p1.json: %v", err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if doc.ID != "p1" || doc.Title != "First" || !doc.Complete {
			t.Errorf("unexpected document: %+v", doc)
		}
		if diff := cmp.Diff([]string{"go", "notes"}, doc.Tags); diff != "" {
			t.Errorf("tags mismatch (-want +got):\n%s", diff)
		}
		if len(doc.Content) != 2 || doc.Content[0].Text != "Hello" || doc.Content[1].Filename != "photo.png" {
			t.Errorf("unexpected content: %+v", doc.Content)
		}

		data, err = os.ReadFile(filepath.Join(cfg.PagesDir(), "p2.json"))
		if err != nil {
			t.Fatalf("failed to read p2.json: %v", err)
		}
		if !strings.Contains(string(data), `"title": "Untitled Page - p2"`) {
			t.Errorf("expected fallback title, got:\n%s", data)
		}
		if !strings.Contains(string(data), `"tags": []`) {
			t.Errorf("expected empty tags, got:\n%s", data)
		}

		image, err := os.ReadFile(filepath.Join(cfg.ImagesDir(), "photo.png"))
		if err != nil {
			t.Fatalf("image not downloaded: %v", err)
		}
		if string(image) != "PNGDATA" {
			t.Errorf("unexpected image content %q", image)
		}

		if _, err := os.Stat(filepath.Join(cfg.PagesDir(), "p1.md")); err != nil {
			t.Errorf("expected Markdown page: %v", err)
		}
		if !strings.Contains(out.String(), "NOTIONSYNC EXPORT REPORT") {
			t.Errorf("expected text report, got:\n%s", out.String())
		}
	})

	t.Run("subset export still indexes every row", func(t *testing.T) {
		t.Parallel()
		server := fakeNotion(t, false)
		cfg := testExportConfig(t, server.URL)
		cfg.SaveToDB = false
		cfg.PageIDs = []string{"p2"}

		if err := runExport(context.Background(), cfg, quietLogger(), io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(cfg.PagesDir(), "p1.json")); !os.IsNotExist(err) {
			t.Error("p1 should not be exported")
		}
		index, err := os.ReadFile(filepath.Join(cfg.PagesDir(), "index.json"))
		if err != nil {
			t.Fatalf("failed to read index: %v", err)
		}
		if !strings.Contains(string(index), "p1.json") {
			t.Errorf("index should list every row:\n%s", index)
		}
	})

	t.Run("failed image makes the export incomplete", func(t *testing.T) {
		t.Parallel()
		server := fakeNotion(t, true)
		cfg := testExportConfig(t, server.URL)
		cfg.SaveToDB = false
		cfg.JSONReport = true

		var out bytes.Buffer
		err := runExport(context.Background(), cfg, quietLogger(), &out)
		if !errors.Is(err, errExportIncomplete) {
			t.Fatalf("expected errExportIncomplete, got %v", err)
		}

		var report struct {
			Clean bool `json:"clean"`
		}
		if err := json.Unmarshal(out.Bytes(), &report); err != nil {
			t.Fatalf("expected JSON report: %v\n%s", err, out.String())
		}
		if report.Clean {
			t.Error("expected report to be unclean")
		}
		if _, err := os.Stat(filepath.Join(cfg.PagesDir(), "p1.json")); err != nil {
			t.Errorf("document should still be written: %v", err)
		}
	})

	t.Run("report is written to a file", func(t *testing.T) {
		t.Parallel()
		server := fakeNotion(t, false)
		cfg := testExportConfig(t, server.URL)
		cfg.SaveToDB = false
		cfg.MarkdownReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "export.md")

		var out bytes.Buffer
		if err := runExport(context.Background(), cfg, quietLogger(), &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("expected nothing on stdout, got %q", out.String())
		}
		data, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(data), "# Notion Export Report") {
			t.Errorf("unexpected report:\n%s", data)
		}
	})

	t.Run("unreachable API fails the export", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(server.Close)
		cfg := testExportConfig(t, server.URL)
		cfg.SaveToDB = false

		if err := runExport(context.Background(), cfg, quietLogger(), io.Discard); err == nil {
			t.Error("expected error when no row can be listed")
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, out string)
	}{
		{
			name: "text by default",
			args: nil,
			check: func(t *testing.T, out string) {
				t.Helper()
				if !strings.Contains(out, "msg=hello") {
					t.Errorf("expected text log, got %q", out)
				}
			},
		},
		{
			name: "json with --log-json",
			args: []string{"--log-json"},
			check: func(t *testing.T, out string) {
				t.Helper()
				if !strings.Contains(out, `"msg":"hello"`) {
					t.Errorf("expected JSON log, got %q", out)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := NewRootCmd()
			export, _, err := root.Find([]string{"export"})
			if err != nil {
				t.Fatalf("export command not found: %v", err)
			}
			if err := export.ParseFlags(tt.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}

			var buf bytes.Buffer
			newLogger(export, &buf, false).Warn("hello", "token", "secret_value")
			out := buf.String()
			tt.check(t, out)
			if strings.Contains(out, "secret_value") {
				t.Errorf("token leaked into log: %q", out)
			}
		})
	}
}
