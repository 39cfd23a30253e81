package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"epub2audio/internal/library"
	"epub2audio/internal/manifest"
	"epub2audio/internal/services"
)

type cliEnv struct {
	configPath string
	baseDir    string
}

func setupCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	t.Setenv("EPUB2AUDIO_BASE_DIR", "")
	t.Setenv("EPUB2AUDIO_TTS_COMMAND", "")

	root := t.TempDir()
	env := cliEnv{
		configPath: filepath.Join(root, "config.toml"),
		baseDir:    filepath.Join(root, "books"),
	}
	content := fmt.Sprintf("[paths]\nbase_dir = %q\nstate_dir = %q\nlog_dir = %q\n",
		env.baseDir, filepath.Join(root, "state"), filepath.Join(root, "logs"))
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, env cliEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (env cliEnv) handMadeBook(t *testing.T, stem string) {
	t.Helper()
	layout := library.NewLayout(env.baseDir, stem)
	if err := layout.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	entries := []manifest.Entry{
		{Order: 1, ChapterNumber: manifest.IntPtr(1), ChapterTitle: "Holden", ChapterPath: "OEBPS/c1.xhtml"},
		{Order: 2, ChapterNumber: manifest.IntPtr(2), ChapterTitle: "Miller", ChapterPath: "OEBPS/c2.xhtml"},
	}
	if err := manifest.Save(context.Background(), layout.ManifestPath(), manifest.New(entries)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(layout.AudioDir(), "01 - Holden.m4a"), []byte("aac"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLIEnv(t)
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output, got %q", out)
	}
	if _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, err = runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, env.baseDir) || !strings.Contains(out, "loaded from") {
		t.Fatalf("expected effective base dir in output, got:\n%s", out)
	}

	out, err = runCLI(t, env, "config", "validate")
	if err != nil || !strings.Contains(out, "Configuration valid") {
		t.Fatalf("config validate: %q, %v", out, err)
	}
}

func TestBooksEmpty(t *testing.T) {
	env := setupCLIEnv(t)

	out, err := runCLI(t, env, "books")
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	if !strings.Contains(out, "No books registered") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = runCLI(t, env, "books", "--json")
	if err != nil {
		t.Fatalf("books --json: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", out)
	}

	if _, err := runCLI(t, env, "books", "--status", "bogus"); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestReconcileReportsUnresolved(t *testing.T) {
	env := setupCLIEnv(t)
	env.handMadeBook(t, "leviathan")

	out, err := runCLI(t, env, "reconcile", "leviathan")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !strings.Contains(out, "1 of 2 chapters resolved") || !strings.Contains(out, "Miller") {
		t.Fatalf("unexpected reconcile output:\n%s", out)
	}

	out, err = runCLI(t, env, "show", "leviathan", "--json")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var view bookView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode show output: %v\n%s", err, out)
	}
	if view.Status != "reconciled" || len(view.Unresolved) != 1 || view.Unresolved[0].Order != 2 {
		t.Fatalf("unexpected stored book: %+v", view)
	}

	out, err = runCLI(t, env, "show", "leviathan")
	if err != nil || !strings.Contains(out, "Unresolved chapters (1)") {
		t.Fatalf("unexpected show output %q, %v", out, err)
	}

	out, err = runCLI(t, env, "books")
	if err != nil || !strings.Contains(out, "leviathan") || !strings.Contains(out, "1/2") {
		t.Fatalf("unexpected books output %q, %v", out, err)
	}

	out, err = runCLI(t, env, "books", "rm", "leviathan", "ghost")
	if err != nil {
		t.Fatalf("books rm: %v", err)
	}
	if !strings.Contains(out, "Book leviathan removed") || !strings.Contains(out, "Book ghost not found") {
		t.Fatalf("unexpected rm output %q", out)
	}
}

func TestReconcileStrictFailsOnUnresolved(t *testing.T) {
	env := setupCLIEnv(t)
	env.handMadeBook(t, "leviathan")

	out, err := runCLI(t, env, "reconcile", "leviathan", "--strict")
	if !errors.Is(err, services.ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if !strings.Contains(out, "1 of 2 chapters resolved") {
		t.Fatalf("expected report before failure, got:\n%s", out)
	}
}

func TestStageCommandOnUnknownBook(t *testing.T) {
	env := setupCLIEnv(t)
	if _, err := runCLI(t, env, "toc", "missing"); err == nil {
		t.Fatal("expected error for unknown book")
	}
	if _, err := runCLI(t, env, "show", "missing"); err == nil {
		t.Fatal("expected error for unknown book")
	}
}

func TestStatusJSON(t *testing.T) {
	env := setupCLIEnv(t)
	env.handMadeBook(t, "leviathan")
	if _, err := runCLI(t, env, "reconcile", "leviathan"); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	out, err := runCLI(t, env, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var view statusView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if view.Books["reconciled"] != 1 {
		t.Fatalf("expected one reconciled book, got %+v", view.Books)
	}
	if len(view.Checks) < 2 || view.Checks[0].Name != "Book directory" || !view.Checks[0].Passed {
		t.Fatalf("unexpected checks: %+v", view.Checks)
	}

	out, err = runCLI(t, env, "status")
	if err != nil || !strings.Contains(out, "== Checks ==") || !strings.Contains(out, "Reconciled") {
		t.Fatalf("unexpected status output %q, %v", out, err)
	}
}

func TestFormatStatusLabel(t *testing.T) {
	if got := formatStatusLabel("reconciled"); got != "Reconciled" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := formatStatusLabel(""); got != "" {
		t.Fatalf("unexpected label %q", got)
	}
}
