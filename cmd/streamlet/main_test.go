package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"streamlet/internal/testsupport"
)

func writeConfigFile(t *testing.T) string {
	t.Helper()

	cfg := testsupport.NewConfig(t,
		testsupport.WithPublicBaseURL("https://cdn.example"),
		testsupport.WithStubbedBinaries(),
	)
	cfg.Logging.Level = "error"

	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestPublishAndBrowseFlow(t *testing.T) {
	configPath := writeConfigFile(t)

	media := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteMediaFixture(t, media, 128*1024)

	out, err := runCommand(t, configPath, "publish", media, "--owner", "u1", "--title", "Launch Video", "--json")
	if err != nil {
		t.Fatalf("publish: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"title": "Launch Video"`) {
		t.Fatalf("publish output missing title:\n%s", out)
	}
	// The stubbed ffmpeg produced a frame, so no placeholder poster.
	if !strings.Contains(out, "posters/u1/") {
		t.Fatalf("publish output missing derived poster:\n%s", out)
	}

	out, err = runCommand(t, configPath, "feed", "uploads", "--owner", "u1")
	if err != nil {
		t.Fatalf("feed uploads: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Launch Video") {
		t.Fatalf("uploads rail missing asset:\n%s", out)
	}

	out, err = runCommand(t, configPath, "feed", "discover", "--viewer", "u1")
	if err != nil {
		t.Fatalf("feed discover: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Launch Video") {
		t.Fatalf("discover rail should fall back to own uploads:\n%s", out)
	}
}

func TestPublishRejectsNonMedia(t *testing.T) {
	configPath := writeConfigFile(t)

	notes := filepath.Join(t.TempDir(), "notes.txt")
	testsupport.WriteMediaFixture(t, notes, 64)

	out, err := runCommand(t, configPath, "publish", notes, "--owner", "u1", "--title", "Notes")
	if err == nil {
		t.Fatalf("expected non-media publish to fail:\n%s", out)
	}
}

func TestWatchRecordAndResume(t *testing.T) {
	configPath := writeConfigFile(t)

	out, err := runCommand(t, configPath, "watch", "record",
		"--viewer", "u1", "--asset", "a1", "--title", "Clip",
		"--position", "42.9", "--duration", "120")
	if err != nil {
		t.Fatalf("watch record: %v\n%s", err, out)
	}

	out, err = runCommand(t, configPath, "watch", "resume", "--viewer", "u1", "--asset", "a1")
	if err != nil {
		t.Fatalf("watch resume: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Resume at 42s") {
		t.Fatalf("unexpected resume output:\n%s", out)
	}

	out, err = runCommand(t, configPath, "watch", "record",
		"--viewer", "u1", "--asset", "a2", "--position", "10", "--duration", "0")
	if err != nil {
		t.Fatalf("watch record without duration: %v\n%s", err, out)
	}
	if !strings.Contains(out, "dropped") {
		t.Fatalf("expected drop notice:\n%s", out)
	}

	out, err = runCommand(t, configPath, "feed", "continue", "--viewer", "u1")
	if err != nil {
		t.Fatalf("feed continue: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Clip") {
		t.Fatalf("continue rail missing entry:\n%s", out)
	}
}

func TestPostCreateAndList(t *testing.T) {
	configPath := writeConfigFile(t)

	out, err := runCommand(t, configPath, "post", "create", "hello channel", "--channel", "u1")
	if err != nil {
		t.Fatalf("post create: %v\n%s", err, out)
	}
	out, err = runCommand(t, configPath, "post", "create", "backstage notes", "--channel", "u1", "--visibility", "private")
	if err != nil {
		t.Fatalf("post create private: %v\n%s", err, out)
	}

	out, err = runCommand(t, configPath, "post", "list", "--channel", "u1")
	if err != nil {
		t.Fatalf("post list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "hello channel") {
		t.Fatalf("post missing from listing:\n%s", out)
	}
	if strings.Contains(out, "backstage notes") {
		t.Fatalf("private post leaked into the public view:\n%s", out)
	}

	out, err = runCommand(t, configPath, "post", "list", "--channel", "u1", "--all")
	if err != nil {
		t.Fatalf("post list --all: %v\n%s", err, out)
	}
	if !strings.Contains(out, "backstage notes") {
		t.Fatalf("owner view missing private post:\n%s", out)
	}
}
