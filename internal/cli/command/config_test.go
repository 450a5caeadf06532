package command

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigCommand_Structure(t *testing.T) {
	cmd := ConfigCommand()
	if cmd.Name != "config" {
		t.Errorf("Name = %q, want %q", cmd.Name, "config")
	}

	subNames := make(map[string]bool)
	for _, sub := range cmd.Subcommands {
		subNames[sub.Name] = true
	}
	for _, name := range []string{"show", "path", "validate"} {
		if !subNames[name] {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func TestConfigPath(t *testing.T) {
	home := isolate(t)

	res := runCLI(t, "", "config", "path")
	if res.err != nil {
		t.Fatalf("config path error = %v", res.err)
	}
	want := filepath.Join(home, ".chartered", "config.yaml")
	if strings.TrimSpace(res.stdout) != want {
		t.Errorf("stdout = %q, want %q", res.stdout, want)
	}
	if !strings.Contains(res.stderr, "does not exist") {
		t.Errorf("stderr = %q, want missing-file notice", res.stderr)
	}

	res = runCLI(t, "", "--config", "/etc/chartered.yaml", "config", "path")
	if strings.TrimSpace(res.stdout) != "/etc/chartered.yaml" {
		t.Errorf("stdout = %q, want explicit path", res.stdout)
	}
}

func TestConfigShow(t *testing.T) {
	home := isolate(t)
	t.Setenv("CHARTERED_STORAGE_ENCRYPTION_PASSPHRASE", "correct horse")

	dir := filepath.Join(home, ".chartered")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	content := "server:\n  url: https://registry.example\nextension:\n  interval: 2m\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	res := runCLI(t, "", "config", "show")
	if res.err != nil {
		t.Fatalf("config show error = %v", res.err)
	}
	for _, want := range []string{"url: https://registry.example", "interval: 2m0s", "engine: file"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("output missing %q:\n%s", want, res.stdout)
		}
	}
	if strings.Contains(res.stdout, "correct horse") {
		t.Error("config show must mask the passphrase")
	}

	res = runCLI(t, "", "--server", "http://localhost:9000", "-o", "json", "config", "show")
	if res.err != nil {
		t.Fatalf("config show -o json error = %v", res.err)
	}
	got := decodeJSON(t, res.stdout)
	server, _ := got["server"].(map[string]any)
	if server["url"] != "http://localhost:9000" {
		t.Errorf("server.url = %v, want flag value", server["url"])
	}
}

func TestConfigValidate(t *testing.T) {
	home := isolate(t)

	res := runCLI(t, "", "config", "validate")
	if res.err != nil {
		t.Fatalf("config validate error = %v", res.err)
	}
	if !strings.Contains(res.stdout, "valid") {
		t.Errorf("stdout = %q", res.stdout)
	}

	path := filepath.Join(home, "bad.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  engine: floppy\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	res = runCLI(t, "", "--config", path, "config", "validate")
	if res.err == nil {
		t.Fatal("expected error for unknown storage engine")
	}
	if !strings.Contains(res.err.Error(), "storage") {
		t.Errorf("error = %v, want it to name the storage section", res.err)
	}
}
