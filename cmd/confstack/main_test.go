package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eugenenazirov/confstack/internal/application"
	"github.com/eugenenazirov/confstack/internal/platform"
)

type fixture struct {
	base string
	opts []application.Option
}

func newFixture(t *testing.T, env map[string]string) fixture {
	t.Helper()

	base := t.TempDir()
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
	return fixture{
		base: base,
		opts: []application.Option{
			application.WithPlatform(platform.Platform{
				Name:       platform.Linux,
				SystemRoot: filepath.Join(base, "etc"),
				TempRoot:   filepath.Join(base, "tmp"),
			}),
			application.WithWorkingDirectory(filepath.Join(base, "work")),
			application.WithLookup(lookup),
		},
	}
}

func (f fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.base, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func (f fixture) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr, f.opts...)
	return code, stdout.String(), stderr.String()
}

func TestRunShow(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "etc/pyfarm/svc/svc.yml", "name: svc\ndata: $temp/data\n")
	f.write(t, "etc/pyfarm/svc/1.2/svc.yml", "name: svc-1.2\n")

	code, stdout, stderr := f.run(t, "--service", "svc", "--app-version", "1.2", "show")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", code, stderr)
	}

	want := "name: svc-1.2\ndata: " + filepath.Join(f.base, "tmp", "pyfarm", "svc", "data") + "\n"
	if stdout != want {
		t.Fatalf("expected %q, got %q", want, stdout)
	}
}

func TestRunShowJSONWithNonStringKeys(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "etc/pyfarm/svc/svc.yml", "scheme: https\nports:\n  80: http\n  443: $scheme\n")

	code, stdout, stderr := f.run(t, "-s", "svc", "-o", "json", "show")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", code, stderr)
	}
	want := `{"ports":{"443":"https","80":"http"},"scheme":"https"}`
	if got := strings.Join(strings.Fields(stdout), ""); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestRunGetAndLookup(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "etc/pyfarm/svc/svc.yml", "db:\n  hosts: [a, b]\nport: 5432\n")

	code, stdout, _ := f.run(t, "-s", "svc", "-o", "json", "get", "port")
	if code != 0 || strings.TrimSpace(stdout) != "5432" {
		t.Fatalf("get: code %d, output %q", code, stdout)
	}

	code, stdout, _ = f.run(t, "-s", "svc", "lookup", "db.hosts.1")
	if code != 0 || stdout != "b\n" {
		t.Fatalf("lookup: code %d, output %q", code, stdout)
	}

	code, _, stderr := f.run(t, "-s", "svc", "get", "missing")
	if code != 1 {
		t.Fatalf("expected exit code 1 for a missing key, got %d", code)
	}
	if !strings.Contains(stderr, "missing") {
		t.Fatalf("expected error to name the key, got %q", stderr)
	}
}

func TestRunDirsAndFiles(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "etc/pyfarm/svc/1/svc.yml", "a: 1\n")

	code, stdout, _ := f.run(t, "-s", "svc", "--app-version", "1.0", "dirs", "--all")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	for _, dir := range []string{
		filepath.Join(f.base, "etc", "pyfarm", "svc"),
		filepath.Join(f.base, "etc", "pyfarm", "svc", "1.0"),
		filepath.Join(f.base, "work", "etc", "pyfarm", "svc"),
	} {
		if !strings.Contains(stdout, dir+"\n") {
			t.Fatalf("expected %s in %q", dir, stdout)
		}
	}

	code, stdout, _ = f.run(t, "-s", "svc", "--app-version", "1.0", "files")
	want := "- " + filepath.Join(f.base, "etc", "pyfarm", "svc", "1", "svc.yml") + "\n"
	if code != 0 || stdout != want {
		t.Fatalf("files: code %d, expected %q, got %q", code, want, stdout)
	}

	code, stdout, _ = f.run(t, "-s", "other", "files")
	if code != 0 || stdout != "[]\n" {
		t.Fatalf("expected empty list, got code %d output %q", code, stdout)
	}
}

func TestRunEnvDoesNotExport(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "etc/pyfarm/svc/svc.yml", "env:\n  CONFSTACK_TEST_EXPORTED: true\n")

	code, stdout, _ := f.run(t, "-s", "svc", "env")
	if code != 0 || stdout != "CONFSTACK_TEST_EXPORTED: \"true\"\n" {
		t.Fatalf("env: code %d, output %q", code, stdout)
	}
	if _, ok := os.LookupEnv("CONFSTACK_TEST_EXPORTED"); ok {
		t.Fatalf("env command must not change the process environment")
	}
}

func TestRunRead(t *testing.T) {
	f := newFixture(t, map[string]string{"WORKERS": "8", "RATIO": "abc"})

	tests := []struct {
		name string
		args []string
		code int
		out  string
	}{
		{name: "int", args: []string{"read", "WORKERS", "--type", "int"}, out: "8\n"},
		{name: "default", args: []string{"read", "UNSET", "--default", "x"}, out: "x\n"},
		{name: "bool without default", args: []string{"read", "WORKERS", "--type", "bool"}, code: 1},
		{name: "fallback", args: []string{"read", "RATIO", "--type", "literal", "--default", "0.5", "--fallback"}, out: "0.5\n"},
		{name: "missing", args: []string{"read", "UNSET"}, code: 1},
		{name: "unknown type", args: []string{"read", "WORKERS", "--type", "complex"}, code: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, stdout, stderr := f.run(t, append([]string{"-s", "svc"}, tc.args...)...)
			if code != tc.code {
				t.Fatalf("expected exit code %d, got %d (stderr %q)", tc.code, code, stderr)
			}
			if tc.code == 0 && stdout != tc.out {
				t.Fatalf("expected %q, got %q", tc.out, stdout)
			}
		})
	}
}

func TestRunRequiresService(t *testing.T) {
	f := newFixture(t, nil)
	code, _, stderr := f.run(t, "show")
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if !strings.Contains(stderr, "service") {
		t.Fatalf("expected service error, got %q", stderr)
	}
}
