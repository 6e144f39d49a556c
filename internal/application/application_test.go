package application

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/confstack/internal/config"
	"github.com/eugenenazirov/confstack/internal/envreader"
	"github.com/eugenenazirov/confstack/internal/platform"
	"github.com/eugenenazirov/confstack/internal/resolver"
	"github.com/eugenenazirov/confstack/internal/store"
)

func baseTestSettings(service string) config.Settings {
	return config.Settings{
		Service:           service,
		Version:           "1.2",
		ParentApplication: resolver.DefaultParentApplication,
		Extension:         resolver.DefaultExtension,
		RootVariable:      resolver.DefaultEnvironmentVariable,
		LocalDirectory:    resolver.DefaultLocalDirectory,
		ExpansionDepth:    1,
		Output:            config.OutputYAML,
	}
}

type testEnv map[string]string

func (e testEnv) lookup(name string) (string, bool) {
	v, ok := e[name]
	return v, ok
}

func newTestApp(t *testing.T, cfg config.Settings, env testEnv) (*App, string) {
	t.Helper()

	base := t.TempDir()
	app, err := New(cfg, zaptest.NewLogger(t),
		WithPlatform(platform.Platform{Name: platform.Linux, SystemRoot: filepath.Join(base, "etc"), TempRoot: filepath.Join(base, "tmp")}),
		WithWorkingDirectory(filepath.Join(base, "work")),
		WithLookup(env.lookup),
		WithEnvironment(store.MapEnvironment{}),
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return app, base
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestSettings("agent")
	cfg.Extension = "yaml"
	app, base := newTestApp(t, cfg, testEnv{resolver.DefaultEnvironmentVariable: "override"})

	if app.Resolver() == nil || app.Store() == nil || app.EnvReader() == nil {
		t.Fatalf("expected resolver, store and reader to be initialized")
	}
	if app.Store().Resolver() != app.Resolver() {
		t.Fatalf("store must load from the application resolver")
	}
	if got := app.Resolver().FileName(); got != "agent.yaml" {
		t.Fatalf("expected extension setting to apply, got %s", got)
	}
	if want := filepath.Join(base, "work", "override"); app.Resolver().Roots().Environment != want {
		t.Fatalf("expected environment root %s, got %s", want, app.Resolver().Roots().Environment)
	}
}

func TestNewReturnsErrorForInvalidService(t *testing.T) {
	if _, err := New(baseTestSettings("a/b"), zaptest.NewLogger(t)); !errors.Is(err, resolver.ErrInvalidService) {
		t.Fatalf("expected ErrInvalidService, got %v", err)
	}
}

func TestLoadAndRender(t *testing.T) {
	app, base := newTestApp(t, baseTestSettings("agent"), nil)
	root := filepath.Join(base, "etc", "pyfarm", "agent")
	writeConfig(t, filepath.Join(root, "agent.yml"), "zeta: 1\nalpha: $temp/a\nenv:\n  TOKEN: abc\n")
	writeConfig(t, filepath.Join(root, "1.2", "agent.yml"), "zeta: 2\n")

	env := store.MapEnvironment{}
	if err := app.Load(env); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if env["TOKEN"] != "abc" {
		t.Fatalf("expected env block to be exported, got %v", env)
	}

	var buf bytes.Buffer
	if err := app.RenderStore(&buf); err != nil {
		t.Fatalf("RenderStore returned error: %v", err)
	}
	want := "zeta: 2\nalpha: " + app.Store().TempDirectory() + "/a\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}

	cfg := baseTestSettings("agent")
	cfg.Output = config.OutputJSON
	jsonApp, jsonBase := newTestApp(t, cfg, nil)
	writeConfig(t, filepath.Join(jsonBase, "etc", "pyfarm", "agent", "agent.yml"), "b: 1\na: [x]\n")
	if err := jsonApp.Load(nil); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	buf.Reset()
	if err := jsonApp.RenderStore(&buf); err != nil {
		t.Fatalf("RenderStore returned error: %v", err)
	}
	if got := strings.Join(strings.Fields(buf.String()), ""); got != `{"a":["x"],"b":1}` {
		t.Fatalf("unexpected JSON output %s", got)
	}
}

func TestLoadWrapsErrors(t *testing.T) {
	app, base := newTestApp(t, baseTestSettings("agent"), nil)
	writeConfig(t, filepath.Join(base, "etc", "pyfarm", "agent", "agent.yml"), "env: [a]\n")

	if err := app.Load(nil); !errors.Is(err, store.ErrConfigFormat) {
		t.Fatalf("expected ErrConfigFormat, got %v", err)
	}
}

func TestRender(t *testing.T) {
	app, _ := newTestApp(t, baseTestSettings("agent"), nil)

	var buf bytes.Buffer
	if err := app.Render(&buf, []string{"a", "b"}); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if buf.String() != "- a\n- b\n" {
		t.Fatalf("unexpected YAML output %q", buf.String())
	}

	if err := render(&buf, "xml", 1); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestReadVariable(t *testing.T) {
	app, _ := newTestApp(t, baseTestSettings("agent"), testEnv{
		"FLAG":  "Yes",
		"COUNT": "42",
		"RATIO": "0.25",
		"LIST":  "[1, 2]",
		"WORD":  "hello",
	})

	testCases := []struct {
		req  VariableRequest
		want any
	}{
		{req: VariableRequest{Name: "WORD"}, want: "hello"},
		{req: VariableRequest{Name: "FLAG", Mode: ReadBool, Default: "no", HasDefault: true}, want: true},
		{req: VariableRequest{Name: "UNSET", Mode: ReadBool, Default: "no", HasDefault: true}, want: false},
		{req: VariableRequest{Name: "COUNT", Mode: ReadInt}, want: int64(42)},
		{req: VariableRequest{Name: "RATIO", Mode: ReadFloat}, want: 0.25},
		{req: VariableRequest{Name: "COUNT", Mode: ReadNumber}, want: int64(42)},
		{req: VariableRequest{Name: "RATIO", Mode: ReadNumber}, want: 0.25},
		{req: VariableRequest{Name: "UNSET", Mode: ReadInt, Default: "7", HasDefault: true}, want: int64(7)},
		{req: VariableRequest{Name: "WORD", Mode: ReadLiteral, Default: "'x'", HasDefault: true, Fallback: true}, want: "x"},
	}

	for _, tc := range testCases {
		got, err := app.ReadVariable(tc.req)
		if err != nil {
			t.Fatalf("%+v: unexpected error: %v", tc.req, err)
		}
		if got != tc.want {
			t.Fatalf("%+v: expected %#v, got %#v", tc.req, tc.want, got)
		}
	}

	list, err := app.ReadVariable(VariableRequest{Name: "LIST", Mode: ReadLiteral})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items, ok := list.([]any); !ok || len(items) != 2 {
		t.Fatalf("expected a two element list, got %#v", list)
	}
}

func TestReadVariableErrors(t *testing.T) {
	app, _ := newTestApp(t, baseTestSettings("agent"), testEnv{"COUNT": "42", "WORD": "hello"})

	testCases := []struct {
		req  VariableRequest
		want error
	}{
		{req: VariableRequest{Name: "UNSET"}, want: envreader.ErrMissingVariable},
		{req: VariableRequest{Name: "COUNT", Mode: ReadBool}, want: envreader.ErrContract},
		{req: VariableRequest{Name: "COUNT", Mode: ReadFloat}, want: envreader.ErrTypeConversion},
		{req: VariableRequest{Name: "WORD", Mode: ReadNumber}, want: envreader.ErrLiteralParse},
		{req: VariableRequest{Name: "COUNT", Mode: ReadInt, Default: "nope", HasDefault: true}, want: envreader.ErrLiteralParse},
	}

	for _, tc := range testCases {
		if _, err := app.ReadVariable(tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%+v: expected %v, got %v", tc.req, tc.want, err)
		}
	}

	if _, err := app.ReadVariable(VariableRequest{Name: "COUNT", Mode: "complex"}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
