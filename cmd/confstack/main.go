package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/confstack/internal/application"
	"github.com/eugenenazirov/confstack/internal/config"
	"github.com/eugenenazirov/confstack/internal/logging"
	"github.com/eugenenazirov/confstack/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type cli struct {
	app *kingpin.Application

	settingsFile *string
	overrides    config.Settings

	dirs, files, show, get, lookup, env, read *kingpin.CmdClause

	dirsAll    *bool
	filesAll   *bool
	getKey     *string
	lookupPath *string

	readName       *string
	readMode       *string
	readDefault    *string
	readHasDefault bool
	readFallback   *bool
}

func newCLI(stdout, stderr io.Writer) *cli {
	c := &cli{}
	c.app = kingpin.New("confstack", "Layered configuration resolver - finds, merges and expands service configuration files")
	c.app.UsageWriter(stdout)
	c.app.ErrorWriter(stderr)

	c.settingsFile = c.app.Flag("settings", "Path to a YAML settings file for confstack itself").String()
	c.app.Flag("service", "Service whose configuration is resolved").Short('s').StringVar(&c.overrides.Service)
	c.app.Flag("app-version", "Service version; each dotted prefix adds a candidate directory").StringVar(&c.overrides.Version)
	c.app.Flag("parent", "Parent application directory grouping all services").StringVar(&c.overrides.ParentApplication)
	c.app.Flag("extension", "Configuration file extension").StringVar(&c.overrides.Extension)
	c.app.Flag("root-variable", "Environment variable naming an alternate configuration root").StringVar(&c.overrides.RootVariable)
	c.app.Flag("local-dir", "Local configuration root below the working directory").StringVar(&c.overrides.LocalDirectory)
	c.app.Flag("depth", "Expansion passes applied to values (1 disables nested expansion)").IntVar(&c.overrides.ExpansionDepth)
	c.app.Flag("log-level", "Log level (debug, info, warn, error)").StringVar(&c.overrides.LogLevel)
	c.app.Flag("log-format", "Log encoding (console, json)").StringVar(&c.overrides.LogFormat)
	c.app.Flag("output", "Output format (yaml, json)").Short('o').StringVar(&c.overrides.Output)

	c.dirs = c.app.Command("dirs", "List candidate configuration directories in load order")
	c.dirsAll = c.dirs.Flag("all", "Include directories that do not exist").Bool()

	c.files = c.app.Command("files", "List candidate configuration files in load order")
	c.filesAll = c.files.Flag("all", "Include files that do not exist").Bool()

	c.show = c.app.Command("show", "Print the merged and expanded configuration")

	c.get = c.app.Command("get", "Print the expanded value of a top-level key")
	c.getKey = c.get.Arg("key", "Configuration key").Required().String()

	c.lookup = c.app.Command("lookup", "Print a nested value by dotted path")
	c.lookupPath = c.lookup.Arg("path", "Dotted path such as database.hosts.0").Required().String()

	c.env = c.app.Command("env", "Print the variables exported by env blocks without changing the environment")

	c.read = c.app.Command("read", "Read an environment variable with typed coercion")
	c.readName = c.read.Arg("name", "Variable name").Required().String()
	c.readMode = c.read.Flag("type", "Conversion applied to the value").Default(application.ReadString).Enum(application.ReadModes...)
	c.readDefault = c.read.Flag("default", "Value used when the variable is unset").IsSetByUser(&c.readHasDefault).String()
	c.readFallback = c.read.Flag("fallback", "Use the default when a literal cannot be parsed").Bool()

	return c
}

func run(args []string, stdout, stderr io.Writer, opts ...application.Option) int {
	c := newCLI(stdout, stderr)

	command, err := c.app.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "confstack: %v\n", err)
		return 2
	}

	cfg, err := config.Load(&config.CLIOverrides{
		SettingsFile: *c.settingsFile,
		Settings:     c.overrides,
	})
	if err != nil {
		fmt.Fprintf(stderr, "confstack: failed to load settings: %v\n", err)
		return 2
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(stderr, "confstack: failed to initialize logger: %v\n", err)
		return 2
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger, opts...)
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		return 1
	}

	if err := c.execute(command, app, stdout); err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(stderr, "confstack: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) execute(command string, app *application.App, stdout io.Writer) error {
	switch command {
	case c.dirs.FullCommand():
		return app.Render(stdout, nonNil(app.Resolver().Directories(!*c.dirsAll)))

	case c.files.FullCommand():
		return app.Render(stdout, nonNil(app.Resolver().Files(!*c.filesAll)))

	case c.show.FullCommand():
		if err := app.Load(nil); err != nil {
			return err
		}
		return app.RenderStore(stdout)

	case c.get.FullCommand():
		if err := app.Load(nil); err != nil {
			return err
		}
		v, err := app.Store().GetRequired(*c.getKey)
		if err != nil {
			return err
		}
		return app.Render(stdout, v)

	case c.lookup.FullCommand():
		if err := app.Load(nil); err != nil {
			return err
		}
		v, err := app.Store().Lookup(*c.lookupPath)
		if err != nil {
			return err
		}
		return app.Render(stdout, v)

	case c.env.FullCommand():
		exported := store.MapEnvironment{}
		if err := app.Load(exported); err != nil {
			return err
		}
		return app.Render(stdout, map[string]string(exported))

	case c.read.FullCommand():
		v, err := app.ReadVariable(application.VariableRequest{
			Name:       *c.readName,
			Mode:       *c.readMode,
			Default:    *c.readDefault,
			HasDefault: c.readHasDefault,
			Fallback:   *c.readFallback,
		})
		if err != nil {
			return err
		}
		return app.Render(stdout, v)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func nonNil(paths []string) []string {
	if paths == nil {
		return []string{}
	}
	return paths
}
