package application

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eugenenazirov/confstack/internal/config"
	"github.com/eugenenazirov/confstack/internal/envreader"
	"github.com/eugenenazirov/confstack/internal/platform"
	"github.com/eugenenazirov/confstack/internal/resolver"
	"github.com/eugenenazirov/confstack/internal/store"
)

// App encapsulates the resolver stack for one service.
type App struct {
	settings config.Settings
	logger   *zap.Logger
	env      *envreader.Reader
	resolver *resolver.Resolver
	store    *store.Store
}

type options struct {
	platform    *platform.Platform
	workDir     string
	lookup      envreader.LookupFunc
	environment store.Environment
}

// Option configures New, primarily for tests.
type Option func(*options)

// WithPlatform overrides platform detection.
func WithPlatform(p platform.Platform) Option {
	return func(o *options) {
		o.platform = &p
	}
}

// WithWorkingDirectory sets the directory the local root is derived from.
func WithWorkingDirectory(dir string) Option {
	return func(o *options) {
		o.workDir = dir
	}
}

// WithLookup replaces process environment lookups for typed reads and the
// root override variable.
func WithLookup(fn envreader.LookupFunc) Option {
	return func(o *options) {
		o.lookup = fn
	}
}

// WithEnvironment sets the environment the store expands against and exports
// env blocks into.
func WithEnvironment(env store.Environment) Option {
	return func(o *options) {
		o.environment = env
	}
}

// New initializes the application with all dependencies from the provided settings.
func New(cfg config.Settings, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	readerOpts := []envreader.Option{envreader.WithLogger(logger.Named("env"))}
	if o.lookup != nil {
		readerOpts = append(readerOpts, envreader.WithLookup(o.lookup))
	}
	env := envreader.New(readerOpts...)

	resolverOpts := []resolver.Option{
		resolver.WithLogger(logger.Named("resolver")),
		resolver.WithEnvReader(env),
		resolver.WithParentApplication(cfg.ParentApplication),
		resolver.WithExtension(cfg.Extension),
		resolver.WithEnvironmentVariable(cfg.RootVariable),
		resolver.WithLocalDirectory(cfg.LocalDirectory),
		resolver.WithWorkingDirectory(o.workDir),
	}
	if o.platform != nil {
		resolverOpts = append(resolverOpts, resolver.WithPlatform(*o.platform))
	}
	res, err := resolver.New(cfg.Service, cfg.Version, resolverOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build resolver: %w", err)
	}

	st := store.New(res,
		store.WithLogger(logger.Named("store")),
		store.WithEnvironment(o.environment),
		store.WithExpansionDepth(cfg.ExpansionDepth),
	)

	return &App{
		settings: cfg,
		logger:   logger,
		env:      env,
		resolver: res,
		store:    st,
	}, nil
}

func (a *App) Settings() config.Settings {
	return a.settings
}

func (a *App) Resolver() *resolver.Resolver {
	return a.resolver
}

func (a *App) Store() *store.Store {
	return a.store
}

func (a *App) EnvReader() *envreader.Reader {
	return a.env
}

// Load reads all existing configuration files into the store. env receives
// the env blocks; nil exports them to the store's environment.
func (a *App) Load(env store.Environment) error {
	if err := a.store.Load(env); err != nil {
		return fmt.Errorf("failed to load configuration for %s: %w", a.resolver.Service(), err)
	}
	a.logger.Info("configuration loaded",
		zap.String("service", a.resolver.Service()),
		zap.String("version", a.resolver.Version()),
		zap.Int("keys", a.store.Len()),
	)
	return nil
}
