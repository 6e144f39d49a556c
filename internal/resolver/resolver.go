// Package resolver enumerates the directories and files that may hold the
// configuration of a service, most general first.
//
// Candidates come from four roots, in this order: the platform system root,
// the user root, the directory named by an environment variable, and a
// directory local to the working directory. Under each root the
// version-free directory comes first, followed by one directory per version
// prefix from least to most specific, so for version 1.2.3 and service agent
// the system root yields
//
//	/etc/pyfarm/agent
//	/etc/pyfarm/agent/1
//	/etc/pyfarm/agent/1.2
//	/etc/pyfarm/agent/1.2.3
//
// Files loaded later override earlier ones.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/confstack/internal/envreader"
	"github.com/eugenenazirov/confstack/internal/platform"
)

const (
	DefaultParentApplication   = "pyfarm"
	DefaultExtension           = ".yml"
	DefaultEnvironmentVariable = "PYFARM_CONFIG_ROOT"
	DefaultLocalDirectory      = "etc"
)

// Roots are the base directories candidates are derived from. An empty root
// is unset and contributes no candidates.
type Roots struct {
	System      string
	User        string
	Environment string
	Local       string
}

// Resolver computes candidate paths for one service and version. Roots are
// fixed at construction; existence is checked on every call.
type Resolver struct {
	service      string
	version      string
	parent       string
	extension    string
	envVariable  string
	localDirName string
	workDir      string

	platform    platform.Platform
	platformSet bool
	env         *envreader.Reader
	logger      *zap.Logger

	roots Roots
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPlatform overrides runtime platform detection.
func WithPlatform(p platform.Platform) Option {
	return func(r *Resolver) {
		r.platform = p
		r.platformSet = true
	}
}

// WithLogger sets the logger used to report missing candidates.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEnvReader sets the reader used for the root override variable.
func WithEnvReader(env *envreader.Reader) Option {
	return func(r *Resolver) {
		if env != nil {
			r.env = env
		}
	}
}

// WithParentApplication sets the directory grouping all services.
func WithParentApplication(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.parent = name
		}
	}
}

// WithExtension sets the configuration file extension, with or without the dot.
func WithExtension(ext string) Option {
	return func(r *Resolver) {
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.extension = ext
	}
}

// WithEnvironmentVariable sets the variable naming an alternate root.
func WithEnvironmentVariable(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.envVariable = name
		}
	}
}

// WithLocalDirectory sets the name of the local root below the working directory.
func WithLocalDirectory(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.localDirName = name
		}
	}
}

// WithWorkingDirectory sets the directory relative roots are resolved against.
func WithWorkingDirectory(dir string) Option {
	return func(r *Resolver) {
		if dir != "" {
			r.workDir = dir
		}
	}
}

// New builds a Resolver for service at version. An empty version only
// yields version-free candidates.
func New(service, version string, opts ...Option) (*Resolver, error) {
	if service == "" || service == "." || service == ".." || strings.ContainsAny(service, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidService, service)
	}

	r := &Resolver{
		service:      service,
		version:      version,
		parent:       DefaultParentApplication,
		extension:    DefaultExtension,
		envVariable:  DefaultEnvironmentVariable,
		localDirName: DefaultLocalDirectory,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if !r.platformSet {
		r.platform = platform.Current()
	}
	for _, warning := range r.platform.Warnings {
		r.logger.Warn("platform detection", zap.String("platform", r.platform.Name), zap.String("warning", warning))
	}
	if r.env == nil {
		r.env = envreader.New(envreader.WithLogger(r.logger))
	}
	if r.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		r.workDir = wd
	}

	envRoot, err := r.env.ReadString(r.envVariable, envreader.Default(""))
	if err != nil {
		return nil, fmt.Errorf("read configuration root override: %w", err)
	}
	if envRoot != "" && !filepath.IsAbs(envRoot) {
		envRoot = filepath.Join(r.workDir, envRoot)
	}

	r.roots = Roots{
		System:      r.platform.SystemRoot,
		User:        r.platform.UserRoot,
		Environment: envRoot,
		Local:       filepath.Join(r.workDir, r.localDirName),
	}

	return r, nil
}

func (r *Resolver) Service() string {
	return r.service
}

func (r *Resolver) Version() string {
	return r.version
}

func (r *Resolver) Roots() Roots {
	return r.roots
}

func (r *Resolver) Platform() platform.Platform {
	return r.platform
}

// ChildDirectory is the per-service directory below each root.
func (r *Resolver) ChildDirectory() string {
	return filepath.Join(r.parent, r.service)
}

// FileName is the configuration file name looked up in every directory.
func (r *Resolver) FileName() string {
	return r.service + r.extension
}

// TempDirectory is the scratch directory of the service. It is synthesized,
// never created.
func (r *Resolver) TempDirectory() string {
	return filepath.Join(r.platform.TempRoot, r.parent, r.service)
}

// SplitVersion splits r's version on ".".
func (r *Resolver) SplitVersion() []string {
	return SplitVersion(r.version, ".")
}

// SplitVersion returns the cumulative prefixes of version, most specific
// first: "1.2.3" gives [1.2.3 1.2 1]. An empty version gives nil.
func SplitVersion(version, sep string) []string {
	if version == "" {
		return nil
	}
	if sep == "" {
		sep = "."
	}

	parts := strings.Split(version, sep)
	out := make([]string, 0, len(parts))
	for i := len(parts); i > 0; i-- {
		out = append(out, strings.Join(parts[:i], sep))
	}
	return out
}

// baseDirectories joins each set root with the child directory. The user
// root uses a hidden parent directory.
func (r *Resolver) baseDirectories() []string {
	child := r.ChildDirectory()
	var out []string
	if r.roots.System != "" {
		out = append(out, filepath.Join(r.roots.System, child))
	}
	if r.roots.User != "" {
		out = append(out, filepath.Join(r.roots.User, "."+r.parent, r.service))
	}
	if r.roots.Environment != "" {
		out = append(out, filepath.Join(r.roots.Environment, child))
	}
	if r.roots.Local != "" {
		out = append(out, filepath.Join(r.roots.Local, child))
	}
	return out
}

// Directories returns candidate directories in load order. With
// filterMissing only existing directories are returned.
func (r *Resolver) Directories(filterMissing bool) []string {
	versions := r.SplitVersion()
	tails := make([]string, 0, len(versions)+1)
	tails = append(tails, "")
	for i := len(versions) - 1; i >= 0; i-- {
		tails = append(tails, versions[i])
	}

	var results []string
	for _, base := range r.baseDirectories() {
		for _, tail := range tails {
			path := filepath.Join(base, tail)
			if filterMissing && !isDir(path) {
				continue
			}
			results = append(results, path)
		}
	}

	if len(results) > 0 {
		r.logger.Debug("found configuration directories",
			zap.Int("count", len(results)),
			zap.Strings("directories", results),
		)
	}
	return results
}

// Files returns candidate configuration files in load order. With
// filterMissing only existing regular files are returned. Finding nothing is
// logged, not an error.
func (r *Resolver) Files(filterMissing bool) []string {
	directories := r.Directories(filterMissing)
	if len(directories) == 0 {
		r.logger.Error("no configuration directories found", zap.String("service", r.service))
		return nil
	}

	filename := r.FileName()
	var files []string
	for _, dir := range directories {
		path := filepath.Join(dir, filename)
		if filterMissing && !isFile(path) {
			continue
		}
		files = append(files, path)
	}

	if len(files) == 0 {
		r.logger.Error("no configuration files found", zap.String("service", r.service))
	}
	return files
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
