// Package config builds the immutable run configuration from viper state.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when the configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Platform describes one platform song source.
type Platform struct {
	Name     string `mapstructure:"name"`
	Kind     string `mapstructure:"kind"`
	Disabled bool   `mapstructure:"disabled"`

	// sqlite
	DSN    string `mapstructure:"dsn"`
	DSNEnv string `mapstructure:"dsn_env"`
	Table  string `mapstructure:"table"`
	Query  string `mapstructure:"query"`

	// http and html
	URL      string `mapstructure:"url"`
	RowsPath string `mapstructure:"rows_path"`
	Selector string `mapstructure:"selector"`

	// RateLimit caps searches per second; 0 means unlimited.
	RateLimit float64 `mapstructure:"rate_limit"`

	Refine  string            `mapstructure:"refine"`
	Columns map[string]string `mapstructure:"columns"`
}

// Enabled reports whether the platform is in scope for runs.
func (p Platform) Enabled() bool { return !p.Disabled }

// ResolvedDSN returns the DSN, preferring the environment variable named by
// DSNEnv when it is set.
func (p Platform) ResolvedDSN() string {
	if p.DSNEnv != "" {
		if v := os.Getenv(p.DSNEnv); v != "" {
			return v
		}
	}
	return p.DSN
}

// SourceColumn returns the platform column mapped onto the standard column,
// or "" when the platform does not provide it.
func (p Platform) SourceColumn(standard string) string {
	var found []string
	for src, dst := range p.Columns {
		if dst == standard {
			found = append(found, src)
		}
	}
	if len(found) == 0 {
		return ""
	}
	sort.Strings(found)
	return found[0]
}

func (p Platform) clone() Platform {
	cols := make(map[string]string, len(p.Columns))
	for k, v := range p.Columns {
		cols[k] = v
	}
	p.Columns = cols
	return p
}

// RefineSettings controls candidate refinement.
type RefineSettings struct {
	MaxIterations    int  `mapstructure:"max_iterations"`
	IncludeTrackOnly bool `mapstructure:"include_track_only"`
	// IncludeLevel bounds the tiers kept by the tiered strategy.
	IncludeLevel int `mapstructure:"include_level"`
}

// RetrySettings controls platform query retries.
type RetrySettings struct {
	Attempts int           `mapstructure:"attempts"`
	Sleep    time.Duration `mapstructure:"sleep"`
}

// StatementColumns names the client statement header cells.
type StatementColumns struct {
	Track     string `mapstructure:"track"`
	Version   string `mapstructure:"version"`
	Artist    string `mapstructure:"artist"`
	Album     string `mapstructure:"album"`
	Platform  string `mapstructure:"platform"`
	Revenue   string `mapstructure:"revenue"`
	Streams   string `mapstructure:"streams"`
	SongID    string `mapstructure:"song_id"`
	VersionID string `mapstructure:"version_id"`
}

type fileConfig struct {
	Platforms      []Platform        `mapstructure:"platforms"`
	Refine         RefineSettings    `mapstructure:"refine"`
	Retry          RetrySettings     `mapstructure:"retry"`
	VersionAliases map[string]string `mapstructure:"version_aliases"`
	Statement      StatementColumns  `mapstructure:"statement"`
	DBPath         string            `mapstructure:"dbpath"`
	OutputDir      string            `mapstructure:"output"`
	CacheTTL       time.Duration     `mapstructure:"cache_ttl"`
	Unavailable    string            `mapstructure:"na_marker"`
}

// Config is the run configuration. It is built once at startup and never
// modified afterwards; accessors return copies.
type Config struct {
	c       fileConfig
	aliases Aliases
}

func defaults() fileConfig {
	return fileConfig{
		Platforms:      builtinPlatforms(),
		Refine:         RefineSettings{MaxIterations: defaultMaxIterations, IncludeTrackOnly: true, IncludeLevel: 3},
		Retry:          RetrySettings{Attempts: defaultRetryAttempts, Sleep: defaultRetrySleep},
		VersionAliases: builtinAliases(),
		Statement:      defaultStatementColumns(),
		DBPath:         defaultDBPath,
		OutputDir:      defaultOutputDir,
		CacheTTL:       defaultCacheTTL,
		Unavailable:    defaultUnavailable,
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := build(defaults())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load overlays the viper state on the built-in defaults and validates it.
// A nil viper uses the global instance.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	fc := defaults()
	if v.IsSet("platforms") {
		// A configured platform list replaces the built-in one.
		fc.Platforms = nil
	}
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("could not decode configuration: %w", err)
	}
	return build(fc)
}

func build(fc fileConfig) (*Config, error) {
	builtin := make(map[string]Platform)
	for _, p := range builtinPlatforms() {
		builtin[p.Name] = p
	}

	seen := make(map[string]bool)
	for i, p := range fc.Platforms {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("%w: platform #%d has no name", ErrInvalidConfig, i+1)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: duplicate platform %q", ErrInvalidConfig, p.Name)
		}
		seen[p.Name] = true

		if b, ok := builtin[p.Name]; ok {
			if len(p.Columns) == 0 {
				p.Columns = b.Columns
			}
			if p.Table == "" {
				p.Table = b.Table
			}
		}
		if p.Kind == "" {
			p.Kind = KindSQLite
		}
		if p.Refine == "" {
			p.Refine = RefineFixedPoint
		}
		switch p.Kind {
		case KindSQLite, KindHTTP, KindHTML, KindDev:
		default:
			return nil, fmt.Errorf("%w: platform %q has unknown kind %q", ErrInvalidConfig, p.Name, p.Kind)
		}
		if p.RateLimit < 0 {
			return nil, fmt.Errorf("%w: platform %q has a negative rate_limit", ErrInvalidConfig, p.Name)
		}
		if p.Kind != KindDev {
			if p.SourceColumn(ColSongID) == "" || p.SourceColumn(ColTrack) == "" {
				return nil, fmt.Errorf("%w: platform %q must map %s and %s", ErrInvalidConfig, p.Name, ColSongID, ColTrack)
			}
		}
		fc.Platforms[i] = p.clone()
	}

	if fc.Refine.MaxIterations <= 0 {
		return nil, fmt.Errorf("%w: refine.max_iterations must be positive", ErrInvalidConfig)
	}
	if fc.Retry.Attempts <= 0 {
		return nil, fmt.Errorf("%w: retry.attempts must be positive", ErrInvalidConfig)
	}
	if fc.Retry.Sleep < 0 {
		return nil, fmt.Errorf("%w: retry.sleep must not be negative", ErrInvalidConfig)
	}

	var err error
	if fc.DBPath, err = homedir.Expand(fc.DBPath); err != nil {
		return nil, err
	}
	if fc.OutputDir, err = homedir.Expand(fc.OutputDir); err != nil {
		return nil, err
	}

	return &Config{c: fc, aliases: NewAliases(fc.VersionAliases)}, nil
}

// Platforms returns the enabled platforms in configuration order.
func (c *Config) Platforms() []Platform {
	var out []Platform
	for _, p := range c.c.Platforms {
		if p.Enabled() {
			out = append(out, p.clone())
		}
	}
	return out
}

// AllPlatforms returns every configured platform, enabled or not.
func (c *Config) AllPlatforms() []Platform {
	out := make([]Platform, 0, len(c.c.Platforms))
	for _, p := range c.c.Platforms {
		out = append(out, p.clone())
	}
	return out
}

// Platform looks up a configured platform by name.
func (c *Config) Platform(name string) (Platform, bool) {
	for _, p := range c.c.Platforms {
		if p.Name == name {
			return p.clone(), true
		}
	}
	return Platform{}, false
}

// PlatformNames returns the names of the enabled platforms.
func (c *Config) PlatformNames() []string {
	var names []string
	for _, p := range c.c.Platforms {
		if p.Enabled() {
			names = append(names, p.Name)
		}
	}
	return names
}

func (c *Config) Refine() RefineSettings             { return c.c.Refine }
func (c *Config) Retry() RetrySettings               { return c.c.Retry }
func (c *Config) Aliases() Aliases                   { return c.aliases }
func (c *Config) StatementColumns() StatementColumns { return c.c.Statement }
func (c *Config) DBPath() string                     { return c.c.DBPath }
func (c *Config) OutputDir() string                  { return c.c.OutputDir }
func (c *Config) CacheTTL() time.Duration            { return c.c.CacheTTL }

// UnavailableMarker is the platform sentinel for a metric that is not
// available.
func (c *Config) UnavailableMarker() string { return c.c.Unavailable }

// With returns a copy of the configuration with the given options applied.
// It is used by the CLI to fold flag values in before the run starts.
func (c *Config) With(opts ...Option) (*Config, error) {
	fc := c.c
	fc.Platforms = make([]Platform, 0, len(c.c.Platforms))
	for _, p := range c.c.Platforms {
		fc.Platforms = append(fc.Platforms, p.clone())
	}
	fc.VersionAliases = c.aliases.Map()
	for _, o := range opts {
		o(&fc)
	}
	return build(fc)
}

// Option adjusts a configuration in With.
type Option func(*fileConfig)

// WithPlatforms enables exactly the named platforms.
func WithPlatforms(names ...string) Option {
	return func(fc *fileConfig) {
		want := make(map[string]bool, len(names))
		for _, n := range names {
			want[strings.TrimSpace(n)] = true
		}
		for i := range fc.Platforms {
			fc.Platforms[i].Disabled = !want[fc.Platforms[i].Name]
		}
	}
}

// WithPlatform adds or replaces a platform definition.
func WithPlatform(p Platform) Option {
	return func(fc *fileConfig) {
		for i := range fc.Platforms {
			if fc.Platforms[i].Name == p.Name {
				fc.Platforms[i] = p
				return
			}
		}
		fc.Platforms = append(fc.Platforms, p)
	}
}

// WithDBPath overrides the results database path.
func WithDBPath(path string) Option {
	return func(fc *fileConfig) {
		if path != "" {
			fc.DBPath = path
		}
	}
}

// WithOutputDir overrides the report directory.
func WithOutputDir(dir string) Option {
	return func(fc *fileConfig) {
		if dir != "" {
			fc.OutputDir = dir
		}
	}
}

// WithRetry overrides the retry policy.
func WithRetry(attempts int, sleep time.Duration) Option {
	return func(fc *fileConfig) {
		fc.Retry = RetrySettings{Attempts: attempts, Sleep: sleep}
	}
}
