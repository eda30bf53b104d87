package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ASTMAP_OUTPUT_FORMAT.
const EnvPrefix = "ASTMAP"

// Loader reads configuration for one run.
type Loader struct {
	rootDir    string
	configFile string
	flags      *pflag.FlagSet
	bindings   map[string]string
}

// NewLoader creates a loader that looks for .astmap.yaml in rootDir.
func NewLoader(rootDir string) *Loader {
	return &Loader{rootDir: rootDir}
}

// WithConfigFile makes the loader read path instead of searching rootDir.
// A missing explicit file is an error.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// BindFlags binds config keys to flags of fs. bindings maps a config key
// ("output.format") to a flag name ("format"). Only flags set on the
// command line override the other sources.
func (l *Loader) BindFlags(fs *pflag.FlagSet, bindings map[string]string) *Loader {
	l.flags = fs
	l.bindings = bindings
	return l
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Flags set on the command line
// 2. Environment variables (ASTMAP_*)
// 3. Config file (.astmap.yaml or the explicit file)
// 4. Default values
func (l *Loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(".astmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(l.rootDir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., ASTMAP_SELECT_MAX_CLASSES)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if l.flags != nil {
		for key, name := range l.bindings {
			f := l.flags.Lookup(name)
			if f == nil {
				return nil, fmt.Errorf("binding %s: no flag named %q", key, name)
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding %s: %w", key, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file is fine; defaults, env and flags still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("input.path", defaults.Input.Path)
	v.SetDefault("input.sources", defaults.Input.Sources)
	v.SetDefault("input.include", defaults.Input.Include)
	v.SetDefault("input.max_file_size", defaults.Input.MaxFileSize)

	v.SetDefault("parse.keep_root", defaults.Parse.KeepRoot)
	v.SetDefault("parse.skip_implicit", defaults.Parse.SkipImplicit)
	v.SetDefault("parse.max_line_bytes", defaults.Parse.MaxLineBytes)
	v.SetDefault("parse.strict", defaults.Parse.Strict)

	v.SetDefault("select.class", defaults.Select.Class)
	v.SetDefault("select.with_bases", defaults.Select.WithBases)
	v.SetDefault("select.max_classes", defaults.Select.MaxClasses)

	v.SetDefault("output.file", defaults.Output.File)
	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("output.sqlite", defaults.Output.SQLite)
	v.SetDefault("output.cache", defaults.Output.Cache)
	v.SetDefault("output.progress", defaults.Output.Progress)

	v.SetDefault("watch.enabled", defaults.Watch.Enabled)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.add_source", defaults.Log.AddSource)
}
