package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RegistrySource is one external registry backend with the identifier
// prefixes routed to it. A source with no prefixes is the default bucket.
type RegistrySource struct {
	Name     string   `mapstructure:"name"`
	URL      string   `mapstructure:"url"`
	Prefixes []string `mapstructure:"prefixes"`
}

// RoutingConfig is the identifier-to-source routing table.
type RoutingConfig struct {
	Sources []RegistrySource `mapstructure:"sources"`
}

// DefaultRoutingConfig routes name-request identifiers to the names
// registry and everything else to the businesses registry.
func DefaultRoutingConfig(cfg Config) RoutingConfig {
	return RoutingConfig{
		Sources: []RegistrySource{
			{Name: "names", URL: cfg.Registry.NamesURL, Prefixes: []string{"NR"}},
			{Name: "businesses", URL: cfg.Registry.BusinessesURL},
		},
	}
}

// RoutingConfigHolder serves the current routing table and hot-reloads it
// when the config file changes.
type RoutingConfigHolder struct {
	current atomic.Value // holds RoutingConfig
}

func NewRoutingConfigHolder(cfg Config) (*RoutingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("registry")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/registra/config")
	v.AddConfigPath("/etc/registra")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REGISTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &RoutingConfigHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		routing := DefaultRoutingConfig(cfg)
		if err := validateRoutingConfig(routing); err != nil {
			return nil, err
		}
		holder.current.Store(routing)
		return holder, nil
	}

	var routing RoutingConfig
	if err := v.UnmarshalKey("registry", &routing); err != nil {
		return nil, err
	}
	if err := validateRoutingConfig(routing); err != nil {
		return nil, err
	}
	holder.current.Store(routing)

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		var next RoutingConfig
		if err := v.UnmarshalKey("registry", &next); err != nil {
			log.Printf("registry config reload failed: %v", err)
			return
		}
		if err := validateRoutingConfig(next); err != nil {
			log.Printf("registry config reload rejected: %v", err)
			return
		}
		holder.current.Store(next)
	})

	return holder, nil
}

// NewStaticRoutingConfigHolder returns a holder pinned to the given
// table, with no file watching.
func NewStaticRoutingConfigHolder(routing RoutingConfig) *RoutingConfigHolder {
	holder := &RoutingConfigHolder{}
	holder.current.Store(routing)
	return holder
}

// Current returns the active routing table.
func (h *RoutingConfigHolder) Current() RoutingConfig {
	return h.current.Load().(RoutingConfig)
}

// Resolve returns the source for the given business identifier. Prefixed
// sources win; the first source without prefixes is the fallback.
func (c RoutingConfig) Resolve(identifier string) (RegistrySource, bool) {
	var fallback *RegistrySource
	for i := range c.Sources {
		source := c.Sources[i]
		if len(source.Prefixes) == 0 {
			if fallback == nil {
				fallback = &c.Sources[i]
			}
			continue
		}
		for _, prefix := range source.Prefixes {
			if strings.HasPrefix(identifier, prefix) {
				return source, true
			}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return RegistrySource{}, false
}

func validateRoutingConfig(cfg RoutingConfig) error {
	if len(cfg.Sources) == 0 {
		return errors.New("registry routing requires at least one source")
	}
	hasFallback := false
	for _, source := range cfg.Sources {
		if strings.TrimSpace(source.URL) == "" {
			return errors.New("registry source missing url")
		}
		if len(source.Prefixes) == 0 {
			hasFallback = true
		}
	}
	if !hasFallback {
		return errors.New("registry routing requires a source without prefixes")
	}
	return nil
}
