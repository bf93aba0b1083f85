package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePrefixesWin(t *testing.T) {
	routing := RoutingConfig{
		Sources: []RegistrySource{
			{Name: "names", URL: "http://names", Prefixes: []string{"NR"}},
			{Name: "businesses", URL: "http://businesses"},
		},
	}

	source, ok := routing.Resolve("NR 1234567")
	require.True(t, ok)
	require.Equal(t, "names", source.Name)

	source, ok = routing.Resolve("BC0001234")
	require.True(t, ok)
	require.Equal(t, "businesses", source.Name)
}

func TestResolveNoFallback(t *testing.T) {
	routing := RoutingConfig{
		Sources: []RegistrySource{
			{Name: "names", URL: "http://names", Prefixes: []string{"NR"}},
		},
	}

	_, ok := routing.Resolve("BC0001234")
	require.False(t, ok)
}

func TestValidateRoutingConfig(t *testing.T) {
	require.Error(t, validateRoutingConfig(RoutingConfig{}))

	require.Error(t, validateRoutingConfig(RoutingConfig{
		Sources: []RegistrySource{{Name: "names", Prefixes: []string{"NR"}}},
	}))

	// Every table needs a source without prefixes to catch the rest.
	require.Error(t, validateRoutingConfig(RoutingConfig{
		Sources: []RegistrySource{{Name: "names", URL: "http://names", Prefixes: []string{"NR"}}},
	}))

	require.NoError(t, validateRoutingConfig(RoutingConfig{
		Sources: []RegistrySource{
			{Name: "names", URL: "http://names", Prefixes: []string{"NR"}},
			{Name: "businesses", URL: "http://businesses"},
		},
	}))
}

func TestDefaultRoutingConfig(t *testing.T) {
	cfg := Config{Registry: RegistryConfig{
		NamesURL:      "http://names",
		BusinessesURL: "http://businesses",
	}}
	routing := DefaultRoutingConfig(cfg)
	require.NoError(t, validateRoutingConfig(routing))

	source, ok := routing.Resolve("NR 7654321")
	require.True(t, ok)
	require.Equal(t, "http://names", source.URL)
}
