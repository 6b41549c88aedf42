package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"embed", "filter", "update", "stats", "clear"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestFilterRequiresQuery(t *testing.T) {
	err := filterCmd.RunE(filterCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no query")
}

func TestPersistentFlags(t *testing.T) {
	for _, name := range []string{"schema", "vector-db", "cache-path", "log-level", "reranker"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing persistent flag %s", name)
	}
}
