package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersAllSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"serve", "import", "admin-bootstrap", "version"} {
		require.True(t, names[want], "expected rootCmd to register %q", want)
	}
}
