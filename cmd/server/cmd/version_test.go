package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommandPrintsStampedVersion(t *testing.T) {
	origVersion := Version
	defer func() { Version = origVersion }()
	Version = "1.2.3"

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, rootCmd.Execute())
	require.True(t, strings.Contains(buf.String(), "1.2.3"))
}

func TestVersionCommandDefaultsToDev(t *testing.T) {
	origVersion := Version
	defer func() { Version = origVersion }()
	Version = "dev"

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, rootCmd.Execute())
	require.True(t, strings.Contains(buf.String(), "dev"))
}

func TestVersionCommandRequiresNoServerDependencies(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, rootCmd.Execute())
	require.NotZero(t, buf.Len())
}
