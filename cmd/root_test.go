package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"serve", "status", "dialer", "import", "export", "reset", "migrate", "config"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "dialer-admin", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestDialerCommand_HasSubcommands(t *testing.T) {
	cmds := dialerCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"start", "stop", "speed", "callers"} {
		assert.True(t, names[name], "expected dialer subcommand %q not found", name)
	}
}

func TestDialerSpeedCommand_RejectsOffScaleValues(t *testing.T) {
	for _, arg := range []string{"42", "5", "65", "abc"} {
		err := dialerSpeedCmd.RunE(dialerSpeedCmd, []string{arg})
		require.Error(t, err, "speed %q should be rejected", arg)
	}
}

func TestImportCommand_Flags(t *testing.T) {
	for _, name := range []string{"file", "dest", "phone-col", "name-col", "chunk-size"} {
		require.NotNil(t, importCmd.Flags().Lookup(name), "import command should have --%s flag", name)
	}
	assert.Equal(t, "leads", importCmd.Flags().Lookup("dest").DefValue)
}

func TestImportCommand_RejectsUnknownDestination(t *testing.T) {
	importDest = "suppression"
	defer func() { importDest = "leads" }()

	err := importCmd.RunE(importCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid destination")
}

func TestResetAllCommand_RequiresConfirm(t *testing.T) {
	resetAllConfirm = false

	err := resetAllCmd.RunE(resetAllCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--confirm")
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestParseExportRange(t *testing.T) {
	from, to, err := parseExportRange("2026-08-01", "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC), to)

	_, _, err = parseExportRange("01-08-2026", "2026-08-31")
	require.Error(t, err)

	_, _, err = parseExportRange("2026-08-31", "2026-08-01")
	require.Error(t, err)
}

func TestFormatCallers(t *testing.T) {
	assert.Equal(t, "(none)", formatCallers(nil))
	assert.Equal(t, "+31101234567, +31207654321",
		formatCallers([]string{"+31101234567", "+31207654321"}))
}
