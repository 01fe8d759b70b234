package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8080", cfg.Listen)
	require.Equal(t, "/var/lib/ledgerd/ledger.db", cfg.LedgerPath())
	require.Equal(t, "NOTICE", cfg.Logging.Level)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load([]byte(`
Listen = ":9000"
DataDir = "/srv/ledgerd"

[Logging]
Level = "info"
File = "/var/log/ledgerd.log"
`))
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Listen)
	require.Equal(t, "/srv/ledgerd/ledger.db", cfg.LedgerPath())
	require.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoad_Rejects(t *testing.T) {
	for name, body := range map[string]string{
		"unknown key":      `Port = 8080`,
		"relative datadir": `DataDir = "data"`,
		"bad level":        "[Logging]\nLevel = \"CHATTY\"",
		"relative logfile": "[Logging]\nFile = \"ledgerd.log\"",
		"negative header":  `MaxHeaderBytes = -1`,
	} {
		_, err := Load([]byte(body))
		require.Error(t, err, name)
	}
}
