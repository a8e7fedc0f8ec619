package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bmpbang.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	f, err := c.BusFrequency()
	require.NoError(t, err)
	assert.Equal(t, 100*physic.KiloHertz, f)
	assert.Equal(t, 5*time.Millisecond, c.SettleDelay)
	assert.Equal(t, time.Second, c.Interval)
	assert.Equal(t, "ignore", c.AckPolicy)
	assert.Len(t, c.SequencerOpts(), 3)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
backend: mcp23017
scl: A0
sda: A1
frequency: 10kHz
ack_policy: retry
retry_limit: 3
settle_delay: 8ms
interval: 2s
output: yaml
expander:
  address: 0x20
  bank: 1
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendMCP23017, c.Backend)
	assert.Equal(t, "A0", c.SCL)
	assert.Equal(t, 8*time.Millisecond, c.SettleDelay)
	assert.Equal(t, 2*time.Second, c.Interval)
	assert.Equal(t, OutputYAML, c.Output)
	assert.Equal(t, byte(0x20), c.Expander.Address)
	assert.Equal(t, 1, c.Expander.Bank)
	// untouched fields keep their defaults
	assert.Equal(t, -1, c.Bridge)
	assert.Equal(t, 1, c.Expander.Retries)
	f, err := c.BusFrequency()
	require.NoError(t, err)
	assert.Equal(t, 10*physic.KiloHertz, f)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     string
	}{
		{"backend", "backend: ftdi", "unknown backend"},
		{"frequency", "frequency: fast", "bad frequency"},
		{"policy", "ack_policy: abort", "unknown acknowledgment policy"},
		{"retries", "retry_limit: 0", "retry limit must be positive"},
		{"output", "output: json", "unknown output"},
		{"interval", "interval: 0s", "interval must be positive"},
		{"settle", "settle_delay: -1ms", "negative settle delay"},
		{"syntax", "backend: [", "could not parse config file"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, test.content))
			assert.ErrorContains(t, err, test.err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "could not read config file")
}
