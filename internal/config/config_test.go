package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
interval: 45s
page-size: 500
environments:
  - name: base
    subgraph-url: https://example.com/subgraphs/base
    collateral-decimal: 6
    collaterals: ["0xd9aAEc86B65D86f6A7B5B1b0c42FFA531710b6CA"]
    affiliates:
      - name: Acme
        address: "0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa"
        from-timestamp: "2024-01-01T00:00:00Z"
    solvers:
      - name: Rasa
        address: "0x1111111111111111111111111111111111111111"
        main-color: "#A2D4EA"
  - name: bnb
    subgraph-url: https://example.com/subgraphs/bnb
    collateral-decimal: 18
    affiliates:
      - name: Acme
        address: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", ":9000", "")
	require.NoError(t, flags.Parse([]string{"--listen=:9100"}))

	cfg, err := Load(writeConfig(t, sampleConfig), flags)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Interval)
	assert.Equal(t, 500, cfg.PageSize)
	assert.Equal(t, ":9100", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	require.Len(t, cfg.Environments, 2)

	base := cfg.Environments[0]
	require.NotNil(t, base.CollateralDecimal)
	assert.Equal(t, 6, *base.CollateralDecimal)
	assert.Equal(t, []string{"0xd9aaec86b65d86f6a7b5b1b0c42ffa531710b6ca"}, base.Collaterals)
	assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", base.Affiliates[0].Address)
	assert.Equal(t, "1704067200", base.Affiliates[0].FromTimestamp)
	assert.Equal(t, "#8884d8", base.Affiliates[0].MainColor)
	assert.Equal(t, "#A2D4EA", base.Solvers[0].MainColor)
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	_, err := Load(writeConfig(t, `
environments:
  - name: broken
    subgraph-url: https://example.com
    collateral-decimal: 30
    affiliates:
      - name: ""
        address: nope
`), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestBuildDecimals(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig), nil)
	require.NoError(t, err)

	dec, err := BuildDecimals(cfg.Environments)
	require.NoError(t, err)

	d, ok := dec.Lookup("base", "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	require.True(t, ok)
	assert.Equal(t, 6, d)
	d, ok = dec.Lookup("bnb", "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	require.True(t, ok)
	assert.Equal(t, 18, d)
	_, ok = dec.Lookup("base", "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	assert.False(t, ok)
	_, ok = dec.Lookup("base", "0x2222222222222222222222222222222222222222")
	assert.False(t, ok)

	all := dec.All()
	assert.Len(t, all["base"], 2)
	assert.Len(t, all["bnb"], 1)
}

func TestBuildDecimalsSameAddressAcrossEnvironments(t *testing.T) {
	six, eight := 6, 8
	addr := "0x1111111111111111111111111111111111111111"
	envs := []Environment{
		{Name: "a", CollateralDecimal: &six, Affiliates: []Affiliate{{Name: "x", Address: addr}}},
		{Name: "b", CollateralDecimal: &eight, Affiliates: []Affiliate{{Name: "x", Address: addr}}},
	}
	dec, err := BuildDecimals(envs)
	require.NoError(t, err)

	d, ok := dec.Lookup("a", addr)
	require.True(t, ok)
	assert.Equal(t, 6, d)
	d, ok = dec.Lookup("b", addr)
	require.True(t, ok)
	assert.Equal(t, 8, d)
}

func TestBuildDecimalsRejectsBadEnvironments(t *testing.T) {
	six := 6
	_, err := BuildDecimals([]Environment{{Name: "c"}})
	assert.Error(t, err)

	_, err = BuildDecimals([]Environment{
		{Name: "a", CollateralDecimal: &six},
		{Name: "a", CollateralDecimal: &six},
	})
	assert.ErrorContains(t, err, "declared twice")
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("1700000000")
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), ts)

	ts, err = ParseTimestamp("2024-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, uint64(1704067200), ts)

	ts, err = ParseTimestamp("")
	require.NoError(t, err)
	assert.Zero(t, ts)

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}
