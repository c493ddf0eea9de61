package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
database_uri = "postgres://localhost/smorty"
log_level = "info"

[ai]
provider = "openai"
model = "gpt-4o-mini"
api_key = "sk-test"
temperature = 0.0

[chains]
ethereum = "http://localhost:8545"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_UnrecognisedExtension_Errors(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", "{}")
	_, err := Load(p)
	assert.Error(t, err)
}

func TestLoad_MissingFile_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestApplyEnvOverrides_OverridesChainURL(t *testing.T) {
	cfg := &Config{Chains: map[string]string{"ethereum": "http://old"}}
	t.Setenv("ETH_RPC_URL_ETHEREUM", "http://new")
	applyEnvOverrides(cfg)
	assert.Equal(t, "http://new", cfg.Chains["ethereum"])
}

func TestApplyEnvOverrides_OverridesDatabaseURIAndAPIKey(t *testing.T) {
	cfg := &Config{}
	t.Setenv("DATABASE_URI", "postgres://override")
	t.Setenv("OPENAI_API_KEY", "sk-override")
	applyEnvOverrides(cfg)
	assert.Equal(t, "postgres://override", cfg.DatabaseURI)
	assert.Equal(t, "sk-override", cfg.AI.APIKey)
}

func TestValidate_MissingDatabaseURI_IsViolation(t *testing.T) {
	err := Validate(&Config{})
	assert.Error(t, err)
}

func TestValidate_UnresolvedChain_IsViolation(t *testing.T) {
	cfg := &Config{
		DatabaseURI: "postgres://localhost/smorty",
		Contracts: map[string]Contract{
			"weth": {Chain: "unknown", Address: "0x1111111111111111111111111111111111111111", ABIPath: ""},
		},
	}
	err := Validate(cfg)
	assert.ErrorContains(t, err, "unknown")
}

func TestValidate_DuplicateEndpoint_IsViolation(t *testing.T) {
	dir := t.TempDir()
	abiPath := writeFile(t, dir, "erc20.json", `[{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}]`)

	cfg := &Config{
		DatabaseURI: "postgres://localhost/smorty",
		Chains:      map[string]string{"ethereum": "http://rpc"},
		Contracts: map[string]Contract{
			"weth": {
				Chain: "ethereum", Address: "0x1111111111111111111111111111111111111111", ABIPath: abiPath,
				Specs: []Spec{
					{Name: "Transfer", Endpoint: "/transfers"},
				},
			},
			"dai": {
				Chain: "ethereum", Address: "0x2222222222222222222222222222222222222222", ABIPath: abiPath,
				Specs: []Spec{
					{Name: "Transfer", Endpoint: "/transfers"},
				},
			},
		},
	}
	err := Validate(cfg)
	assert.ErrorContains(t, err, "already used")
}

func TestValidate_EventNotInABI_IsViolation(t *testing.T) {
	dir := t.TempDir()
	abiPath := writeFile(t, dir, "erc20.json", `[{"anonymous":false,"inputs":[],"name":"Approval","type":"event"}]`)

	cfg := &Config{
		DatabaseURI: "postgres://localhost/smorty",
		Chains:      map[string]string{"ethereum": "http://rpc"},
		Contracts: map[string]Contract{
			"weth": {
				Chain: "ethereum", Address: "0x1111111111111111111111111111111111111111", ABIPath: abiPath,
				Specs: []Spec{{Name: "Transfer", Endpoint: "/transfers"}},
			},
		},
	}
	err := Validate(cfg)
	assert.ErrorContains(t, err, "not found in")
}

func TestLoad_ValidTOML_ParsesAIBlock(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.toml", sampleTOML)
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Contains(t, cfg.Chains, "ethereum")
}
