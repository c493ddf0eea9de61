package abiutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"smorty/internal/apperr"
)

const transferABI = `[{
	"anonymous": false,
	"inputs": [
		{"indexed": true, "name": "from", "type": "address"},
		{"indexed": true, "name": "to", "type": "address"},
		{"indexed": false, "name": "value", "type": "uint256"}
	],
	"name": "Transfer",
	"type": "event"
}]`

func writeABI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "abi.json")
	require.NoError(t, os.WriteFile(path, []byte(transferABI), 0o644))
	return path
}

func TestLoad_ValidFile_Parses(t *testing.T) {
	c, err := Load(writeABI(t))
	require.NoError(t, err)
	require.Contains(t, c.Parsed.Events, "Transfer")
}

func TestLoad_MissingFile_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindAbi))
}

func TestLoad_InvalidJSON_Errors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindAbi))
}

func TestResolveEvent_SplitsIndexedAndDataArgs(t *testing.T) {
	c, err := Load(writeABI(t))
	require.NoError(t, err)

	info, err := c.ResolveEvent("Transfer")
	require.NoError(t, err)
	require.Equal(t, "Transfer(address,address,uint256)", info.Signature)
	require.Len(t, info.IndexedArgs, 2)
	require.Len(t, info.NonIndexedArgs, 1)
	require.NotEmpty(t, info.Topic0)
}

func TestResolveEvent_UnknownEvent_Errors(t *testing.T) {
	c, err := Load(writeABI(t))
	require.NoError(t, err)

	_, err = c.ResolveEvent("DoesNotExist")
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindAbi))
}
