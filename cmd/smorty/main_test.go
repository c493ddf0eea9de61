package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseDir_IsConfigFilesDirectory(t *testing.T) {
	orig := configPath
	defer func() { configPath = orig }()

	configPath = filepath.Join("/tmp", "smorty-test-dir", "config.toml")
	require.Equal(t, filepath.Join("/tmp", "smorty-test-dir"), baseDir())
}

func TestBaseDir_BareFilename_IsCurrentDir(t *testing.T) {
	orig := configPath
	defer func() { configPath = orig }()

	configPath = "config.toml"
	require.Equal(t, ".", baseDir())
}

func TestDefaultConfigPath_PrefersTOMLWhenPresent(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)
	require.NoError(t, os.Chdir(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(""), 0o644))
	require.Equal(t, "config.toml", defaultConfigPath())
}

func TestDefaultConfigPath_FallsBackToYAML(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)
	require.NoError(t, os.Chdir(dir))

	require.Equal(t, "config.yaml", defaultConfigPath())
}
