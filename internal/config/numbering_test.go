package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberingConfigDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewNumberingConfigHolder(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultNumberingConfig(), holder.Get())
}

func TestNumberingConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numbering.yml")
	content := "numbering:\n  defaultPrefix: \"INV/{YYYY}/\"\n  defaultPadWidth: 5\n  maxAutoAttempts: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	holder, err := NewNumberingConfigHolder(Config{NumberingConfigPath: path})
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, "INV/{YYYY}/", got.DefaultPrefix)
	assert.Equal(t, 5, got.DefaultPadWidth)
	assert.Equal(t, 3, got.MaxAutoAttempts)
	assert.Equal(t, 30, got.TemplateCacheTTLSeconds)
}

func TestNumberingConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numbering.yml")
	require.NoError(t, os.WriteFile(path, []byte("numbering:\n  maxAutoAttempts: 0\n"), 0o600))

	_, err := NewNumberingConfigHolder(Config{NumberingConfigPath: path})
	assert.Error(t, err)
}
