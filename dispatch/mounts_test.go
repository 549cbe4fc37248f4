package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMountConfig(t *testing.T) {
	doc := []byte(`
mounts:
  - directory: demo
    app: myapp
    watch: true
  - directory: reports
    app: myapp
`)
	cfg, err := LoadMountConfig(doc)
	require.NoError(t, err)
	require.Len(t, cfg.Mounts, 2)
	assert.Equal(t, "demo", cfg.Mounts[0].Directory)
	assert.True(t, cfg.Mounts[0].Watch)
	assert.False(t, cfg.Mounts[1].Watch)
}

func TestLoadMountConfig_Malformed(t *testing.T) {
	_, err := LoadMountConfig([]byte("not: valid: yaml: -"))
	require.Error(t, err)
}
