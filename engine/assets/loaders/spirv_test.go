package loaders

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var minimalSPIRV = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

func TestReadSPIRV(t *testing.T) {
	code, err := ReadSPIRV(minimalSPIRV)
	require.NoError(t, err)
	assert.Equal(t, []uint32{spirvMagic, 0x00010000}, code)
}

func TestReadSPIRVRejectsBadInput(t *testing.T) {
	tests := map[string][]byte{
		"empty":       nil,
		"unaligned":   {0x03, 0x02, 0x23, 0x07, 0x00},
		"wrong magic": {0x00, 0x00, 0x00, 0x00},
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadSPIRV(data)
			assert.True(t, errors.Is(err, ErrInvalidSPIRV))
		})
	}
}

func TestLoadSPIRV(t *testing.T) {
	fsys := fstest.MapFS{"mesh.vert.spv": &fstest.MapFile{Data: minimalSPIRV}}

	code, err := LoadSPIRV(fsys, "mesh.vert.spv")
	require.NoError(t, err)
	assert.Len(t, code, 2)

	_, err = LoadSPIRV(fsys, "missing.spv")
	assert.Error(t, err)
}

func TestShaderLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sky.comp.spv")
	require.NoError(t, os.WriteFile(path, minimalSPIRV, 0o644))

	loader := &ShaderLoader{}
	res, err := loader.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "sky.comp", res.Name)
	assert.Equal(t, ResourceTypeShader, res.Type)
	assert.Equal(t, uint64(len(minimalSPIRV)), res.DataSize)
	assert.IsType(t, []uint32{}, res.Data)
	assert.NoError(t, loader.Unload(res))
}
