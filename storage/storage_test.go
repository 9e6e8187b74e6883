package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoplink/protocol"
)

func TestMemStore(t *testing.T) {
	var m MemStore
	_, err := m.Load()
	assert.ErrorIs(t, err, ErrEmpty)

	require.NoError(t, m.Save([]byte{1, 2}))
	data, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)
	assert.Equal(t, 1, m.Saves)
}

func TestFileStoreRoundTrip(t *testing.T) {
	f := FileStore{Path: filepath.Join(t.TempDir(), "pipe.bin")}
	_, err := f.Load()
	assert.ErrorIs(t, err, ErrEmpty)

	require.NoError(t, SavePipe(f, 0x0102030405))
	p, err := LoadPipe(f)
	require.NoError(t, err)
	assert.Equal(t, protocol.PipeAddress(0x0102030405), p)

	raw, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Len(t, raw, 7)
}

func TestFileStoreDetectsCorruption(t *testing.T) {
	f := FileStore{Path: filepath.Join(t.TempDir(), "failsafe.bin")}
	var table protocol.FailsafeTable
	table.Values[3] = 45
	table.Enabled[3] = true
	require.NoError(t, SaveFailsafe(f, table))

	got, err := LoadFailsafe(f)
	require.NoError(t, err)
	assert.Equal(t, table, got)

	raw, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	raw[3] ^= 0x01
	require.NoError(t, os.WriteFile(f.Path, raw, 0o644))

	_, err = LoadFailsafe(f)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadPipeWrongLength(t *testing.T) {
	m := &MemStore{}
	require.NoError(t, m.Save([]byte{1, 2, 3}))
	_, err := LoadPipe(m)
	assert.ErrorIs(t, err, protocol.ErrPipeLength)
}
