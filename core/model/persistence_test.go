package model

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

type savedThing struct {
	Label   string
	Weights []float64
	State   *StateManager
}

type otherThing struct {
	N int
}

func init() {
	Register(&savedThing{})
	Register(&otherThing{})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "model.gob")
	state := NewStateManager()
	state.SetFitted(3, 10)
	in := &savedThing{Label: "ridge", Weights: []float64{0.5, -1.25, 3}, State: state}

	require.NoError(t, SaveModel(path, in))

	out, err := LoadModelAs[*savedThing](path)
	require.NoError(t, err)
	assert.Equal(t, in.Label, out.Label)
	assert.Equal(t, in.Weights, out.Weights)
	assert.True(t, out.State.IsFitted())
	nf, ns := out.State.GetDimensions()
	assert.Equal(t, 3, nf)
	assert.Equal(t, 10, ns)
}

func TestSaveModel_OverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, SaveModel(path, &otherThing{N: 1}))
	require.NoError(t, SaveModel(path, &otherThing{N: 2}))

	out, err := LoadModelAs[*otherThing](path)
	require.NoError(t, err)
	assert.Equal(t, 2, out.N)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestLoadModel_MissingIsNotFound(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.gob"))
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.False(t, errors.Is(err, errors.ErrDecode))
}

func TestLoadModel_CorruptIsDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.gob")
	require.NoError(t, os.WriteFile(path, []byte("definitely not gob"), 0o644))

	_, err := LoadModel(path)
	require.Error(t, err)
	assert.Equal(t, errors.KindDecode, errors.KindOf(err))
}

func TestLoadModel_ChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteArtifact(&buf, &otherThing{N: 7}))
	env, err := ReadEnvelope(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, ArtifactFormat, env.Format)

	env.Payload[len(env.Payload)-1] ^= 0xff
	var tampered bytes.Buffer
	require.NoError(t, encodeEnvelope(&tampered, env))

	path := filepath.Join(t.TempDir(), "tampered.gob")
	require.NoError(t, os.WriteFile(path, tampered.Bytes(), 0o644))
	_, err = LoadModel(path)
	require.Error(t, err)
	assert.Equal(t, errors.KindDecode, errors.KindOf(err))
	assert.Contains(t, err.Error(), "checksum")
}

func TestLoadModelAs_WrongType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, SaveModel(path, &otherThing{N: 1}))

	_, err := LoadModelAs[*savedThing](path)
	require.Error(t, err)
	assert.Equal(t, errors.KindDecode, errors.KindOf(err))
}

func TestSaveModel_Nil(t *testing.T) {
	err := SaveModel(filepath.Join(t.TempDir(), "x.gob"), nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestSaveModel_UnwritableDirectory(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := SaveModel(filepath.Join(blocker, "model.gob"), &otherThing{N: 1})
	require.Error(t, err)
	assert.Equal(t, errors.KindIO, errors.KindOf(err))
}
