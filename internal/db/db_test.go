package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	sql, err := migrations.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(sql), "CREATE TABLE IF NOT EXISTS pipeline_jobs")
	assert.Contains(t, string(sql), "UNIQUE (doc_hash, step)")
}

func TestMarshalJSON(t *testing.T) {
	data, err := marshalJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = marshalJSON(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}

func TestUnmarshalMap(t *testing.T) {
	m, err := unmarshalMap(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = unmarshalMap([]byte(`{"k":"v","n":2}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v", "n": 2.0}, m)
}

func TestUnmarshalMap_CorruptRow(t *testing.T) {
	m, err := unmarshalMap([]byte(`not json`))
	assert.Error(t, err)
	assert.Nil(t, m)
}
