package main

import (
	"bytes"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/hpickle"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", writeConfig(t)}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hpickle.yaml")
	require.NoError(t, writeFile(path, "log:\n  level: error\n  outputs: [stderr]\n"))
	return path
}

func sampleFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.hpk")
	v := map[string]any{
		"alice": map[string]any{"age": 30, "scores": []float32{1.5, 2}},
		"bob":   map[string]any{"age": 25},
	}
	require.NoError(t, hpickle.DumpFile(v, path))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "hpickle v"+Version+"\n", out)
}

func TestList(t *testing.T) {
	out, err := run(t, "ls", sampleFile(t))
	require.NoError(t, err)
	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "/alice/scores")
	assert.Contains(t, out, "float32[2]")
	assert.Contains(t, out, "age")
}

func TestShow(t *testing.T) {
	path := sampleFile(t)

	out, err := run(t, "show", path)
	require.NoError(t, err)
	assert.Contains(t, out, "alice: {age: 30")
	assert.Contains(t, out, "bob: {age: 25}")

	out, err = run(t, "show", path, "/bob")
	require.NoError(t, err)
	assert.Equal(t, "{age: 25}\n", out)

	_, err = run(t, "show", path, "/carol")
	assert.ErrorIs(t, err, hpickle.ErrNotFound)
}

func TestFind(t *testing.T) {
	path := sampleFile(t)

	out, err := run(t, "find", path, "scores")
	require.NoError(t, err)
	assert.Equal(t, "[1.5 2]\n", out)

	out, err = run(t, "find", "-e", path, `^b.b$`)
	require.NoError(t, err)
	assert.Equal(t, "{age: 25}\n", out)

	_, err = run(t, "find", path, "nobody")
	assert.ErrorIs(t, err, hpickle.ErrNotFound)
}

func TestQuery(t *testing.T) {
	out, err := run(t, "query", sampleFile(t), `kind == "dataset" && dtype == "float32"`)
	require.NoError(t, err)
	assert.Contains(t, out, "float32")

	_, err = run(t, "query", sampleFile(t), `kind ==`)
	var exprErr *hpickle.ExprError
	assert.ErrorAs(t, err, &exprErr)
}

func TestCopyThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("HPICKLE_REDIS_ADDR", mr.Addr())

	src := sampleFile(t)
	out, err := run(t, "copy", src, "redis:people")
	require.NoError(t, err)
	assert.Contains(t, out, "copied")
	assert.True(t, mr.Exists("people"))

	dst := filepath.Join(t.TempDir(), "restored.hpk")
	_, err = run(t, "copy", "redis:people", dst)
	require.NoError(t, err)

	out, err = run(t, "show", dst, "/bob")
	require.NoError(t, err)
	assert.Equal(t, "{age: 25}\n", out)
}

func TestStats(t *testing.T) {
	out, err := run(t, "--stats", "show", sampleFile(t))
	require.NoError(t, err)
	assert.Contains(t, out, "hpickle_load_total")
}

func TestMissingContainer(t *testing.T) {
	_, err := run(t, "ls", filepath.Join(t.TempDir(), "missing.hpk"))
	assert.ErrorIs(t, err, hpickle.ErrNotFound)
}
