// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Accumulates(t *testing.T) {
	v := New()
	v.Port("port", 0)
	v.Range("burst", 5, 1, 3)
	v.NotEmpty("workflow", "  ")
	v.OneOf("exporter", "zipkin", []string{"grpc", "http"})
	v.Positive("rps", 1)
	v.Custom("addr", "x", func(interface{}) error { return errors.New("bad addr") })

	require.False(t, v.IsValid())
	err := v.Err()
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"port", "burst", "workflow", "exporter", "addr"}, verr.Fields())
	assert.Contains(t, err.Error(), "validation failed for burst")
}

func TestValidator_NoErrors(t *testing.T) {
	v := New()
	v.Port("port", 8080)
	v.Range("ttl", 0, 0, 10)
	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err())
}

func TestValidator_ListenAddr(t *testing.T) {
	for addr, ok := range map[string]bool{
		":8080":          true,
		"127.0.0.1:9090": true,
		"[::1]:443":      true,
		"8080":           false,
		"host:http":      false,
		":70000":         false,
	} {
		v := New()
		v.ListenAddr("listenAddr", addr)
		assert.Equal(t, ok, v.IsValid(), addr)
	}
}

func TestValidator_Directory(t *testing.T) {
	dir := t.TempDir()

	v := New()
	created := filepath.Join(dir, "data")
	v.Directory("dataDir", created, false)
	require.True(t, v.IsValid())
	info, err := os.Stat(created)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	v.Directory("file", file, true)
	v.Directory("missing", filepath.Join(dir, "missing"), true)
	v.Directory("escape", "../etc", false)

	var verr ValidationError
	require.ErrorAs(t, v.Err(), &verr)
	assert.Equal(t, []string{"file", "missing", "escape"}, verr.Fields())
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarn, lvl)

	_, err = ParseLogLevel("loud")
	assert.Equal(t, ErrInvalidLogLevel, err)
}
