// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/lticast/internal/log"
)

func TestParseString(t *testing.T) {
	t.Setenv("TEST_STRING", "from-env")
	t.Setenv("TEST_STRING_EMPTY", "")
	t.Setenv("TEST_PASSWORD", "secret123")

	assert.Equal(t, "from-env", ParseString("TEST_STRING", "default"))
	assert.Equal(t, "default", ParseString("TEST_STRING_UNSET", "default"))
	assert.Equal(t, "default", ParseString("TEST_STRING_EMPTY", "default"))
	assert.Equal(t, "secret123", ParseString("TEST_PASSWORD", "default"))
}

func TestParseNumbers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_BAD", "forty-two")
	t.Setenv("TEST_INT64", "8589934592")
	t.Setenv("TEST_FLOAT", "0.5")
	t.Setenv("TEST_DURATION", "1m30s")
	t.Setenv("TEST_DURATION_BAD", "soon")

	assert.Equal(t, 42, ParseInt("TEST_INT", 1))
	assert.Equal(t, 1, ParseInt("TEST_INT_BAD", 1))
	assert.Equal(t, int64(8<<30), ParseInt64("TEST_INT64", 0))
	assert.InDelta(t, 0.5, ParseFloat("TEST_FLOAT", 1), 1e-9)
	assert.Equal(t, 90*time.Second, ParseDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, ParseDuration("TEST_DURATION_BAD", time.Second))
}

func TestParseBool(t *testing.T) {
	for value, want := range map[string]bool{
		"true": true, "TRUE": true, "1": true, "yes": true,
		"false": false, "0": false, "No": false,
	} {
		t.Setenv("TEST_BOOL", value)
		assert.Equal(t, want, ParseBool("TEST_BOOL", !want), value)
	}
	t.Setenv("TEST_BOOL", "maybe")
	assert.True(t, ParseBool("TEST_BOOL", true))
}

func TestIsSensitive(t *testing.T) {
	assert.True(t, isSensitive(EnvJWTSecret))
	assert.True(t, isSensitive(EnvRedisPassword))
	assert.False(t, isSensitive(EnvWorkflow))
}

func TestParseFallbacks_LogWarning(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { log.Configure(log.Config{}) })

	t.Setenv("TEST_INT_BAD", "x")
	t.Setenv("TEST_INT64_BAD", "x")
	t.Setenv("TEST_DURATION_BAD", "x")
	t.Setenv("TEST_BOOL_BAD", "x")
	t.Setenv("TEST_FLOAT_BAD", "x")

	assert.Equal(t, 7, ParseInt("TEST_INT_BAD", 7))
	assert.Equal(t, int64(7), ParseInt64("TEST_INT64_BAD", 7))
	assert.Equal(t, time.Minute, ParseDuration("TEST_DURATION_BAD", time.Minute))
	assert.True(t, ParseBool("TEST_BOOL_BAD", true))
	assert.InDelta(t, 0.25, ParseFloat("TEST_FLOAT_BAD", 0.25), 1e-9)

	out := buf.String()
	assert.Equal(t, 5, bytes.Count(buf.Bytes(), []byte(`"level":"warn"`)))
	assert.Contains(t, out, `"component":"config"`)
	assert.Contains(t, out, `"key":"TEST_FLOAT_BAD"`)
}
