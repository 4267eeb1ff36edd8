// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("SONOX_T_STR", "office")
	t.Setenv("SONOX_T_INT", " 42 ")
	t.Setenv("SONOX_T_BAD_INT", "x")
	t.Setenv("SONOX_T_DUR", "250ms")
	t.Setenv("SONOX_T_DUR_MS", "1200")
	t.Setenv("SONOX_T_BOOL", "ON")
	t.Setenv("SONOX_T_FLOAT", "0.25")

	assert.Equal(t, "office", ParseString("SONOX_T_STR", "x"))
	assert.Equal(t, "x", ParseString("SONOX_T_UNSET", "x"))
	assert.Equal(t, 42, ParseInt("SONOX_T_INT", 1))
	assert.Equal(t, 1, ParseInt("SONOX_T_BAD_INT", 1))
	assert.Equal(t, 250*time.Millisecond, ParseDuration("SONOX_T_DUR", time.Second))
	assert.Equal(t, 1200*time.Millisecond, ParseDuration("SONOX_T_DUR_MS", time.Second))
	assert.True(t, ParseBool("SONOX_T_BOOL", false))
	assert.InDelta(t, 0.25, ParseFloat("SONOX_T_FLOAT", 1), 1e-9)
}
