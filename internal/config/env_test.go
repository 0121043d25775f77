// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	assert.Equal(t, "fallback", ParseString("VGRAB_TEST_UNSET", "fallback"))

	t.Setenv("VGRAB_TEST_STR", "value")
	assert.Equal(t, "value", ParseString("VGRAB_TEST_STR", "fallback"))

	t.Setenv("VGRAB_TEST_EMPTY", "")
	assert.Equal(t, "fallback", ParseString("VGRAB_TEST_EMPTY", "fallback"))
}

func TestParseInt(t *testing.T) {
	t.Setenv("VGRAB_TEST_INT", "7")
	assert.Equal(t, 7, ParseInt("VGRAB_TEST_INT", 3))

	t.Setenv("VGRAB_TEST_INT", "seven")
	assert.Equal(t, 3, ParseInt("VGRAB_TEST_INT", 3))
}

func TestParseBool(t *testing.T) {
	cases := map[string]bool{
		"true": true, "1": true, "YES": true,
		"false": false, "0": false, "No": false,
	}
	for in, want := range cases {
		t.Setenv("VGRAB_TEST_BOOL", in)
		assert.Equal(t, want, ParseBool("VGRAB_TEST_BOOL", !want), "input %q", in)
	}

	t.Setenv("VGRAB_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("VGRAB_TEST_BOOL", true))
}

func TestParseDuration(t *testing.T) {
	t.Setenv("VGRAB_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, ParseDuration("VGRAB_TEST_DUR", time.Minute))

	t.Setenv("VGRAB_TEST_DUR", "ninety")
	assert.Equal(t, time.Minute, ParseDuration("VGRAB_TEST_DUR", time.Minute))
}

func TestSensitiveKey(t *testing.T) {
	assert.True(t, sensitiveKey("VGRAB_API_KEY"))
	assert.True(t, sensitiveKey("VGRAB_COOKIES_BASE64"))
	assert.False(t, sensitiveKey("VGRAB_DOWNLOAD_DIR"))
	assert.False(t, sensitiveKey("VGRAB_LISTEN"))
}
