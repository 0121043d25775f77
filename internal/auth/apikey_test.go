// SPDX-License-Identifier: MIT

package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/info", nil)
	assert.Empty(t, ExtractKey(r))

	r.Header.Set(HeaderAPIKey, "k1")
	assert.Equal(t, "k1", ExtractKey(r))

	r = httptest.NewRequest("POST", "/api/info", nil)
	r.Header.Set("Authorization", "Bearer k2")
	assert.Equal(t, "k2", ExtractKey(r))

	r = httptest.NewRequest("POST", "/api/info", nil)
	r.Header.Set("Authorization", "Basic dXNlcg==")
	assert.Empty(t, ExtractKey(r))
}

func TestExtractKey_HeaderWinsOverBearer(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/info", nil)
	r.Header.Set(HeaderAPIKey, "k1")
	r.Header.Set("Authorization", "Bearer k2")
	assert.Equal(t, "k1", ExtractKey(r))
}

func TestAuthorizeKey(t *testing.T) {
	assert.True(t, AuthorizeKey("secret", "secret"))
	assert.False(t, AuthorizeKey("secret", "other"))
	assert.False(t, AuthorizeKey("", "secret"))
	assert.False(t, AuthorizeKey("secret", ""), "an unset server key authorises nothing")
	assert.False(t, AuthorizeKey("", ""))
}

func TestAuthorizeRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/info", nil)
	r.Header.Set(HeaderAPIKey, "secret")
	assert.True(t, AuthorizeRequest(r, "secret"))
	assert.False(t, AuthorizeRequest(r, "different"))
}
