package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/dom/account-service/internal/api/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies the failure envelope with expected status and
// message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	AssertJSONResponse(t, resp, &body)

	assert.False(t, body.Success, "error response must not report success")
	assert.Equal(t, expectedMessage, body.Message, "error message mismatch")
}

// SessionCookie returns the session cookie set by resp, if any
func SessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

// AssertSessionCookieSet verifies resp sets a usable session cookie
func AssertSessionCookieSet(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()

	cookie := SessionCookie(resp)
	require.NotNil(t, cookie, "session cookie not set")
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly, "session cookie must be http-only")
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Positive(t, cookie.MaxAge)
	return cookie
}

// AssertSessionCookieCleared verifies resp expires the session cookie
func AssertSessionCookieCleared(t *testing.T, resp *http.Response) {
	t.Helper()

	cookie := SessionCookie(resp)
	require.NotNil(t, cookie, "session cookie not cleared")
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly, "session cookie must be http-only")
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Negative(t, cookie.MaxAge)
}

// AssertNoSecrets fails if a response body exposes credential fields
func AssertNoSecrets(t *testing.T, body []byte) {
	t.Helper()

	for _, field := range []string{"password", "passwordHash", "password_hash", "resetPasswordToken", "resetPasswordExpire"} {
		assert.NotContains(t, string(body), `"`+field+`"`, "response exposes %s", field)
	}
}
