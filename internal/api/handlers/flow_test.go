package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/dom/account-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAccountFlow runs the whole account lifecycle against PostgreSQL.
func TestAccountFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ts := testutil.NewTestServerWithDB(t)

	steps := []struct {
		name   string
		method string
		path   string
		body   map[string]string
		status int
	}{
		{"signup", http.MethodPost, "/signup", map[string]string{"name": "Flow", "email": "flow@example.com", "password": "password123"}, http.StatusCreated},
		{"duplicate signup", http.MethodPost, "/signup", map[string]string{"name": "Flow", "email": "FLOW@example.com", "password": "password123"}, http.StatusConflict},
		{"wrong password", http.MethodPost, "/signin", map[string]string{"email": "flow@example.com", "password": "wrong-password"}, http.StatusUnauthorized},
		{"signin", http.MethodPost, "/signin", map[string]string{"email": "flow@example.com", "password": "password123"}, http.StatusOK},
		{"profile", http.MethodGet, "/profile", nil, http.StatusOK},
		{"rename", http.MethodPatch, "/profile", map[string]string{"name": "Flow Renamed", "avatar": "https://img.example.com/flow.png"}, http.StatusOK},
		{"change password", http.MethodPatch, "/password", map[string]string{"currentPassword": "password123", "newPassword": "password456"}, http.StatusOK},
		{"forgot password", http.MethodPost, "/forgot-password", map[string]string{"email": "flow@example.com"}, http.StatusOK},
	}

	client := ts.NewClient(t)
	for _, step := range steps {
		var body interface{}
		if step.body != nil {
			body = step.body
		}
		resp := testutil.DoJSON(t, client, step.method, ts.APIURL(step.path), body)
		resp.Body.Close()
		require.Equal(t, step.status, resp.StatusCode, step.name)
	}

	msg, ok := ts.Mailer.LastTo("flow@example.com")
	require.True(t, ok)
	var link string
	for _, field := range strings.Fields(msg.Text) {
		if strings.HasPrefix(field, ts.APIURL("/reset-password/")) {
			link = field
		}
	}
	require.NotEmpty(t, link)

	resp := testutil.DoJSON(t, client, http.MethodPost, link, map[string]string{"newPassword": "password789"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = testutil.DoJSON(t, client, http.MethodPost, link, map[string]string{"newPassword": "password000"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = testutil.DoJSON(t, client, http.MethodDelete, ts.APIURL("/account"), nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = testutil.DoJSON(t, ts.NewClient(t), http.MethodPost, ts.APIURL("/signin"), map[string]string{
		"email":    "flow@example.com",
		"password": "password789",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ts.DB.Truncate(t)
}
