package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/dom/account-service/internal/domain"
	"github.com/dom/account-service/internal/repository"
	"github.com/google/uuid"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	name     string
	email    string
	password string
	avatar   domain.Avatar
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		name:     fmt.Sprintf("Test User %s", suffix),
		email:    fmt.Sprintf("user_%s@example.com", suffix),
		password: "testpassword123",
	}
}

// WithName sets the display name
func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

// WithEmail sets the email address
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// WithAvatar sets the stored avatar
func (b *UserBuilder) WithAvatar(avatar domain.Avatar) *UserBuilder {
	b.avatar = avatar
	return b
}

// Build stores the user through users and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, users repository.UserRepository) (*domain.User, string) {
	t.Helper()

	user, err := domain.NewUser(b.name, b.email, b.password)
	if err != nil {
		t.Fatalf("failed to build user: %v", err)
	}
	user.SetAvatar(b.avatar)

	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// SignupAndSignin registers the user through the API and signs in with
// client, whose cookie jar then holds the session. It returns the user id
// and the session token.
func (b *UserBuilder) SignupAndSignin(t *testing.T, ts *TestServer, client *http.Client) (uuid.UUID, string) {
	t.Helper()

	resp := postJSON(t, client, ts.APIURL("/signup"), map[string]string{
		"name":     b.name,
		"email":    b.email,
		"password": b.password,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected signup status code: %d", resp.StatusCode)
	}

	resp = postJSON(t, client, ts.APIURL("/signin"), map[string]string{
		"email":    b.email,
		"password": b.password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected signin status code: %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode signin response: %v", err)
	}

	userID, err := uuid.Parse(body.Data.ID)
	if err != nil {
		t.Fatalf("signin returned bad user id %q: %v", body.Data.ID, err)
	}
	return userID, body.Token
}

// Email returns the address the builder uses
func (b *UserBuilder) Email() string {
	return b.email
}

// Password returns the password the builder uses
func (b *UserBuilder) Password() string {
	return b.password
}

func postJSON(t *testing.T, client *http.Client, url string, v interface{}) *http.Response {
	t.Helper()

	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to encode request: %v", err)
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request to %s failed: %v", url, err)
	}
	return resp
}

// DoJSON sends v as a JSON body with the given method
func DoJSON(t *testing.T, client *http.Client, method, url string, v interface{}) *http.Response {
	t.Helper()

	var body bytes.Buffer
	if v != nil {
		if err := json.NewEncoder(&body).Encode(v); err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request to %s failed: %v", url, err)
	}
	return resp
}
