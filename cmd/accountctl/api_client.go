package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// APIClient handles HTTP communication with the account service. Session
// cookies are kept in a jar, so a signin carries over to later calls.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClient creates a new API client. token, when set, is sent as a
// Bearer header on every request.
func NewAPIClient(baseURL, token string) *APIClient {
	jar, _ := cookiejar.New(nil)
	return &APIClient{
		baseURL: baseURL + "/api/v1/users",
		token:   token,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type User struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar *Avatar `json:"avatar,omitempty"`
}

type Avatar struct {
	URL string `json:"url"`
	Key string `json:"key,omitempty"`
}

type Upload struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Token   string          `json:"token"`
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (c *APIClient) Signup(name, email, password string) (*User, error) {
	var user User
	_, err := c.do(http.MethodPost, "/signup", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Signin returns the user and the session token.
func (c *APIClient) Signin(email, password string) (*User, string, error) {
	var user User
	env, err := c.do(http.MethodPost, "/signin", map[string]string{
		"email":    email,
		"password": password,
	}, &user)
	if err != nil {
		return nil, "", err
	}
	return &user, env.Token, nil
}

func (c *APIClient) Signout() error {
	_, err := c.do(http.MethodPost, "/signout", nil, nil)
	return err
}

func (c *APIClient) Profile() (*User, error) {
	var user User
	if _, err := c.do(http.MethodGet, "/profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile sends only the non-nil fields.
func (c *APIClient) UpdateProfile(name, email, avatar *string) (*User, error) {
	body := map[string]string{}
	if name != nil {
		body["name"] = *name
	}
	if email != nil {
		body["email"] = *email
	}
	if avatar != nil {
		body["avatar"] = *avatar
	}

	var user User
	if _, err := c.do(http.MethodPatch, "/profile", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *APIClient) ChangePassword(current, next string) error {
	_, err := c.do(http.MethodPatch, "/password", map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	}, nil)
	return err
}

func (c *APIClient) ForgotPassword(email string) (string, error) {
	env, err := c.do(http.MethodPost, "/forgot-password", map[string]string{"email": email}, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *APIClient) ResetPassword(token, password string) (*User, string, error) {
	var user User
	env, err := c.do(http.MethodPost, "/reset-password/"+token, map[string]string{
		"newPassword": password,
	}, &user)
	if err != nil {
		return nil, "", err
	}
	return &user, env.Token, nil
}

func (c *APIClient) DeleteAccount() error {
	_, err := c.do(http.MethodDelete, "/account", nil, nil)
	return err
}

func (c *APIClient) AvatarUploadURL() (*Upload, error) {
	var upload Upload
	if _, err := c.do(http.MethodPost, "/avatar/upload-url", nil, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}

// UploadAvatar PUTs the image to a presigned URL.
func (c *APIClient) UploadAvatar(upload *Upload, contentType string, data []byte) error {
	req, err := http.NewRequest(http.MethodPut, upload.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// HTTP helpers

func (c *APIClient) do(method, path string, body interface{}, data interface{}) (*envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode/100 != 2 || !env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return nil, fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return &env, nil
}
