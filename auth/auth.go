// Package auth is a thin client for the Google Identity Toolkit REST
// API, which backs Firebase email/password authentication. It also
// owns the current session and fans session changes out to listeners.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

const (
	defaultBaseURL = "https://identitytoolkit.googleapis.com/v1"

	signUpEndpoint   = "accounts:signUp"
	signInEndpoint   = "accounts:signInWithPassword"
	contentTypeJSON  = "application/json"
	contentTypeField = "Content-Type"
)

// Identity is an authenticated Firebase identity.
type Identity struct {
	UID          string
	Email        string
	IDToken      string
	RefreshToken string
}

type credentialsRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type credentialsResponse struct {
	IDToken      string `json:"idToken"`
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

// Client talks to the Identity Toolkit API and tracks the session.
// The zero session (nil) means signed out.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	session   *Identity
	listeners []func(*Identity)
}

// NewClient creates a client using the given Firebase web API key.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
}

// OnSessionChange registers a listener invoked with the new identity
// (or nil on sign-out) after every session change. Listeners are
// retained for the lifetime of the client.
func (c *Client) OnSessionChange(fn func(*Identity)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Session returns the current identity, or nil when signed out.
func (c *Client) Session() *Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// CreateAccount registers a new email/password account and signs the
// client in as the new identity.
func (c *Client) CreateAccount(ctx context.Context, email, password string) (*Identity, error) {
	return c.credentialCall(ctx, signUpEndpoint, email, password)
}

// Authenticate signs in with an existing email/password account.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	return c.credentialCall(ctx, signInEndpoint, email, password)
}

// SignOut drops the local session. Identity Toolkit tokens are
// stateless, so there is nothing to revoke remotely.
func (c *Client) SignOut() {
	c.setSession(nil)
}

func (c *Client) credentialCall(ctx context.Context, endpoint, email, password string) (*Identity, error) {
	payload, err := json.Marshal(credentialsRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?key=%s", c.baseURL, endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Add(contentTypeField, contentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(body)
	}

	var cr credentialsResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, err
	}

	identity := &Identity{
		UID:          cr.LocalID,
		Email:        cr.Email,
		IDToken:      cr.IDToken,
		RefreshToken: cr.RefreshToken,
	}
	c.setSession(identity)
	return identity, nil
}

func (c *Client) setSession(identity *Identity) {
	c.mu.Lock()
	c.session = identity
	listeners := make([]func(*Identity), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(identity)
	}
}
