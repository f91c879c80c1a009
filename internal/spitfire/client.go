// Package spitfire exports newly observed leads to the Spitfire dialer
// platform, at most once per lead global id.
package spitfire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"elecrm_backend/platform/config"
)

// Session carries the authenticated state returned by the Spitfire login.
type Session struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	UserID      string `json:"user_id"`
}

// Dialer is the narrow surface of the Spitfire REST API the export pipeline
// uses. Faked in tests.
type Dialer interface {
	Login(ctx context.Context) (Session, error)
	CreateLead(ctx context.Context, session Session, lead LeadSubmission) error
}

// Client implements Dialer against the real Spitfire REST API.
type Client struct {
	baseURL  string
	username string
	password string
	appType  string
	http     *http.Client
}

// NewClient creates a Spitfire REST client from configuration.
func NewClient(cfg config.SpitfireConfig) *Client {
	return &Client{
		baseURL:  cfg.GetSpitfireBaseURL(),
		username: cfg.GetSpitfireUsername(),
		password: cfg.GetSpitfirePassword(),
		appType:  cfg.GetSpitfireAppType(),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	AppType  string `json:"app_type"`
}

// Login authenticates and returns a session bearer token plus account and
// user identifiers.
func (c *Client) Login(ctx context.Context) (Session, error) {
	body, err := json.Marshal(loginRequest{
		Username: c.username,
		Password: c.password,
		AppType:  c.appType,
	})
	if err != nil {
		return Session{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Session{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Session{}, fmt.Errorf("spitfire login returned status %d", resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return Session{}, err
	}
	if session.AccessToken == "" {
		return Session{}, fmt.Errorf("spitfire login returned no access token")
	}
	return session, nil
}

// CreateLead submits a mapped lead to the Spitfire lead creation endpoint.
func (c *Client) CreateLead(ctx context.Context, session Session, lead LeadSubmission) error {
	body, err := json.Marshal(lead)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/leads", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("spitfire lead creation returned status %d", resp.StatusCode)
	}
	return nil
}

var _ Dialer = (*Client)(nil)
