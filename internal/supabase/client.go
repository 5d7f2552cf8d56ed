// Package supabase talks to the hosted Supabase Auth (GoTrue) API for
// email/password sign-in, sign-up and sign-out.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	auth "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"
)

// ErrNotLoggedIn is returned when no usable session exists.
var ErrNotLoggedIn = errors.New("not logged in")

type User struct {
	ID               string     `json:"id" yaml:"id"`
	Email            string     `json:"email" yaml:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty" yaml:"email_confirmed_at,omitempty"`
}

type Session struct {
	AccessToken  string `json:"access_token" yaml:"access_token"`
	TokenType    string `json:"token_type" yaml:"token_type"`
	ExpiresIn    int    `json:"expires_in" yaml:"expires_in"`
	ExpiresAt    int64  `json:"expires_at" yaml:"expires_at"`
	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
	User         User   `json:"user" yaml:"user"`
}

// APIError is an error reported by the auth provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

type Client struct {
	auth    auth.Client
	timeout time.Duration
}

// NewClient builds a client for the project at baseURL, e.g.
// https://<ref>.supabase.co.
func NewClient(baseURL, anonKey string) *Client {
	return &Client{
		auth:    auth.New("", anonKey).WithCustomAuthURL(strings.TrimRight(baseURL, "/") + "/auth/v1"),
		timeout: 30 * time.Second,
	}
}

// with returns the auth client bound to ctx and, when set, accessToken.
func (c *Client) with(ctx context.Context, accessToken string) auth.Client {
	client := c.auth.WithClient(http.Client{
		Timeout:   c.timeout,
		Transport: contextTransport{ctx: ctx, base: http.DefaultTransport},
	})
	if accessToken != "" {
		client = client.WithToken(accessToken)
	}
	return client
}

// SignInWithPassword exchanges email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.with(ctx, "").Token(types.TokenRequest{
		GrantType: "password",
		Email:     email,
		Password:  password,
	})
	if err != nil {
		return nil, providerError(err)
	}
	return &Session{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		ExpiresAt:    resp.ExpiresAt,
		RefreshToken: resp.RefreshToken,
		User:         fromUser(resp.User),
	}, nil
}

// SignUp registers a new account. The provider usually sends a
// confirmation email before the account can sign in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.with(ctx, "").Signup(types.SignupRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, providerError(err)
	}
	// with auto-confirm on the provider answers with a session instead of a user
	u := resp.User
	if u.ID == uuid.Nil {
		u = resp.Session.User
	}
	user := fromUser(u)
	return &user, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.with(ctx, accessToken).Logout(); err != nil {
		return providerError(err)
	}
	return nil
}

// GetUser returns the user that owns accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrNotLoggedIn
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.with(ctx, accessToken).GetUser()
	if err != nil {
		return nil, providerError(err)
	}
	user := fromUser(resp.User)
	return &user, nil
}

func fromUser(u types.User) User {
	user := User{Email: u.Email, EmailConfirmedAt: u.EmailConfirmedAt}
	if u.ID != uuid.Nil {
		user.ID = u.ID.String()
	}
	return user
}

// contextTransport attaches ctx to every request, since the auth client
// methods take none.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

var statusPattern = regexp.MustCompile(`^response status code (\d+): (?s)(.*)$`)

// providerError turns the auth client's "response status code N: body"
// errors into an APIError carrying the provider's message.
func providerError(err error) error {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	code, _ := strconv.Atoi(m[1])
	return &APIError{StatusCode: code, Message: errorMessage(http.StatusText(code), []byte(m[2]))}
}

// errorMessage picks the human readable field out of a GoTrue error body.
func errorMessage(status string, body []byte) string {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		for _, m := range []string{e.Msg, e.ErrorDescription, e.Message, e.Error} {
			if m != "" {
				return m
			}
		}
	}
	return status
}
