// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

const (
	// DefaultClientSecretsFile holds the OAuth client registration.
	DefaultClientSecretsFile = "credentials.json"
	// DefaultTokenFile caches the user token between runs.
	DefaultTokenFile = "token.json"
)

// CredentialProvider hands out authorized HTTP clients.
type CredentialProvider interface {
	Client(ctx context.Context) (*http.Client, error)
}

// ConsentFunc shows authURL to the user and returns the authorization code
// they got back.
type ConsentFunc func(ctx context.Context, authURL string) (string, error)

// FileCredentials keeps the user token in a local file. A token is
// obtained, in order, by loading it, refreshing it, or asking the user.
type FileCredentials struct {
	// ClientSecretsFile is the OAuth client registration downloaded from
	// the Google Cloud console. Ignored when Config is set.
	ClientSecretsFile string

	// TokenFile is read and rewritten on every refresh or consent.
	TokenFile string

	// Consent runs the interactive flow. Nil disables it.
	Consent ConsentFunc

	// Config overrides the registration read from ClientSecretsFile.
	Config *oauth2.Config
}

func (c *FileCredentials) config() (*oauth2.Config, error) {
	if c.Config != nil {
		return c.Config, nil
	}

	name := c.ClientSecretsFile
	if name == "" {
		name = DefaultClientSecretsFile
	}

	b, err := os.ReadFile(name)
	if err != nil {
		return nil, &Error{Kind: KindAuth, Message: "reading client secrets", Err: err}
	}

	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, &Error{Kind: KindAuth, Message: "parsing client secrets", Err: err}
	}

	return cfg, nil
}

func (c *FileCredentials) tokenFile() string {
	if c.TokenFile == "" {
		return DefaultTokenFile
	}

	return c.TokenFile
}

// Token returns a valid token, persisting it when it changed.
func (c *FileCredentials) Token(ctx context.Context) (*oauth2.Token, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}

	tok, err := c.load()
	if err == nil && tok.Valid() {
		return tok, nil
	}

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️  ignoring unreadable token file %s: %s", c.tokenFile(), err)
	}

	if tok != nil && tok.RefreshToken != "" {
		fresh, rerr := cfg.TokenSource(ctx, tok).Token()
		if rerr == nil {
			if err := c.save(fresh); err != nil {
				log.Printf("⚠️  using refreshed token without persisting it: %s", err)
			}

			return fresh, nil
		}

		log.Printf("⚠️  token refresh failed, falling back to consent: %s", rerr)
	}

	fresh, err := c.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return fresh, nil
}

// Acquire runs the interactive consent flow and persists the new token.
func (c *FileCredentials) Acquire(ctx context.Context) (*oauth2.Token, error) {
	if c.Consent == nil {
		return nil, &Error{Kind: KindAuth, Message: "no valid token and interactive consent is disabled"}
	}

	cfg, err := c.config()
	if err != nil {
		return nil, err
	}

	state, err := randomState()
	if err != nil {
		return nil, &Error{Kind: KindAuth, Message: "generating state", Err: err}
	}

	code, err := c.Consent(ctx, cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
	if err != nil {
		return nil, &Error{Kind: KindAuth, Message: "interactive consent", Err: err}
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, &Error{Kind: KindAuth, Message: "exchanging authorization code", Err: err}
	}

	return tok, c.save(tok)
}

// Client implements CredentialProvider.
func (c *FileCredentials) Client(ctx context.Context) (*http.Client, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}

	tok, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	return cfg.Client(ctx, tok), nil
}

func (c *FileCredentials) load() (*oauth2.Token, error) {
	b, err := os.ReadFile(c.tokenFile())
	if err != nil {
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", c.tokenFile(), err)
	}

	return &tok, nil
}

func (c *FileCredentials) save(tok *oauth2.Token) error {
	b, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if err := os.WriteFile(c.tokenFile(), b, 0o600); err != nil {
		return &Error{Kind: KindAuth, Message: "saving token", Err: err}
	}

	return nil
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
