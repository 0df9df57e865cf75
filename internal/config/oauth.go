package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// OAuthClientPathEnv names an explicit OAuth client file, bypassing the search
const OAuthClientPathEnv = "FLEET_OPS_OAUTH_CLIENT"

// oauthClientHomeDir holds the client file next to the stored tokens
const oauthClientHomeDir = ".fleet-ops"

// ErrOAuthClientNotFound is returned when no OAuth client file exists at any search location
var ErrOAuthClientNotFound = errors.New("oauth client file not found")

// OAuthClientConfig is a Google OAuth client file as downloaded from the cloud console.
// Desktop clients carry an "installed" section and web clients a "web" section.
type OAuthClientConfig struct {
	Installed *OAuthCredentials `json:"installed,omitempty"`
	Web       *OAuthCredentials `json:"web,omitempty"`
}

// OAuthCredentials is one client section of an OAuth client file
type OAuthCredentials struct {
	ClientID                string   `json:"client_id" validate:"required"`
	ProjectID               string   `json:"project_id,omitempty"`
	AuthURI                 string   `json:"auth_uri" validate:"required,url"`
	TokenURI                string   `json:"token_uri" validate:"required,url"`
	AuthProviderX509CertURL string   `json:"auth_provider_x509_cert_url,omitempty" validate:"omitempty,url"`
	ClientSecret            string   `json:"client_secret" validate:"required"`
	RedirectURIs            []string `json:"redirect_uris" validate:"required,min=1,dive,uri"`
}

// OAuthClientError reports an OAuth client file that cannot drive the sign-in flow
type OAuthClientError struct {
	Path string
	Err  error
}

func (e *OAuthClientError) Error() string {
	return fmt.Sprintf("oauth client %s: %v", e.Path, e.Err)
}

func (e *OAuthClientError) Unwrap() error {
	return e.Err
}

// Credentials returns whichever client section the file carries
func (c *OAuthClientConfig) Credentials() *OAuthCredentials {
	if c.Installed != nil {
		return c.Installed
	}
	return c.Web
}

// LoadOAuthClientWithEnv finds and loads oauthClient.json, or oauthClient.<env>.json when env is set
func LoadOAuthClientWithEnv(env string) (*OAuthClientConfig, error) {
	path, err := OAuthClientPath(env)
	if err != nil {
		return nil, err
	}
	return LoadOAuthClientFromPath(path)
}

// LoadOAuthClientFromPath loads and checks the OAuth client file at path
func LoadOAuthClientFromPath(path string) (*OAuthClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth client file: %w", err)
	}

	var cfg OAuthClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &OAuthClientError{Path: path, Err: err}
	}
	if err := cfg.check(); err != nil {
		return nil, &OAuthClientError{Path: path, Err: err}
	}

	return &cfg, nil
}

func (c *OAuthClientConfig) check() error {
	switch {
	case c.Installed == nil && c.Web == nil:
		return errors.New("no installed or web client section")
	case c.Installed != nil && c.Web != nil:
		return errors.New("both installed and web client sections are set")
	}

	creds := c.Credentials()
	if err := validate.Struct(creds); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	for _, uri := range creds.RedirectURIs {
		if isLoopback(uri) {
			return nil
		}
	}
	return fmt.Errorf("no loopback redirect uri in %v, the sign-in callback listens on localhost", creds.RedirectURIs)
}

func isLoopback(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// OAuthClientPath resolves the client file: $FLEET_OPS_OAUTH_CLIENT when set,
// otherwise the working directory and then ~/.fleet-ops
func OAuthClientPath(env string) (string, error) {
	if path := os.Getenv(OAuthClientPathEnv); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%s=%s: %w", OAuthClientPathEnv, path, ErrOAuthClientNotFound)
		}
		return path, nil
	}

	name := "oauthClient.json"
	if env != "" {
		if strings.ContainsAny(env, `/\`) {
			return "", fmt.Errorf("invalid environment name %q", env)
		}
		name = "oauthClient." + env + ".json"
	}

	candidates := []string{name}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, oauthClientHomeDir, name))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%s (searched %s): %w", name, strings.Join(candidates, ", "), ErrOAuthClientNotFound)
}
