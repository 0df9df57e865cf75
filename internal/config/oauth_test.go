package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const desktopClient = `{
  "installed": {
    "client_id": "id.apps.googleusercontent.com",
    "project_id": "fleet-ops",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "auth_provider_x509_cert_url": "https://www.googleapis.com/oauth2/v1/certs",
    "client_secret": "secret",
    "redirect_uris": ["http://localhost"]
  }
}`

func writeOAuthClient(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadOAuthClientFromPath(t *testing.T) {
	path := writeOAuthClient(t, t.TempDir(), "oauthClient.json", desktopClient)

	cfg, err := LoadOAuthClientFromPath(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Web)
	assert.Equal(t, "fleet-ops", cfg.Credentials().ProjectID)
	assert.Same(t, cfg.Installed, cfg.Credentials())
}

func TestLoadOAuthClientFromPath_WebClient(t *testing.T) {
	content := `{"web": {
    "client_id": "id",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "client_secret": "secret",
    "redirect_uris": ["https://fleet.example.com/cb", "http://127.0.0.1:3000/oauth/callback"]
  }}`
	path := writeOAuthClient(t, t.TempDir(), "oauthClient.json", content)

	cfg, err := LoadOAuthClientFromPath(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Installed)
	assert.Equal(t, "id", cfg.Credentials().ClientID)
}

func TestLoadOAuthClientFromPath_Rejected(t *testing.T) {
	creds := `"client_id": "id", "auth_uri": "https://a.example.com", "token_uri": "https://t.example.com", "client_secret": "s"`

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "not json", content: `installed: {}`, wantErr: "invalid character"},
		{name: "no section", content: `{}`, wantErr: "no installed or web client section"},
		{
			name:    "both sections",
			content: `{"installed": {` + creds + `, "redirect_uris": ["http://localhost"]}, "web": {` + creds + `, "redirect_uris": ["http://localhost"]}}`,
			wantErr: "both installed and web client sections are set",
		},
		{name: "missing secret", content: `{"installed": {"client_id": "id"}}`, wantErr: "validation failed"},
		{
			name:    "no loopback redirect",
			content: `{"web": {` + creds + `, "redirect_uris": ["https://fleet.example.com/cb"]}}`,
			wantErr: "no loopback redirect uri",
		},
		{
			name:    "https localhost is not the callback",
			content: `{"installed": {` + creds + `, "redirect_uris": ["https://localhost"]}}`,
			wantErr: "no loopback redirect uri",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeOAuthClient(t, t.TempDir(), "oauthClient.json", tt.content)

			_, err := LoadOAuthClientFromPath(path)

			var oErr *OAuthClientError
			require.ErrorAs(t, err, &oErr)
			assert.Equal(t, path, oErr.Path)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOAuthClientPath(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(OAuthClientPathEnv, "")
	t.Chdir(work)

	_, err := OAuthClientPath("staging")
	assert.ErrorIs(t, err, ErrOAuthClientNotFound)

	homePath := writeOAuthClient(t, filepath.Join(home, ".fleet-ops"), "oauthClient.staging.json", desktopClient)
	path, err := OAuthClientPath("staging")
	require.NoError(t, err)
	assert.Equal(t, homePath, path)

	// The working directory wins over the home directory
	writeOAuthClient(t, work, "oauthClient.staging.json", desktopClient)
	path, err = OAuthClientPath("staging")
	require.NoError(t, err)
	assert.Equal(t, "oauthClient.staging.json", path)

	_, err = OAuthClientPath("../staging")
	assert.ErrorContains(t, err, "invalid environment name")
}

func TestOAuthClientPath_EnvOverride(t *testing.T) {
	explicit := writeOAuthClient(t, t.TempDir(), "client.json", desktopClient)
	t.Setenv(OAuthClientPathEnv, explicit)

	path, err := OAuthClientPath("staging")
	require.NoError(t, err)
	assert.Equal(t, explicit, path)

	cfg, err := LoadOAuthClientWithEnv("staging")
	require.NoError(t, err)
	assert.Equal(t, "fleet-ops", cfg.Credentials().ProjectID)

	t.Setenv(OAuthClientPathEnv, filepath.Join(t.TempDir(), "missing.json"))
	_, err = OAuthClientPath("")
	assert.ErrorIs(t, err, ErrOAuthClientNotFound)
}
