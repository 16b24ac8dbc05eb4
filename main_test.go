package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("EB_TOKEN", "jwt-from-env")
	v := viper.New()
	v.Set("config_file", filepath.Join(t.TempDir(), "missing.json"))

	config, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "jwt-from-env", config.Token)
	assert.Equal(t, "https://api.enablebanking.com", config.BaseURL)
	assert.Equal(t, "http://localhost:8080/auth_redirect", config.RedirectURL)
	assert.Equal(t, "Nordea", config.Bank.Name)
	assert.Equal(t, "FI", config.Bank.Country)
	assert.False(t, config.Bank.PickFirst)
	assert.Equal(t, "personal", config.PSU.Type)
	assert.Equal(t, "10.10.10.10", config.PSU.IPAddress)
	assert.Equal(t, defaultUserAgent, config.PSU.UserAgent)
	assert.Equal(t, time.Duration(0), config.HTTPTimeout)
	assert.Len(t, config.State, 36)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"application_id": "app-1",
		"key_path": "app-1.pem",
		"redirect_url": "https://example.com/cb",
		"state": "fixed-state",
		"bank": {"name": "OP", "country": "FI"},
		"http_timeout": "30s"
	}`), 0o600))
	t.Setenv("EB_BANK_COUNTRY", "SE")

	v := viper.New()
	v.Set("config_file", path)
	config, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "app-1", config.ApplicationID)
	assert.Equal(t, "app-1.pem", config.KeyPath)
	assert.Equal(t, "https://example.com/cb", config.RedirectURL)
	assert.Equal(t, "fixed-state", config.State)
	assert.Equal(t, "OP", config.Bank.Name)
	assert.Equal(t, "SE", config.Bank.Country)
	assert.Equal(t, 30*time.Second, config.HTTPTimeout)
}

func TestLoadConfigRequiresCredentials(t *testing.T) {
	v := viper.New()
	v.Set("config_file", filepath.Join(t.TempDir(), "missing.json"))
	_, err := loadConfig(v)
	assert.Error(t, err)
}

func TestLoadConfigBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	v := viper.New()
	v.Set("config_file", path)
	_, err := loadConfig(v)
	assert.Error(t, err)
}

func TestRootCmdLogsUnexpectedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth" {
			w.Write([]byte("not json"))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	t.Setenv("EB_TOKEN", "jwt-1")
	t.Setenv("EB_BASE_URL", srv.URL)

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader("http://localhost:8080/auth_redirect?code=C\n"))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"-f", filepath.Join(t.TempDir(), "missing.json")})

	err := cmd.Execute()
	assert.Nil(t, err)
	assert.Contains(t, stderr.String(), "Unexpected error happened: start authorization: decode response (status 200)")
	assert.True(t, strings.HasSuffix(stdout.String(), "Start authorization data: not json\n"), "stdout: %q", stdout.String())
	assert.NotContains(t, stdout.String(), "Please go to")
}
