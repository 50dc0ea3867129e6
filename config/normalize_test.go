package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buffer, &slog.HandlerOptions{Level: slog.LevelDebug})), buffer
}

func diagnostics(buffer *bytes.Buffer) []string {
	var ret []string
	for _, line := range strings.Split(strings.TrimSpace(buffer.String()), "\n") {
		if line != "" {
			ret = append(ret, line)
		}
	}
	return ret
}

func TestNormalizeAuthMethod(t *testing.T) {
	var testCases = []struct {
		description string
		input       string
		expect      AuthMethod
		warnings    int
	}{
		{description: "upper case pat", input: "PAT", expect: AuthMethodPAT},
		{description: "lower case pat", input: "pat", expect: AuthMethodPAT},
		{description: "mixed case pat", input: "Pat", expect: AuthMethodPAT},
		{description: "azure identity", input: "Azure-Identity", expect: AuthMethodAzureIdentity},
		{description: "azure cli", input: "AZURE-CLI", expect: AuthMethodAzureCLI},
		{description: "unknown", input: "kerberos", expect: DefaultAuthMethod, warnings: 1},
		{description: "partial match", input: "azure", expect: DefaultAuthMethod, warnings: 1},
		{description: "padded", input: " pat", expect: DefaultAuthMethod, warnings: 1},
		{description: "absent", input: "", expect: DefaultAuthMethod, warnings: 1},
	}
	for _, testCase := range testCases {
		logger, buffer := newTestLogger()
		actual := NormalizeAuthMethod(testCase.input, logger)
		assert.Equal(t, testCase.expect, actual, testCase.description)
		warnings := diagnostics(buffer)
		assert.Len(t, warnings, testCase.warnings, testCase.description)
		if testCase.warnings > 0 {
			assert.Contains(t, warnings[0], "default=azure-identity", testCase.description)
		}
	}
}

func TestNormalizeTransport(t *testing.T) {
	var testCases = []struct {
		description string
		input       string
		expect      Transport
		warnings    int
	}{
		{description: "http", input: "http", expect: TransportHTTP},
		{description: "HTTP", input: "HTTP", expect: TransportHTTP},
		{description: "Stdio", input: "Stdio", expect: TransportStdio},
		{description: "sse", input: "sse", expect: TransportStdio, warnings: 1},
		{description: "absent", input: "", expect: TransportStdio, warnings: 1},
	}
	for _, testCase := range testCases {
		logger, buffer := newTestLogger()
		assert.Equal(t, testCase.expect, NormalizeTransport(testCase.input, logger), testCase.description)
		assert.Len(t, diagnostics(buffer), testCase.warnings, testCase.description)
	}
}

func TestNormalizeHTTPPort(t *testing.T) {
	var testCases = []struct {
		description string
		input       string
		expect      int
		warnings    int
	}{
		{description: "valid", input: "9000", expect: 9000},
		{description: "whitespace", input: " 8080 ", expect: 8080},
		{description: "zero passes through", input: "0", expect: 0},
		{description: "negative passes through", input: "-1", expect: -1},
		{description: "out of range passes through", input: "70000", expect: 70000},
		{description: "not a number", input: "eighty", expect: DefaultHTTPPort, warnings: 1},
		{description: "fraction", input: "80.5", expect: DefaultHTTPPort, warnings: 1},
		{description: "absent", input: "", expect: DefaultHTTPPort, warnings: 1},
	}
	for _, testCase := range testCases {
		logger, buffer := newTestLogger()
		assert.Equal(t, testCase.expect, NormalizeHTTPPort(testCase.input, logger), testCase.description)
		assert.Len(t, diagnostics(buffer), testCase.warnings, testCase.description)
	}
}

func TestNormalize(t *testing.T) {
	logger, buffer := newTestLogger()
	cfg := Normalize(map[string]string{
		EnvOrganizationURL:     "https://dev.azure.com/acme",
		EnvAuthMethod:          "PAT",
		EnvPersonalAccessToken: "secret",
		EnvDefaultProject:      "Platform",
		EnvAPIVersion:          "7.1",
		EnvTransport:           "HTTP",
		EnvHTTPPort:            "8123",
		EnvAllowedOrigins:      "http://localhost:3000, ,https://example.com",
	}, logger)
	assert.Empty(t, diagnostics(buffer))
	assert.Equal(t, &Config{
		OrganizationURL:     "https://dev.azure.com/acme",
		AuthMethod:          AuthMethodPAT,
		PersonalAccessToken: "secret",
		DefaultProject:      "Platform",
		APIVersion:          "7.1",
		Transport:           TransportHTTP,
		HTTPPort:            8123,
		AllowedOrigins:      []string{"http://localhost:3000", "https://example.com"},
	}, cfg)
}

func TestNormalize_Empty(t *testing.T) {
	logger, buffer := newTestLogger()
	cfg := Normalize(nil, logger)
	assert.Equal(t, "", cfg.OrganizationURL)
	assert.Equal(t, DefaultAuthMethod, cfg.AuthMethod)
	assert.Equal(t, DefaultTransport, cfg.Transport)
	assert.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	assert.Len(t, diagnostics(buffer), 3)
}

func TestNormalize_KeysAreCaseSensitive(t *testing.T) {
	logger, _ := newTestLogger()
	cfg := Normalize(map[string]string{"transport": "http", "azure_devops_org_url": "x"}, logger)
	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, "", cfg.OrganizationURL)
}

func TestConfig_LogSummary(t *testing.T) {
	logger, buffer := newTestLogger()
	cfg := &Config{AuthMethod: AuthMethodPAT, PersonalAccessToken: "topsecret", Transport: TransportStdio, HTTPPort: 8000}
	cfg.LogSummary(logger)
	output := buffer.String()
	assert.NotContains(t, output, "topsecret")
	assert.Contains(t, output, "SET (hidden)")
	assert.Contains(t, output, "not used")

	buffer.Reset()
	infoLogger := slog.New(slog.NewTextHandler(buffer, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg.LogSummary(infoLogger)
	assert.Contains(t, buffer.String(), "level=INFO")
	assert.Contains(t, buffer.String(), EnvTransport+"=stdio")
}

func TestParseEnv(t *testing.T) {
	values := ParseEnv([]byte(`
# comment
AZURE_DEVOPS_ORG_URL=https://dev.azure.com/acme
export TRANSPORT="http"
HTTP_PORT='9001'
BROKEN
EMPTY=
`))
	assert.Equal(t, map[string]string{
		EnvOrganizationURL: "https://dev.azure.com/acme",
		EnvTransport:       "http",
		EnvHTTPPort:        "9001",
		"EMPTY":            "",
	}, values)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TRANSPORT=http\nHTTP_PORT=9001\nAZURE_DEVOPS_AUTH_METHOD=azure-cli\n"), 0o600))
	environment := map[string]string{EnvHTTPPort: "9100", EnvTransport: ""}
	lookup := func(key string) (string, bool) {
		value, ok := environment[key]
		return value, ok
	}
	logger, buffer := newTestLogger()
	cfg := Load(context.Background(), envFile, lookup, logger)
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, AuthMethodAzureCLI, cfg.AuthMethod)
	assert.Empty(t, diagnostics(buffer))
}

func TestLoad_MissingFile(t *testing.T) {
	logger, _ := newTestLogger()
	cfg := Load(context.Background(), filepath.Join(t.TempDir(), "missing.env"), func(string) (string, bool) { return "", false }, logger)
	assert.Equal(t, DefaultTransport, cfg.Transport)
	assert.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
}

func TestLoad_SecretFiles(t *testing.T) {
	dir := t.TempDir()
	patFile := filepath.Join(dir, "pat")
	require.NoError(t, os.WriteFile(patFile, []byte("from-file\n"), 0o600))
	secretFile := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(secretFile, []byte("ignored"), 0o600))

	environment := map[string]string{
		EnvPersonalAccessTokenFile: patFile,
		EnvClientSecret:            "direct",
		EnvClientSecretFile:        secretFile,
	}
	lookup := func(key string) (string, bool) {
		value, ok := environment[key]
		return value, ok
	}
	logger, buffer := newTestLogger()
	cfg := Load(context.Background(), "", lookup, logger)
	assert.Equal(t, "from-file", cfg.PersonalAccessToken)
	assert.Equal(t, "direct", cfg.Identity.ClientSecret)
	assert.NotContains(t, buffer.String(), "secret file")

	environment = map[string]string{EnvPersonalAccessTokenFile: filepath.Join(dir, "missing")}
	logger, buffer = newTestLogger()
	cfg = Load(context.Background(), "", lookup, logger)
	assert.Equal(t, "", cfg.PersonalAccessToken)
	assert.Contains(t, buffer.String(), "failed to read secret file")
}
