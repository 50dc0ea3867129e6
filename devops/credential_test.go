package devops

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/devops-mcp/config"
)

func signedToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": expiry.Unix(), "aud": ResourceID}).SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}

func TestNewCredential(t *testing.T) {
	var testCases = []struct {
		description string
		cfg         *config.Config
		expectErr   string
		expectType  interface{}
	}{
		{description: "pat", cfg: &config.Config{AuthMethod: config.AuthMethodPAT, PersonalAccessToken: "x"}, expectType: &PATCredential{}},
		{description: "pat missing token", cfg: &config.Config{AuthMethod: config.AuthMethodPAT}, expectErr: config.EnvPersonalAccessToken},
		{description: "identity", cfg: &config.Config{AuthMethod: config.AuthMethodAzureIdentity, Identity: config.Identity{TenantID: "t", ClientID: "c", ClientSecret: "s"}}, expectType: &IdentityCredential{}},
		{description: "identity missing secret", cfg: &config.Config{AuthMethod: config.AuthMethodAzureIdentity, Identity: config.Identity{TenantID: "t", ClientID: "c"}}, expectErr: config.EnvClientSecret},
		{description: "unsupported", cfg: &config.Config{AuthMethod: "kerberos"}, expectErr: "unsupported"},
	}
	for _, testCase := range testCases {
		credential, err := NewCredential(context.Background(), testCase.cfg, nil)
		if testCase.expectErr != "" {
			assert.ErrorContains(t, err, testCase.expectErr, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.IsType(t, testCase.expectType, credential, testCase.description)
	}
}

func TestCLICredential_CachesUntilExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issued := []string{signedToken(t, now.Add(time.Hour)), signedToken(t, now.Add(2*time.Hour))}
	calls := 0
	credential := NewCLICredentialWithRunner(func(_ context.Context, command string) (string, int, error) {
		assert.Contains(t, command, ResourceID)
		ret := issued[calls]
		calls++
		return ret + "\n", 0, nil
	}, nil)
	credential.now = func() time.Time { return now }

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, credential.Authorize(context.Background(), request))
	assert.Equal(t, "Bearer "+issued[0], request.Header.Get("Authorization"))

	token, err := credential.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, issued[0], token)
	assert.Equal(t, 1, calls)

	now = now.Add(59 * time.Minute)
	token, err = credential.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, issued[1], token)
	assert.Equal(t, 2, calls)
}

func TestCLICredential_Failures(t *testing.T) {
	var testCases = []struct {
		description string
		output      string
		code        int
		err         error
	}{
		{description: "run error", err: errors.New("exec: az: not found")},
		{description: "non zero exit", output: "Please run 'az login'", code: 1},
		{description: "empty output", output: "  "},
	}
	for _, testCase := range testCases {
		credential := NewCLICredentialWithRunner(func(context.Context, string) (string, int, error) {
			return testCase.output, testCase.code, testCase.err
		}, nil)
		_, err := credential.Token(context.Background())
		assert.Error(t, err, testCase.description)
	}
}

func TestCLICredential_OpaqueToken(t *testing.T) {
	credential := NewCLICredentialWithRunner(func(context.Context, string) (string, int, error) {
		return "opaque", 0, nil
	}, nil)
	token, err := credential.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "opaque", token)
	assert.WithinDuration(t, time.Now().Add(cliTokenTTL), credential.expiry, time.Minute)
}

func TestIdentityCredential(t *testing.T) {
	var requests atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "client", r.Form.Get("client_id"))
		assert.Equal(t, "secret", r.Form.Get("client_secret"))
		assert.Equal(t, Scope, r.Form.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"identity-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	credential, err := newIdentityCredential(context.Background(), config.Identity{TenantID: "tenant", ClientID: "client", ClientSecret: "secret"}, tokenServer.URL)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		require.NoError(t, credential.Authorize(context.Background(), request))
		assert.Equal(t, "Bearer identity-token", request.Header.Get("Authorization"))
	}
	assert.EqualValues(t, 1, requests.Load())
	assert.Equal(t, "https://login.microsoftonline.com/tenant/oauth2/v2.0/token", AuthorityURL("tenant"))
}
