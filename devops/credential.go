package devops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viant/devops-mcp/config"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner/local"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ResourceID identifies Azure DevOps for Microsoft Entra token requests.
const ResourceID = "499b84ac-1321-427f-aa17-267ca6975798"

// Scope is the OAuth2 scope granting Azure DevOps access.
const Scope = ResourceID + "/.default"

const (
	cliTokenCommand = "az account get-access-token --resource " + ResourceID + " --query accessToken -o tsv"
	tokenSkew       = 2 * time.Minute
	cliTokenTTL     = 5 * time.Minute
)

// AuthorityURL returns the token endpoint of tenantID.
func AuthorityURL(tenantID string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/token"
}

// Credential authorizes outgoing Azure DevOps requests.
type Credential interface {
	Authorize(ctx context.Context, req *http.Request) error
}

// NewCredential returns the credential selected by cfg.AuthMethod.
func NewCredential(ctx context.Context, cfg *config.Config, log *slog.Logger) (Credential, error) {
	switch cfg.AuthMethod {
	case config.AuthMethodPAT:
		if cfg.PersonalAccessToken == "" {
			return nil, fmt.Errorf("%s is required for %s authentication", config.EnvPersonalAccessToken, cfg.AuthMethod)
		}
		return NewPATCredential(cfg.PersonalAccessToken), nil
	case config.AuthMethodAzureCLI:
		return NewCLICredential(ctx, log)
	case config.AuthMethodAzureIdentity:
		return NewIdentityCredential(ctx, cfg.Identity)
	}
	return nil, fmt.Errorf("unsupported auth method: %v", cfg.AuthMethod)
}

// PATCredential sends a personal access token as basic auth with an empty user name.
type PATCredential struct {
	token string
}

// Authorize implements Credential.
func (c *PATCredential) Authorize(_ context.Context, req *http.Request) error {
	req.SetBasicAuth("", c.token)
	return nil
}

// NewPATCredential creates a personal access token credential.
func NewPATCredential(token string) *PATCredential {
	return &PATCredential{token: token}
}

// RunFunc runs a shell command returning its output and exit code.
type RunFunc func(ctx context.Context, command string) (string, int, error)

// CLICredential obtains bearer tokens from the Azure CLI and caches them until shortly before
// the token exp claim.
type CLICredential struct {
	run    RunFunc
	log    *slog.Logger
	now    func() time.Time
	mux    sync.Mutex
	token  string
	expiry time.Time
}

// Authorize implements Credential.
func (c *CLICredential) Authorize(ctx context.Context, req *http.Request) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Token returns a cached or freshly issued access token.
func (c *CLICredential) Token(ctx context.Context) (string, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.token != "" && c.now().Before(c.expiry) {
		return c.token, nil
	}
	output, code, err := c.run(ctx, cliTokenCommand)
	if err != nil {
		return "", fmt.Errorf("failed to run azure cli: %w", err)
	}
	token := strings.TrimSpace(output)
	if code != 0 || token == "" {
		return "", fmt.Errorf("azure cli returned code %d: %s", code, token)
	}
	c.token = token
	c.expiry = c.now().Add(cliTokenTTL)
	if expiry, ok := tokenExpiry(token); ok {
		c.expiry = expiry.Add(-tokenSkew)
	}
	c.log.Debug("acquired azure cli token", "expires", c.expiry)
	return c.token, nil
}

// tokenExpiry reads the exp claim without verifying the signature.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// NewCLICredential creates a credential running az through a local gosh shell.
func NewCLICredential(ctx context.Context, log *slog.Logger) (*CLICredential, error) {
	service, err := gosh.New(ctx, local.New())
	if err != nil {
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}
	return NewCLICredentialWithRunner(func(ctx context.Context, command string) (string, int, error) {
		return service.Run(ctx, command)
	}, log), nil
}

// NewCLICredentialWithRunner creates a CLI credential using run.
func NewCLICredentialWithRunner(run RunFunc, log *slog.Logger) *CLICredential {
	if log == nil {
		log = slog.Default()
	}
	return &CLICredential{run: run, log: log, now: time.Now}
}

// IdentityCredential authenticates a service principal with the client credentials grant.
type IdentityCredential struct {
	source oauth2.TokenSource
}

// Authorize implements Credential.
func (c *IdentityCredential) Authorize(_ context.Context, req *http.Request) error {
	token, err := c.source.Token()
	if err != nil {
		return fmt.Errorf("failed to acquire identity token: %w", err)
	}
	token.SetAuthHeader(req)
	return nil
}

// NewIdentityCredential creates a service principal credential. Tokens are cached and
// refreshed by the oauth2 token source.
func NewIdentityCredential(ctx context.Context, identity config.Identity) (*IdentityCredential, error) {
	return newIdentityCredential(ctx, identity, AuthorityURL(identity.TenantID))
}

func newIdentityCredential(ctx context.Context, identity config.Identity, tokenURL string) (*IdentityCredential, error) {
	var missing []string
	if identity.TenantID == "" {
		missing = append(missing, config.EnvTenantID)
	}
	if identity.ClientID == "" {
		missing = append(missing, config.EnvClientID)
	}
	if identity.ClientSecret == "" {
		missing = append(missing, config.EnvClientSecret)
	}
	if len(missing) > 0 {
		return nil, errors.New("azure-identity authentication requires " + strings.Join(missing, ", "))
	}
	cfg := &clientcredentials.Config{
		ClientID:     identity.ClientID,
		ClientSecret: identity.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{Scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &IdentityCredential{source: cfg.TokenSource(ctx)}, nil
}
