package config

import (
	"log/slog"
	"strconv"
)

// AuthMethod identifies how the upstream Azure DevOps API is authenticated.
type AuthMethod string

const (
	AuthMethodPAT           AuthMethod = "pat"
	AuthMethodAzureIdentity AuthMethod = "azure-identity"
	AuthMethodAzureCLI      AuthMethod = "azure-cli"
)

// DefaultAuthMethod is used when the configured method is absent or unrecognized.
const DefaultAuthMethod = AuthMethodAzureIdentity

var authMethods = []AuthMethod{AuthMethodPAT, AuthMethodAzureIdentity, AuthMethodAzureCLI}

// Transport identifies the MCP transport binding.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// DefaultTransport is used when the configured transport is absent or unrecognized.
const DefaultTransport = TransportStdio

var transports = []Transport{TransportStdio, TransportHTTP}

// DefaultHTTPPort is used when the configured port is absent or not an integer.
const DefaultHTTPPort = 8000

// Environment keys, matched case-sensitively.
const (
	EnvOrganizationURL     = "AZURE_DEVOPS_ORG_URL"
	EnvAuthMethod          = "AZURE_DEVOPS_AUTH_METHOD"
	EnvPersonalAccessToken = "AZURE_DEVOPS_PAT"
	EnvDefaultProject      = "AZURE_DEVOPS_DEFAULT_PROJECT"
	EnvAPIVersion          = "AZURE_DEVOPS_API_VERSION"
	EnvTransport           = "TRANSPORT"
	EnvHTTPPort            = "HTTP_PORT"
	EnvAllowedOrigins      = "HTTP_ALLOWED_ORIGINS"
	EnvTenantID            = "AZURE_TENANT_ID"
	EnvClientID            = "AZURE_CLIENT_ID"
	EnvClientSecret        = "AZURE_CLIENT_SECRET"
	EnvLogLevel            = "LOG_LEVEL"

	EnvPersonalAccessTokenFile = "AZURE_DEVOPS_PAT_FILE"
	EnvClientSecretFile        = "AZURE_CLIENT_SECRET_FILE"
)

// Keys lists every environment key the normalizer reads.
var Keys = []string{
	EnvOrganizationURL, EnvAuthMethod, EnvPersonalAccessToken, EnvDefaultProject, EnvAPIVersion,
	EnvTransport, EnvHTTPPort, EnvAllowedOrigins, EnvTenantID, EnvClientID, EnvClientSecret, EnvLogLevel,
	EnvPersonalAccessTokenFile, EnvClientSecretFile,
}

// secretFiles maps a secret key to the key naming a file (any afs URL) that holds it.
var secretFiles = map[string]string{
	EnvPersonalAccessToken: EnvPersonalAccessTokenFile,
	EnvClientSecret:        EnvClientSecretFile,
}

// Identity holds the service principal used by the azure-identity method.
type Identity struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Config is the validated runtime configuration. It is built once at startup and never mutated.
type Config struct {
	// OrganizationURL is empty when unset, e.g. https://dev.azure.com/org.
	OrganizationURL     string
	AuthMethod          AuthMethod
	PersonalAccessToken string
	DefaultProject      string
	APIVersion          string
	Transport           Transport
	// HTTPPort is ignored by the stdio transport.
	HTTPPort       int
	AllowedOrigins []string
	Identity       Identity
	LogLevel       string
}

// LogSummary writes the configuration to logger at info level with secrets hidden.
func (c *Config) LogSummary(logger *slog.Logger) {
	port := "not used (use TRANSPORT=http)"
	if c.Transport == TransportHTTP {
		port = strconv.Itoa(c.HTTPPort)
	}
	logger.Info("configuration",
		EnvOrganizationURL, orNotSet(c.OrganizationURL),
		EnvAuthMethod, string(c.AuthMethod),
		EnvPersonalAccessToken, hidden(c.PersonalAccessToken),
		EnvDefaultProject, orNotSet(c.DefaultProject),
		EnvAPIVersion, orNotSet(c.APIVersion),
		EnvTransport, string(c.Transport),
		EnvHTTPPort, port,
		EnvClientSecret, hidden(c.Identity.ClientSecret),
	)
}

func orNotSet(value string) string {
	if value == "" {
		return "NOT SET"
	}
	return value
}

func hidden(value string) string {
	if value == "" {
		return "NOT SET"
	}
	return "SET (hidden)"
}
