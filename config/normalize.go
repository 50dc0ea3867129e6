package config

import (
	"log/slog"
	"strconv"
	"strings"
)

// Normalize maps raw environment style input onto a Config. It never fails: unrecognized
// or absent enum-like values fall back to their documented default and emit one warning
// to logger. An empty value is treated as absent.
func Normalize(raw map[string]string, logger *slog.Logger) *Config {
	if logger == nil {
		logger = slog.Default()
	}
	return &Config{
		OrganizationURL:     raw[EnvOrganizationURL],
		AuthMethod:          NormalizeAuthMethod(raw[EnvAuthMethod], logger),
		PersonalAccessToken: raw[EnvPersonalAccessToken],
		DefaultProject:      raw[EnvDefaultProject],
		APIVersion:          raw[EnvAPIVersion],
		Transport:           NormalizeTransport(raw[EnvTransport], logger),
		HTTPPort:            NormalizeHTTPPort(raw[EnvHTTPPort], logger),
		AllowedOrigins:      splitList(raw[EnvAllowedOrigins]),
		Identity: Identity{
			TenantID:     raw[EnvTenantID],
			ClientID:     raw[EnvClientID],
			ClientSecret: raw[EnvClientSecret],
		},
		LogLevel: raw[EnvLogLevel],
	}
}

// NormalizeAuthMethod matches value case-insensitively against the known auth methods.
func NormalizeAuthMethod(value string, logger *slog.Logger) AuthMethod {
	if method, ok := match(value, authMethods); ok {
		return method
	}
	logger.Warn("unrecognized auth method, using default", "value", value, "default", string(DefaultAuthMethod))
	return DefaultAuthMethod
}

// NormalizeTransport matches value case-insensitively against the known transports.
func NormalizeTransport(value string, logger *slog.Logger) Transport {
	if transport, ok := match(value, transports); ok {
		return transport
	}
	logger.Warn("unrecognized transport protocol, using default", "value", value, "default", string(DefaultTransport))
	return DefaultTransport
}

// NormalizeHTTPPort parses value as an integer. Range is not validated; binding an
// invalid port fails at listener startup.
func NormalizeHTTPPort(value string, logger *slog.Logger) int {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logger.Warn("unrecognized port, using default", "value", value, "default", DefaultHTTPPort)
		return DefaultHTTPPort
	}
	return port
}

func match[T ~string](value string, candidates []T) (T, bool) {
	if value == "" {
		return "", false
	}
	folded := strings.ToLower(value)
	for _, candidate := range candidates {
		if folded == strings.ToLower(string(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

func splitList(value string) []string {
	var ret []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			ret = append(ret, item)
		}
	}
	return ret
}
