package config

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
)

// DefaultEnvFile is read when present, mirroring the usual dotenv convention.
const DefaultEnvFile = ".env"

// LookupFunc resolves one environment key.
type LookupFunc func(key string) (string, bool)

// Load collects raw values from envFile (any afs URL, optional) and lookup, then normalizes
// them. Values from lookup take precedence over the file. A missing or unreadable file is
// reported to logger and otherwise ignored. A secret left empty is read from the location
// named by its _FILE key.
func Load(ctx context.Context, envFile string, lookup LookupFunc, logger *slog.Logger) *Config {
	if logger == nil {
		logger = slog.Default()
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	raw := map[string]string{}
	if envFile != "" {
		fileValues, err := readEnvFile(ctx, envFile)
		if err != nil {
			logger.Warn("failed to read env file", "location", envFile, "error", err)
		}
		for k, v := range fileValues {
			raw[k] = v
		}
	}
	for _, key := range Keys {
		if value, ok := lookup(key); ok && value != "" {
			raw[key] = value
		}
	}
	resolveSecretFiles(ctx, raw, logger)
	return Normalize(raw, logger)
}

func resolveSecretFiles(ctx context.Context, raw map[string]string, logger *slog.Logger) {
	fs := afs.New()
	for key, fileKey := range secretFiles {
		location := raw[fileKey]
		if raw[key] != "" || location == "" {
			continue
		}
		data, err := fs.DownloadWithURL(ctx, normalizeLocation(location))
		if err != nil {
			logger.Warn("failed to read secret file", "key", fileKey, "location", location, "error", err)
			continue
		}
		raw[key] = strings.TrimSpace(string(data))
	}
}

func readEnvFile(ctx context.Context, location string) (map[string]string, error) {
	location = normalizeLocation(location)
	fs := afs.New()
	ok, err := fs.Exists(ctx, location)
	if err != nil || !ok {
		return nil, err
	}
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, err
	}
	return ParseEnv(data), nil
}

func normalizeLocation(location string) string {
	if !strings.Contains(location, "://") {
		if abs, err := filepath.Abs(location); err == nil {
			return abs
		}
	}
	return location
}

// ParseEnv parses KEY=VALUE lines. Blank lines and lines starting with # are skipped, an
// optional "export " prefix is dropped and matching surrounding quotes are removed.
func ParseEnv(data []byte) map[string]string {
	ret := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if len(value) >= 2 {
			if quote := value[0]; (quote == '"' || quote == '\'') && value[len(value)-1] == quote {
				value = value[1 : len(value)-1]
			}
		}
		if key != "" {
			ret[key] = value
		}
	}
	return ret
}
