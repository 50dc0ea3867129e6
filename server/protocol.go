package server

import (
	"net/http"

	"github.com/viant/mcp-protocol/schema"
)

// HeaderProtocolVersion carries the negotiated MCP protocol version on HTTP requests.
const HeaderProtocolVersion = "MCP-Protocol-Version"

// DefaultProtocolVersions lists accepted protocol versions, the first being preferred.
var DefaultProtocolVersions = []string{schema.LatestProtocolVersion, "2025-03-26", "2024-11-05"}

// protocolVersionMiddleware rejects requests declaring an unsupported MCP-Protocol-Version.
// An absent header is accepted. The response carries the request version when supported,
// otherwise the preferred one.
func protocolVersionMiddleware(supported []string) Middleware {
	allowed := make(map[string]bool, len(supported))
	for _, version := range supported {
		allowed[version] = true
	}
	preferred := schema.LatestProtocolVersion
	if len(supported) > 0 {
		preferred = supported[0]
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			version := r.Header.Get(HeaderProtocolVersion)
			if version != "" && !allowed[version] {
				http.Error(w, "invalid MCP-Protocol-Version", http.StatusBadRequest)
				return
			}
			if version == "" {
				version = preferred
			}
			w.Header().Set(HeaderProtocolVersion, version)
			next.ServeHTTP(w, r)
		})
	}
}
