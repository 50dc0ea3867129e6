package server

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	AllowOriginHeader       = "Access-Control-Allow-Origin"
	AllowHeadersHeader      = "Access-Control-Allow-Headers"
	AllowMethodsHeader      = "Access-Control-Allow-Methods"
	AllControlRequestHeader = "Access-Control-Request-Method"
	AllowCredentialsHeader  = "Access-Control-Allow-Credentials"
	ExposeHeadersHeader     = "Access-Control-Expose-Headers"
	MaxAgeHeader            = "Access-Control-Max-Age"
	Separator               = ", "
)

// Cors configures browser access to the HTTP transport.
type Cors struct {
	AllowCredentials *bool
	AllowHeaders     []string
	AllowMethods     []string
	AllowOrigins     []string
	ExposeHeaders    []string
	MaxAge           *int64
}

// NewCors returns a Cors allowing origins to use the streamable HTTP endpoint.
func NewCors(origins []string) *Cors {
	maxAge := int64(600)
	return &Cors{
		AllowHeaders:  []string{"Content-Type", "Accept", "Authorization", "Mcp-Session-Id", HeaderProtocolVersion, "Last-Event-ID"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowOrigins:  origins,
		ExposeHeaders: []string{"Mcp-Session-Id", HeaderProtocolVersion},
		MaxAge:        &maxAge,
	}
}

// Middleware sets CORS headers and answers preflight requests.
func (c *Cors) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.setHeaders(w, r)
		if r.Method == http.MethodOptions && r.Header.Get(AllControlRequestHeader) != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Cors) setHeaders(writer http.ResponseWriter, request *http.Request) {
	if c == nil {
		return
	}
	origin := request.Header.Get("Origin")
	if origin == "" {
		return
	}
	if !isOriginAllowed(origin, c.AllowOrigins) {
		return
	}
	writer.Header().Set(AllowOriginHeader, origin)
	writer.Header().Add("Vary", "Origin")
	if len(c.AllowMethods) > 0 {
		writer.Header().Set(AllowMethodsHeader, strings.Join(c.AllowMethods, Separator))
	}
	if len(c.AllowHeaders) > 0 {
		writer.Header().Set(AllowHeadersHeader, strings.Join(c.AllowHeaders, Separator))
	}
	if c.AllowCredentials != nil {
		writer.Header().Set(AllowCredentialsHeader, strconv.FormatBool(*c.AllowCredentials))
	}
	if c.MaxAge != nil {
		writer.Header().Set(MaxAgeHeader, strconv.FormatInt(*c.MaxAge, 10))
	}
	if len(c.ExposeHeaders) > 0 {
		writer.Header().Set(ExposeHeadersHeader, strings.Join(c.ExposeHeaders, Separator))
	}
}
