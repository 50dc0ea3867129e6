// Package session implements streamable HTTP sessions for MCP.
//
// A Registry owns every live Session. The Router creates a session for an initialize POST
// without a session header and forwards later traffic carrying Mcp-Session-Id to the
// session Adapter. The Adapter implements transport.Transport for the protocol handler and
// serves POST, GET (server-sent events) and DELETE for its session. Closing an Adapter, for
// whatever reason, removes its session from the Registry exactly once.
package session
