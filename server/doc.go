// Package server exposes an MCP tool implementer over stdio or streamable HTTP.
//
// Each session gets its own Handler which dispatches initialize, ping, tools/list,
// tools/call and logging/setLevel. Tool behavior is provided by an Implementer created per
// session:
//
//	srv, _ := server.New(server.WithNewImplementer(devops.New(cfg)))
//	_ = srv.Stdio(ctx).ListenAndServe()
//
// The HTTP handler serves a single endpoint (default /mcp) where sessions are created by an
// initialize POST and addressed by the Mcp-Session-Id header afterwards.
package server
