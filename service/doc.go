// Package service wires configuration, the Azure DevOps tools and the MCP server, and runs
// the transport selected by TRANSPORT: stdio (default) or streamable HTTP on HTTP_PORT.
package service
