// Package devops exposes a small set of Azure DevOps REST operations as MCP tools.
//
// A Client issues authenticated GET requests against the organization URL. The Credential
// is chosen by the configured auth method: a personal access token, a token obtained from
// the Azure CLI, or a service principal token from the Microsoft identity platform.
package devops
