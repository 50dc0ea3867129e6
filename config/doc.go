// Package config turns loosely specified environment input into the validated runtime
// configuration of the gateway.
//
// Input comes from an optional dotenv file and the process environment:
//
//	AZURE_DEVOPS_ORG_URL=https://dev.azure.com/acme
//	AZURE_DEVOPS_AUTH_METHOD=PAT        # pat | azure-identity | azure-cli, any case
//	TRANSPORT=http                      # stdio | http, any case
//	HTTP_PORT=8000
//
// Normalization never fails; unrecognized values fall back to defaults with a warning.
package config
