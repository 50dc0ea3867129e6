package service

import "github.com/viant/devops-mcp/config"

// Options are the command line options. Flags override the matching environment keys.
type Options struct {
	EnvFile   string `short:"e" long:"env-file" description:"dotenv file, any afs URL" default:".env"`
	Transport string `short:"T" long:"transport" description:"overrides TRANSPORT" choice:"stdio" choice:"http"`
	Port      string `short:"p" long:"port" description:"overrides HTTP_PORT"`
	LogLevel  string `short:"l" long:"log-level" description:"overrides LOG_LEVEL: debug, info, warn or error"`
	LogFormat string `long:"log-format" description:"diagnostic format" choice:"text" choice:"json" default:"text"`
	Version   bool   `short:"v" long:"version" description:"print version and exit"`
}

func (o *Options) overrides() map[string]string {
	ret := map[string]string{}
	if o.Transport != "" {
		ret[config.EnvTransport] = o.Transport
	}
	if o.Port != "" {
		ret[config.EnvHTTPPort] = o.Port
	}
	if o.LogLevel != "" {
		ret[config.EnvLogLevel] = o.LogLevel
	}
	return ret
}
