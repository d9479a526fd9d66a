package identity

import "os"

// Proxy-related environment variables honored by common transfer tools.
// Proxy routes are passed per call in this codebase; the environment must
// stay clean so stale configuration from another process generation cannot
// leak into an attempt.
var proxyEnvVars = []string{
	"ALL_PROXY", "all_proxy",
	"HTTP_PROXY", "http_proxy",
	"HTTPS_PROXY", "https_proxy",
}

// ResetProxyEnv clears process-wide proxy configuration. The orchestrator
// calls it before and after every attempt.
func ResetProxyEnv() {
	for _, key := range proxyEnvVars {
		os.Unsetenv(key)
	}
}
