package config

import (
	"os"
	"time"
)

const (
	appNameVar      = "APP_NAME"
	apiBaseURLVar   = "API_URL"
	loginEmailVar   = "LOGIN_EMAIL"
	loginPassVar    = "LOGIN_PASSWORD"
	idleTimeoutVar  = "IDLE_TIMEOUT"
	artifactPathVar = "CREDENTIAL_FILE"
	demoSecretVar   = "DEMO_SECRET"
)

type EnvVars struct{}

var _ Config = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Market Console")
}

// GetAPIBaseURL returns the base URL of the remote catalog service.
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://localhost:8080")
}

func (EnvVars) GetLoginEmail() string {
	return GetEnv(loginEmailVar, "")
}

func (EnvVars) GetLoginPassword() string {
	return GetEnv(loginPassVar, "")
}

// GetIdleTimeout parses the idle window after which the session store
// forces a logout; malformed values fall back to the default.
func (EnvVars) GetIdleTimeout() time.Duration {
	raw := GetEnv(idleTimeoutVar, "15m")
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// GetArtifactPath is where the credential token is persisted between runs.
func (EnvVars) GetArtifactPath() string {
	return GetEnv(artifactPathVar, ".market-console-credential")
}

// GetDemoSecret signs tokens of the embedded demo server.
func (EnvVars) GetDemoSecret() string {
	return GetEnv(demoSecretVar, "demo-secret")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
