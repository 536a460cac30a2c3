package config

import "time"

// Config is the environment-backed configuration surface of the console.
type Config interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetLoginEmail() string
	GetLoginPassword() string
	GetIdleTimeout() time.Duration
	GetArtifactPath() string
	GetDemoSecret() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
