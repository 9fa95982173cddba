package config

// Config is the environment-driven configuration surface of the shopctl
// CLI. SDK components themselves are configured through constructor
// options; this only covers what the process reads at startup.
type Config interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetSessionFile() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
