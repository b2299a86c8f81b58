package config

type Config struct {
	Port           int    `mapstructure:"port"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
	DataDir        string `mapstructure:"data_dir"`
	ChatBackend    string `mapstructure:"chat_backend"`
	NATSURL        string `mapstructure:"nats_url"`
	RedisURL       string `mapstructure:"redis_url"`
	SecretCode     string `mapstructure:"secret_code"`
	AdminCode      string `mapstructure:"admin_code"`
	RemovalDelayMS int    `mapstructure:"removal_delay_ms"`
}

// Chat backend kinds. The local backend keeps rooms on disk for a single
// server process; the remote backend shares them through Redis and NATS.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)
