package config

// Default values for configuration options. These are chosen so the tool
// works without a config file as soon as credentials are supplied.
const (
	defaultCallbackPort = 9876
	defaultProvider     = "drive"
	defaultFolderName   = "savecloud-backups"
	defaultLudusavi     = "ludusavi"
	defaultLogLevel     = "info"
	defaultLogFormat    = "auto"
	defaultDebounce     = "5s"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		CallbackPort:   defaultCallbackPort,
		Provider:       defaultProvider,
		FolderName:     defaultFolderName,
		LudusaviBinary: defaultLudusavi,
		LogLevel:       defaultLogLevel,
		LogFormat:      defaultLogFormat,
	}
}
