package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig       = "SAVECLOUD_CONFIG"
	EnvClientID     = "SAVECLOUD_CLIENT_ID"
	EnvClientSecret = "SAVECLOUD_CLIENT_SECRET"
	EnvStagingDir   = "SAVECLOUD_STAGING_DIR"
	EnvNotifyURL    = "SAVECLOUD_NOTIFY_URL"
	EnvLudusavi     = "SAVECLOUD_LUDUSAVI"
)

// EnvOverrides holds values derived from environment variables.
// Credentials in particular are commonly injected this way so they stay
// out of the config file.
type EnvOverrides struct {
	ConfigPath   string // SAVECLOUD_CONFIG: override config file path
	ClientID     string // SAVECLOUD_CLIENT_ID
	ClientSecret string // SAVECLOUD_CLIENT_SECRET
	StagingDir   string // SAVECLOUD_STAGING_DIR
	NotifyURL    string // SAVECLOUD_NOTIFY_URL
	Ludusavi     string // SAVECLOUD_LUDUSAVI: capture tool binary
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		StagingDir:   os.Getenv(EnvStagingDir),
		NotifyURL:    os.Getenv(EnvNotifyURL),
		Ludusavi:     os.Getenv(EnvLudusavi),
	}
}
