// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for savecloud. It supports a three-layer
// override chain (defaults -> config file -> environment) with a small set
// of CLI flag overrides applied last.
package config

// Config is the top-level configuration structure parsed from a TOML file.
// Most keys are flat; the s3 section and the watch list are the only tables.
type Config struct {
	// ClientID and ClientSecret identify the OAuth application. When both
	// are empty the cloud backup feature is considered not configured and
	// every remote operation fails fast.
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`

	// CallbackPort is the fixed localhost port the authorization flow
	// listens on. It must match the redirect URI registered with the
	// provider, so it is a config value rather than an ephemeral port.
	CallbackPort int `toml:"callback_port"`

	// Provider selects the storage backend: "drive" or "s3".
	Provider string `toml:"provider"`

	// FolderName is the remote folder all backup artifacts live under.
	FolderName string `toml:"folder_name"`

	// StagingDir is the local scratch root for capture and restore staging.
	// Empty means the platform cache directory.
	StagingDir string `toml:"staging_dir"`

	// LudusaviBinary is the save-capture tool executable. Empty means
	// "ludusavi" resolved via PATH.
	LudusaviBinary string `toml:"ludusavi_binary"`

	// NotifyURL is an optional websocket endpoint that receives
	// fire-and-forget completion events. Empty disables notifications.
	NotifyURL string `toml:"notify_url"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	S3 S3Config `toml:"s3"`

	// Watch lists save directories to back up automatically when their
	// contents change.
	Watch []WatchTarget `toml:"watch"`
}

// S3Config holds the S3-compatible backend settings. Only consulted when
// provider is "s3". Endpoint is for S3-compatible servers (MinIO, Garage);
// empty means AWS.
type S3Config struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	ForcePathStyle  bool   `toml:"force_path_style"`
}

// WatchTarget is one auto-backup entry: a game identity plus the local
// directory whose changes trigger a backup.
type WatchTarget struct {
	Shop       string `toml:"shop"`
	ObjectID   string `toml:"object_id"`
	Path       string `toml:"path"`
	WinePrefix string `toml:"wine_prefix"`
	Debounce   string `toml:"debounce"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Empty string means "not specified".
type CLIOverrides struct {
	ConfigPath string // --config flag
	LogLevel   string // --log-level flag
}
