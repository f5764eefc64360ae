package config

import (
	"errors"
	"fmt"
	"time"
)

// Validation range constants.
const (
	minPort     = 1024
	maxPort     = 65535
	minDebounce = 500 * time.Millisecond
)

// Valid provider names.
const (
	ProviderDrive = "drive"
	ProviderS3    = "s3"
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateProvider(cfg)...)
	errs = append(errs, validateCallbackPort(cfg.CallbackPort)...)
	errs = append(errs, validateLogLevel(cfg.LogLevel)...)
	errs = append(errs, validateLogFormat(cfg.LogFormat)...)
	errs = append(errs, validateWatch(cfg.Watch)...)

	if cfg.FolderName == "" {
		errs = append(errs, errors.New("folder_name: must not be empty"))
	}

	return errors.Join(errs...)
}

func validateProvider(cfg *Config) []error {
	switch cfg.Provider {
	case ProviderDrive:
		return nil
	case ProviderS3:
		return validateS3(&cfg.S3)
	default:
		return []error{fmt.Errorf("provider: must be %q or %q, got %q",
			ProviderDrive, ProviderS3, cfg.Provider)}
	}
}

func validateS3(s *S3Config) []error {
	var errs []error

	if s.Bucket == "" {
		errs = append(errs, errors.New("s3.bucket: required when provider is \"s3\""))
	}

	if s.Region == "" && s.Endpoint == "" {
		errs = append(errs, errors.New("s3: either region or endpoint must be set"))
	}

	return errs
}

func validateCallbackPort(port int) []error {
	if port < minPort || port > maxPort {
		return []error{fmt.Errorf("callback_port: must be between %d and %d, got %d",
			minPort, maxPort, port)}
	}

	return nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}

func validateWatch(targets []WatchTarget) []error {
	var errs []error

	for i := range targets {
		t := &targets[i]

		if t.Shop == "" {
			errs = append(errs, fmt.Errorf("watch[%d].shop: must not be empty", i))
		}

		if t.ObjectID == "" {
			errs = append(errs, fmt.Errorf("watch[%d].object_id: must not be empty", i))
		}

		if t.Path == "" {
			errs = append(errs, fmt.Errorf("watch[%d].path: must not be empty", i))
		}

		if t.Debounce != "" {
			errs = append(errs, validateDebounce(i, t.Debounce)...)
		}
	}

	return errs
}

func validateDebounce(i int, value string) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("watch[%d].debounce: invalid duration %q: %w", i, value, err)}
	}

	if d < minDebounce {
		return []error{fmt.Errorf("watch[%d].debounce: must be >= %s, got %s", i, minDebounce, d)}
	}

	return nil
}
