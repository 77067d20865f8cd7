package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
)

// Common error types.
var (
	// Provider errors.
	ErrUnknownProvider     = fmt.Errorf("unknown provider")
	ErrGenomeNotFound      = fmt.Errorf("genome not found")
	ErrUnsupportedDivision = fmt.Errorf("unsupported division")
	ErrInvalidRelease      = fmt.Errorf("invalid release")

	// Transfer errors.
	ErrDownloadFailed   = fmt.Errorf("download failed")
	ErrTransportTimeout = fmt.Errorf("transport timeout")
	ErrInvalidPath      = fmt.Errorf("invalid path")
	ErrArchive          = fmt.Errorf("failed to unpack archive")

	// Post-processing errors.
	ErrPostProcessingFailed = fmt.Errorf("post-processing failed")
	ErrAnnotationNotFound   = fmt.Errorf("annotation not found")
	ErrToolFailed           = fmt.Errorf("external tool failed")
	ErrToolMissing          = fmt.Errorf("external tool not found")
	ErrInvalidRegex         = fmt.Errorf("invalid sequence filter")

	// Catalog cache errors.
	ErrCacheOpen    = fmt.Errorf("failed to open catalog cache")
	ErrCacheEncode  = fmt.Errorf("failed to encode catalog cache entry")
	ErrCacheDecode  = fmt.Errorf("failed to decode catalog cache entry")
	ErrCacheInvalid = fmt.Errorf("invalid catalog cache configuration")

	// Config errors.
	ErrEmptyConfigPath     = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath   = fmt.Errorf("invalid config file path")
	ErrConfigParse         = fmt.Errorf("failed to parse config")
	ErrConfigValidation    = fmt.Errorf("invalid configuration")
	ErrConfigEncode        = fmt.Errorf("failed to encode config")
	ErrConfigDirectory     = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate    = fmt.Errorf("failed to create config file")
	ErrConfigFileRename    = fmt.Errorf("failed to replace config file")
	ErrConfigFileExists    = fmt.Errorf("config file already exists")
	ErrConfigUnknownKey    = fmt.Errorf("unknown configuration key")
	ErrHTTPTimeoutNegative = fmt.Errorf("http_timeout cannot be negative")
	ErrCacheTTLNegative    = fmt.Errorf("cache_ttl cannot be negative")
	ErrInvalidLogLevel     = fmt.Errorf("invalid log level")
	ErrThreadsInvalid      = fmt.Errorf("threads must be at least 1")

	// Plugin errors.
	ErrPluginUnknown = fmt.Errorf("unknown plugin")
	ErrPluginScript  = fmt.Errorf("plugin script error")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// IsRetryable reports whether err is a transport timeout the caller may try again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrTransportTimeout) || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
