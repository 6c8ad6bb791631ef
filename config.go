package embed

import "github.com/goliatone/go-embed/internal/runtimeconfig"

var (
	ErrEmptyIDPolicyInvalid    = runtimeconfig.ErrEmptyIDPolicyInvalid
	ErrUnfurlEndpointRequired  = runtimeconfig.ErrUnfurlEndpointRequired
	ErrUnfurlTimeoutInvalid    = runtimeconfig.ErrUnfurlTimeoutInvalid
	ErrUnfurlRateInvalid       = runtimeconfig.ErrUnfurlRateInvalid
	ErrLoggingProviderRequired = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown  = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid     = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid    = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config         = runtimeconfig.Config
	ServicesConfig = runtimeconfig.ServicesConfig
	ServiceConfig  = runtimeconfig.ServiceConfig
	UnfurlConfig   = runtimeconfig.UnfurlConfig
	BreakerConfig  = runtimeconfig.BreakerConfig
	LoggingConfig  = runtimeconfig.LoggingConfig
	MetricsConfig  = runtimeconfig.MetricsConfig
	Features       = runtimeconfig.Features
)

// DefaultConfig returns the module defaults.
func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.LoadFile(path)
}
