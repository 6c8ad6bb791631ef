package logging

import (
	"context"
	"maps"
	"strings"

	"github.com/goliatone/go-embed/pkg/interfaces"
)

const (
	rootModule      = "embed"
	providersModule = "embed.providers"
	resolverModule  = "embed.resolver"
	blockModule     = "embed.block"
	unfurlModule    = "embed.unfurl"
)

const (
	fieldBlockID  = "block_id"
	fieldProvider = "provider"
	fieldSource   = "source_url"
)

// ModuleLogger returns the logger registered for module, tagged with a
// "module" field. A nil provider yields a no-op logger.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}
	return WithFields(logger, map[string]any{"module": module})
}

// ProvidersLogger returns the logger used by the provider registry.
func ProvidersLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, providersModule)
}

// ResolverLogger returns the logger used by the embed resolver.
func ResolverLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, resolverModule)
}

// BlockLogger returns the logger used by block controllers.
func BlockLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, blockModule)
}

// UnfurlLogger returns the logger used by the unfurl client.
func UnfurlLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, unfurlModule)
}

// WithBlockContext tags logger with the block id, provider key and source URL.
// Empty values are skipped.
func WithBlockContext(logger interfaces.Logger, blockID, provider, source string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(blockID); trimmed != "" {
		fields[fieldBlockID] = trimmed
	}
	if trimmed := strings.TrimSpace(provider); trimmed != "" {
		fields[fieldProvider] = trimmed
	}
	if trimmed := strings.TrimSpace(source); trimmed != "" {
		fields[fieldSource] = trimmed
	}
	return WithFields(logger, fields)
}

// WithFields attaches fields when logger implements interfaces.FieldsLogger
// and returns logger unchanged otherwise.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	if fieldsLogger, ok := logger.(interfaces.FieldsLogger); ok {
		copied := make(map[string]any, len(fields))
		maps.Copy(copied, fields)
		return fieldsLogger.WithFields(copied)
	}
	return logger
}

// NoOp returns a logger that discards every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
