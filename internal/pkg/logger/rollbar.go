package logger

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rs/zerolog"
)

// RollbarConfig holds the settings for error forwarding
type RollbarConfig struct {
	Token       string
	Environment string
	CodeVersion string
	ServerHost  string
}

// RollbarHook forwards error-level events to Rollbar
type RollbarHook struct{}

// NewRollbarHook configures the rollbar client and returns a hook for Configure.
// It returns nil when no token is set.
func NewRollbarHook(cfg RollbarConfig) zerolog.Hook {
	if cfg.Token == "" {
		return nil
	}
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetCodeVersion(cfg.CodeVersion)
	rollbar.SetServerHost(cfg.ServerHost)
	return RollbarHook{}
}

// Run implements zerolog.Hook
func (RollbarHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	switch level {
	case zerolog.ErrorLevel:
		rollbar.Error(msg)
	case zerolog.FatalLevel, zerolog.PanicLevel:
		rollbar.Critical(msg)
	}
}

// FlushRollbar waits for queued Rollbar items to be sent
func FlushRollbar() {
	rollbar.Wait()
}
