package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the service-wide logrus logger with JSON output.
func New(logLevel, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(parseLevel(logLevel))
	logger.SetFormatter(&logrus.JSONFormatter{})

	if environment == "development" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// WithRequest scopes a logger entry to one prediction request.
func WithRequest(logger *logrus.Logger, requestID, domain, entityID string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"domain":     domain,
		"entity_id":  entityID,
	})
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
