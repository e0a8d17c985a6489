package shared

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/meio/pkg/domain/entities"
)

// LoggerOrDiscard returns the logger, or one that drops every entry when nil
func LoggerOrDiscard(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger != nil {
		return logger
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return discard
}

// KeyFields returns structured log fields for a (node, sku, period) key
func KeyFields(stage string, key entities.DemandKey) logrus.Fields {
	return logrus.Fields{
		"stage":  stage,
		"node":   key.Node,
		"sku":    key.SKU,
		"period": key.Period.Format("2006-01-02"),
	}
}

// LogSkip records a numeric guard skip at debug level
func LogSkip(logger logrus.FieldLogger, skip entities.NumericGuardSkip) {
	logger.WithFields(KeyFields(skip.Stage, skip.Key)).
		WithField("reason", skip.Reason).
		Debug("row skipped")
}

// LogIssue records a reported data issue at warn level
func LogIssue(logger logrus.FieldLogger, stage string, err error) {
	logger.WithField("stage", stage).WithError(err).Warn("data issue reported")
}
