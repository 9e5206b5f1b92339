package logger

import (
	"github.com/ThreeDotsLabs/watermill"
)

const watermillModule = "EVENTS"

type watermillAdapter struct {
	logger ILogger
	fields watermill.LogFields
}

// NewWatermillAdapter routes watermill's logs through l. Trace is dropped.
func NewWatermillAdapter(l ILogger) watermill.LoggerAdapter {
	return &watermillAdapter{logger: l, fields: watermill.LogFields{}}
}

func (a *watermillAdapter) details(fields watermill.LogFields) map[string]interface{} {
	return a.fields.Add(fields)
}

func (a *watermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	details := a.details(fields)
	if err != nil {
		details["error"] = err.Error()
	}
	a.logger.Error(watermillModule, msg, details)
}

func (a *watermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(watermillModule, msg, a.details(fields))
}

func (a *watermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(watermillModule, msg, a.details(fields))
}

func (a *watermillAdapter) Trace(string, watermill.LogFields) {}

func (a *watermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillAdapter{logger: a.logger, fields: a.fields.Add(fields)}
}
