// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import "github.com/sirupsen/logrus"

// LogSink is the hook the executor reports its suspension points through.
// It is deliberately narrow (no component levels, no redaction, no document
// truncation, those belong to a full logging subsystem). A nil LogSink
// disables logging entirely.
type LogSink interface {
	Info(msg string, fields map[string]any)
	Error(err error, msg string, fields map[string]any)
}

// logrusSink adapts a *logrus.Logger to LogSink, the same wiring shape the
// teacher's own logger example uses for a third-party sink.
type logrusSink struct {
	logger *logrus.Logger
}

// NewLogrusSink returns a LogSink backed by logger. If logger is nil, the
// standard logrus logger is used.
func NewLogrusSink(logger *logrus.Logger) LogSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &logrusSink{logger: logger}
}

func (s *logrusSink) Info(msg string, fields map[string]any) {
	s.logger.WithFields(logrus.Fields(fields)).Info(msg)
}

func (s *logrusSink) Error(err error, msg string, fields map[string]any) {
	s.logger.WithFields(logrus.Fields(fields)).WithError(err).Error(msg)
}

func logInfo(sink LogSink, msg string, fields map[string]any) {
	if sink != nil {
		sink.Info(msg, fields)
	}
}

func logError(sink LogSink, err error, msg string, fields map[string]any) {
	if sink != nil {
		sink.Error(err, msg, fields)
	}
}
