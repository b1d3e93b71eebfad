// Copyright 2023 The Vouch Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus logger to the go-vouch Logger interface.
type LogrusLogger struct {
	l *logrus.Logger
}

// NewLogrusLogger wraps an existing logrus logger. A nil logger gets the
// logrus standard logger.
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}

	return &LogrusLogger{l: l}
}

func (l *LogrusLogger) Errorf(format string, args ...interface{}) {
	l.l.Errorf(format, args...)
}

func (l *LogrusLogger) Error(args ...interface{}) {
	l.l.Error(args...)
}

func (l *LogrusLogger) Warnf(format string, args ...interface{}) {
	l.l.Warnf(format, args...)
}

func (l *LogrusLogger) Warn(args ...interface{}) {
	l.l.Warn(args...)
}

func (l *LogrusLogger) Debugf(format string, args ...interface{}) {
	l.l.Debugf(format, args...)
}

func (l *LogrusLogger) Debug(args ...interface{}) {
	l.l.Debug(args...)
}

func (l *LogrusLogger) Infof(format string, args ...interface{}) {
	l.l.Infof(format, args...)
}

func (l *LogrusLogger) Info(args ...interface{}) {
	l.l.Info(args...)
}
