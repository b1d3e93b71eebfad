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

// Logger is the interface go-vouch expects of loggers. Any logger satisfying
// this interface may be registered with SetLogger, after which go-vouch will
// emit its logs through it. The default logger discards everything.
type Logger interface {
	Errorf(format string, args ...interface{})
	Error(args ...interface{})
	Warnf(format string, args ...interface{})
	Warn(args ...interface{})
	Debugf(format string, args ...interface{})
	Debug(args ...interface{})
	Infof(format string, args ...interface{})
	Info(args ...interface{})
}

type silentLogger struct{}

func (silentLogger) Errorf(format string, args ...interface{}) {}
func (silentLogger) Error(args ...interface{})                 {}
func (silentLogger) Warnf(format string, args ...interface{})  {}
func (silentLogger) Warn(args ...interface{})                  {}
func (silentLogger) Debugf(format string, args ...interface{}) {}
func (silentLogger) Debug(args ...interface{})                 {}
func (silentLogger) Infof(format string, args ...interface{})  {}
func (silentLogger) Info(args ...interface{})                  {}

var log Logger = silentLogger{}

// SetLogger registers the logger all go-vouch packages will log through.
func SetLogger(l Logger) {
	log = l
}

// GetLogger returns the currently registered logger.
func GetLogger() Logger {
	return log
}

func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

func Error(args ...interface{}) {
	log.Error(args...)
}

func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

func Warn(args ...interface{}) {
	log.Warn(args...)
}

func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

func Debug(args ...interface{}) {
	log.Debug(args...)
}

func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func Info(args ...interface{}) {
	log.Info(args...)
}
