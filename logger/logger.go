/*
 *  Copyright 2021 qitoi
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 */

package logger

import (
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes warnings and errors to one sink and everything below to
// another.
type Logger struct {
	*zap.Logger
	closers []io.Closer
}

func New(info, error zapcore.WriteSyncer, level zapcore.Level) *Logger {
	highPriority := zap.LevelEnablerFunc(func(lv zapcore.Level) bool {
		return lv >= zapcore.WarnLevel && lv >= level
	})
	lowPriority := zap.LevelEnablerFunc(func(lv zapcore.Level) bool {
		return lv < zapcore.WarnLevel && lv >= level
	})

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(error), highPriority),
		zapcore.NewCore(encoder, zapcore.Lock(info), lowPriority),
	)

	return &Logger{
		Logger: zap.New(core),
	}
}

// Open builds a Logger over the given log files. An empty path selects
// stdout for info and stderr for error.
func Open(infoPath, errorPath string, level zapcore.Level) (*Logger, error) {
	info, infoCloser, err := openSink(infoPath, stdout)
	if err != nil {
		return nil, err
	}
	errorSink, errorCloser, err := openSink(errorPath, stderr)
	if err != nil {
		if infoCloser != nil {
			infoCloser.Close()
		}
		return nil, err
	}

	l := New(info, errorSink, level)
	for _, c := range []io.Closer{infoCloser, errorCloser} {
		if c != nil {
			l.closers = append(l.closers, c)
		}
	}
	return l, nil
}

// Close flushes buffered entries and closes the log files.
func (l *Logger) Close() error {
	// Syncing a terminal fails with EINVAL, so that result is dropped.
	_ = l.Sync()

	var err error
	for _, c := range l.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
