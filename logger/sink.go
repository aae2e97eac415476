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
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
)

var (
	stdout zapcore.WriteSyncer = os.Stdout
	stderr zapcore.WriteSyncer = os.Stderr
)

// openSink opens path for appending, creating its directory. An empty
// path returns fallback, which is never closed.
func openSink(path string, fallback zapcore.WriteSyncer) (zapcore.WriteSyncer, io.Closer, error) {
	if path == "" {
		return fallback, nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, err
	}
	return zapcore.AddSync(f), f, nil
}
