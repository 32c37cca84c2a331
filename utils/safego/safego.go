/*
 * Copyright 2026 Seqsift Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package safego

import (
	"os"
	"runtime/debug"
	"strings"

	"github.com/seqsift/seqsift/utils/logger"
)

// Recovery logs a recovered panic with its stack trace. Meant to be
// deferred; exit controls whether the process terminates afterwards.
func Recovery(exit bool) {
	if err := recover(); err != nil {
		logger.Error(err)
		for _, line := range strings.Split(string(debug.Stack()), "\n") {
			logger.Error(strings.ReplaceAll(line, "\t", ""))
		}
		if exit {
			os.Exit(1)
		}
	}
}

// Close closes ch, tolerating a double close.
func Close[T any](ch chan T) {
	defer Recovery(false)
	close(ch)
}
