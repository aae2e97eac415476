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

package archive

import (
	"fmt"
	"strings"
)

// MissingDataError reports that the archive does not contain a data file
// the extractor needs.
type MissingDataError struct {
	Kind     string
	Expected []string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("%s data not found in archive: expected %s", e.Kind, strings.Join(e.Expected, " or "))
}

// MalformedArchiveError reports a data file whose body could not be decoded.
type MalformedArchiveError struct {
	Member      string
	PrefixFound bool
	Err         error
}

func (e *MalformedArchiveError) Error() string {
	if e.PrefixFound {
		return fmt.Sprintf("malformed %s: export prefix found but body is not valid JSON: %v", e.Member, e.Err)
	}
	return fmt.Sprintf("malformed %s: no export prefix found and body is not valid JSON: %v", e.Member, e.Err)
}

func (e *MalformedArchiveError) Unwrap() error {
	return e.Err
}
