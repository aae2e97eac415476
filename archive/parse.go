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
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"

	"github.com/qitoi/archive-extractor/twitter"
)

// window.YTD.tweets.part0 = [ ... ]
var exportPrefix = regexp.MustCompile(`^\s*window\.YTD\.[A-Za-z0-9_]+\.part\d+\s*=\s*`)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse decodes one data file into records, keeping the file's order.
// Array elements that are not objects become empty records.
func Parse(name string, data []byte) ([]twitter.Record, error) {
	body := bytes.TrimPrefix(data, utf8BOM)

	prefixFound := false
	if loc := exportPrefix.FindIndex(body); loc != nil {
		prefixFound = true
		body = body[loc[1]:]
	}
	body = bytes.TrimSpace(body)
	body = bytes.TrimSuffix(body, []byte(";"))

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, &MalformedArchiveError{Member: name, PrefixFound: prefixFound, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after array")
		}
		return nil, &MalformedArchiveError{Member: name, PrefixFound: prefixFound, Err: err}
	}

	records := make([]twitter.Record, 0, len(items))
	for _, item := range items {
		m, _ := item.(map[string]any)
		records = append(records, twitter.Record(m))
	}

	return records, nil
}

// ParseAll parses every member in order and concatenates the records.
func ParseAll(members []Member) ([]twitter.Record, error) {
	var records []twitter.Record
	for _, m := range members {
		r, err := Parse(m.Name, m.Data)
		if err != nil {
			return nil, err
		}
		records = append(records, r...)
	}
	return records, nil
}
