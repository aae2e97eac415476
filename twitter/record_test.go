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

package twitter

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestRecordString(t *testing.T) {
	id := Field{Key: "id_str", Aliases: []string{"id"}, Required: true}

	rec := Record{"id": json.Number("1234567890123456789")}
	actual, err := rec.String(id)
	if err != nil {
		t.Fatal(err)
	}
	if actual != "1234567890123456789" {
		t.Errorf("String(id), actual: %s, expected: 1234567890123456789", actual)
	}

	_, err = Record{"id_str": ""}.String(id)
	var missing *MissingFieldError
	if !errors.As(err, &missing) || missing.Key != "id_str" {
		t.Errorf("String(empty id), actual error: %v", err)
	}

	text := Field{Key: "full_text", Default: "none"}
	if actual, _ := (Record{}).String(text); actual != "none" {
		t.Errorf("String(default), actual: %s, expected: none", actual)
	}
	if actual, _ := (Record{"full_text": ""}).String(text); actual != "" {
		t.Errorf("String(present empty), actual: %q, expected empty", actual)
	}
}

func TestRecordInt(t *testing.T) {
	count := Field{Key: "retweet_count", Default: int64(0)}

	cases := []struct {
		value    any
		expected int64
	}{
		{json.Number("12"), 12},
		{"7", 7},
		{" 3 ", 3},
		{float64(4), 4},
		{"abc", 0},
		{"-5", 0},
		{json.Number("1.5"), 0},
		{true, 0},
		{nil, 0},
	}
	for _, c := range cases {
		actual := Record{"retweet_count": c.value}.Int(count)
		if actual != c.expected {
			t.Errorf("Int(%v), actual: %d, expected: %d", c.value, actual, c.expected)
		}
	}

	if actual := (Record{}).Int(count); actual != 0 {
		t.Errorf("Int(missing), actual: %d, expected: 0", actual)
	}
}

func TestUnwrap(t *testing.T) {
	inner := map[string]any{"id_str": "1"}
	if actual := Unwrap(Record{"tweet": inner}, TweetKey); actual["id_str"] != "1" {
		t.Errorf("Unwrap(wrapped), actual: %v", actual)
	}
	bare := Record{"id_str": "2"}
	if actual := Unwrap(bare, TweetKey); actual["id_str"] != "2" {
		t.Errorf("Unwrap(bare), actual: %v", actual)
	}
}

func TestObjects(t *testing.T) {
	rec := Record{"entities": map[string]any{
		"urls": []any{map[string]any{"url": "a"}, "junk", map[string]any{"url": "b"}},
	}}
	urls := rec.Object("entities").Objects("urls")
	if len(urls) != 2 || urls[0]["url"] != "a" || urls[1]["url"] != "b" {
		t.Errorf("Objects, actual: %v", urls)
	}
	if actual := rec.Object("missing").Objects("urls"); actual != nil {
		t.Errorf("Objects(missing), actual: %v", actual)
	}
}

func TestParseCreatedAt(t *testing.T) {
	actual, err := ParseCreatedAt("Wed Oct 10 20:19:24 +0000 2018")
	if err != nil {
		t.Fatal(err)
	}
	expected := time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC)
	if !actual.Equal(expected) {
		t.Errorf("ParseCreatedAt, actual: %v, expected: %v", actual, expected)
	}

	formatted := FormatTimestamp(actual)
	if formatted != "2018-10-10 20:19:24" {
		t.Errorf("FormatTimestamp, actual: %s", formatted)
	}
	back, err := time.Parse(TimestampLayout, formatted)
	if err != nil || !back.Equal(expected) {
		t.Errorf("round trip, actual: %v (%v), expected: %v", back, err, expected)
	}

	if _, err := ParseCreatedAt("2018-10-10"); err == nil {
		t.Error("ParseCreatedAt(invalid) should fail")
	}
	if FormatTimestamp(time.Time{}) != "" {
		t.Error("FormatTimestamp(zero) should be empty")
	}
}

func TestPermalinkFor(t *testing.T) {
	link, ok := PermalinkFor("https://twitter.com/someone/status/42/photo/1", "42")
	if !ok || link != "https://twitter.com/someone/status/42" {
		t.Errorf("PermalinkFor(photo), actual: %s %v", link, ok)
	}
	if _, ok := PermalinkFor("https://twitter.com/someone/status/43", "42"); ok {
		t.Error("PermalinkFor(other id) should not match")
	}
	if _, ok := PermalinkFor("https://example.com/status/42", "42"); ok {
		t.Error("PermalinkFor(other host) should not match")
	}
	if actual := GetStatusURL("42"); actual != "https://twitter.com/i/web/status/42" {
		t.Errorf("GetStatusURL, actual: %s", actual)
	}
}
