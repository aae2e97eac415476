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
	"fmt"
	"regexp"
	"time"

	twitter11 "github.com/dghubble/go-twitter/twitter"
)

// TimestampLayout is the layout of the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Keys wrapping post and like objects in the export files.
const (
	TweetKey = "tweet"
	LikeKey  = "like"
)

var statusURLPattern = regexp.MustCompile(`^(https?://(?:www\.|mobile\.)?(?:twitter|x)\.com/(?:i/web|[A-Za-z0-9_]+)/status(?:es)?/(\d+))`)

// ParseCreatedAt parses the archive's created_at value
// ("Wed Oct 10 20:19:24 +0000 2018") and returns it in UTC.
func ParseCreatedAt(createdAt string) (time.Time, error) {
	t, err := twitter11.Tweet{CreatedAt: createdAt}.CreatedAtTime()
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatTimestamp formats t for the timestamp column. The zero time is
// written as an empty cell.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

func GetStatusURL(tweetID string) string {
	return fmt.Sprintf("https://twitter.com/i/web/status/%s", tweetID)
}

// PermalinkFor returns the status permalink contained in link when it
// refers to tweetID, dropping trailing segments such as /photo/1.
func PermalinkFor(link, tweetID string) (string, bool) {
	m := statusURLPattern.FindStringSubmatch(link)
	if m == nil || m[2] != tweetID {
		return "", false
	}
	return m[1], true
}
