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

package output

import (
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/qitoi/archive-extractor/classify"
	"github.com/qitoi/archive-extractor/extract"
	"github.com/qitoi/archive-extractor/twitter"
)

func sampleRows() []*extract.Row {
	return []*extract.Row{
		{
			TweetID:       "1050118621198921728",
			Reply:         &extract.Reply{StatusID: "1050118000000000000", UserID: "783214", Username: "Twitter"},
			Timestamp:     time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC),
			Source:        "Twitter for iPhone",
			Text:          "line one\nline two, with \"quotes\"",
			ExpandedURLs:  []string{"https://example.com/a", "https://example.com/b"},
			TweetURL:      "https://twitter.com/i/web/status/1050118621198921728",
			RetweetCount:  3,
			FavoriteCount: 12,
			LikeCount:     1,
			MediaURLs:     []string{"https://pbs.twimg.com/media/a.jpg"},
			Image:         &classify.Label{Category: "meme", Probability: 0.875},
			Origin:        extract.OriginPost,
		},
		{
			TweetID:      "300",
			ExpandedURLs: []string{},
			TweetURL:     "https://twitter.com/i/web/status/300",
			LikeCount:    2,
			Origin:       extract.OriginLike,
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", FileName)
	if err := WriteCSV(path, sampleRows(), false); err != nil {
		t.Fatal(err)
	}

	expected := [][]string{
		Header(false),
		{
			"1050118621198921728", "1050118000000000000", "783214", "Twitter",
			"2018-10-10 20:19:24", "Twitter for iPhone", "line one\nline two, with \"quotes\"",
			"https://example.com/a, https://example.com/b",
			"https://twitter.com/i/web/status/1050118621198921728", "3", "12", "1",
		},
		{"300", "", "", "", "", "", "", "", "https://twitter.com/i/web/status/300", "0", "0", "2"},
	}
	if diff := cmp.Diff(expected, readCSV(t, path)); diff != "" {
		t.Errorf("csv mismatch (-expected +actual):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files should be gone, actual: %v", entries)
	}
}

func TestWriteCSVWithImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileNameWithImages)
	if err := WriteCSV(path, sampleRows(), true); err != nil {
		t.Fatal(err)
	}

	records := readCSV(t, path)
	header := records[0]
	if diff := cmp.Diff([]string{"like_count", "Image Category", "Probability"}, header[len(header)-3:]); diff != "" {
		t.Errorf("header mismatch (-expected +actual):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"meme", "0.875"}, records[1][len(records[1])-2:]); diff != "" {
		t.Errorf("labelled row mismatch (-expected +actual):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"", ""}, records[2][len(records[2])-2:]); diff != "" {
		t.Errorf("unlabelled row mismatch (-expected +actual):\n%s", diff)
	}
}

func TestHeader(t *testing.T) {
	expected := "tweet_id,in_reply_to_status_id,in_reply_to_user_id,in_reply_to_status_username," +
		"timestamp,source,text,expanded_urls,tweet_url,retweet_count,favorite_count,like_count"
	if actual := strings.Join(Header(false), ","); actual != expected {
		t.Errorf("Header(false), actual: %s, expected: %s", actual, expected)
	}
	if n := len(Header(true)); n != 14 {
		t.Errorf("len(Header(true)), actual: %d, expected: 14", n)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	source := "Wed Oct 10 20:19:24 +0000 2018"
	ts, err := twitter.ParseCreatedAt(source)
	if err != nil {
		t.Fatal(err)
	}

	cell := Fields(&extract.Row{Timestamp: ts}, false)[4]
	back, err := time.Parse(twitter.TimestampLayout, cell)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(ts) {
		t.Errorf("round trip of %s, actual: %v, expected: %v", source, back, ts)
	}
}

func TestWriteCSVFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("previous"), 0644); err != nil {
		t.Fatal(err)
	}

	err := writeAtomic(path, func(tmp string) error {
		return os.ErrInvalid
	})
	if err == nil {
		t.Fatal("writeAtomic should fail")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "previous" {
		t.Errorf("file content, actual: %s, expected: previous", b)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files should be gone, actual: %v", entries)
	}
}

func TestWriteSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tweets.db")
	if err := WriteSQLite(context.Background(), path, sampleRows()); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM tweets`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("row count, actual: %d, expected: 2", count)
	}

	var (
		likes     int64
		media     string
		category  sql.NullString
		timestamp sql.NullString
		replyTo   sql.NullString
	)
	err = db.QueryRow(`SELECT like_count, media_urls, image_category, timestamp, in_reply_to_status_id FROM tweets WHERE tweet_id = ?`, "300").
		Scan(&likes, &media, &category, &timestamp, &replyTo)
	if err != nil {
		t.Fatal(err)
	}
	if likes != 2 || media != "" || category.Valid || timestamp.Valid || replyTo.Valid {
		t.Errorf("like-only row, actual: %d %q %v %v %v", likes, media, category, timestamp, replyTo)
	}

	var probability float64
	if err := db.QueryRow(`SELECT probability FROM tweets WHERE tweet_id = ?`, "1050118621198921728").Scan(&probability); err != nil {
		t.Fatal(err)
	}
	if probability != 0.875 {
		t.Errorf("probability, actual: %v, expected: 0.875", probability)
	}
}
