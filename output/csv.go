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
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/qitoi/archive-extractor/extract"
	"github.com/qitoi/archive-extractor/twitter"
)

const (
	FileName           = "tweets_data.csv"
	FileNameWithImages = "tweets_data_with_image_analysis.csv"

	urlSeparator = ", "
)

var columns = []string{
	"tweet_id",
	"in_reply_to_status_id",
	"in_reply_to_user_id",
	"in_reply_to_status_username",
	"timestamp",
	"source",
	"text",
	"expanded_urls",
	"tweet_url",
	"retweet_count",
	"favorite_count",
	"like_count",
}

var imageColumns = []string{"Image Category", "Probability"}

func Header(withImages bool) []string {
	h := append([]string{}, columns...)
	if withImages {
		h = append(h, imageColumns...)
	}
	return h
}

// Fields renders row in Header order.
func Fields(row *extract.Row, withImages bool) []string {
	var statusID, userID, username string
	if row.Reply != nil {
		statusID = row.Reply.StatusID
		userID = row.Reply.UserID
		username = row.Reply.Username
	}

	f := []string{
		row.TweetID,
		statusID,
		userID,
		username,
		twitter.FormatTimestamp(row.Timestamp),
		row.Source,
		row.Text,
		strings.Join(row.ExpandedURLs, urlSeparator),
		row.TweetURL,
		strconv.FormatInt(row.RetweetCount, 10),
		strconv.FormatInt(row.FavoriteCount, 10),
		strconv.FormatInt(row.LikeCount, 10),
	}
	if withImages {
		category, probability := "", ""
		if row.Image != nil {
			category = row.Image.Category
			probability = strconv.FormatFloat(row.Image.Probability, 'f', -1, 64)
		}
		f = append(f, category, probability)
	}
	return f
}

func Write(w io.Writer, rows []*extract.Row, withImages bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(withImages)); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(Fields(row, withImages)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes rows to path. The file is written next to path and
// renamed into place, so path holds either the complete output or its
// previous content.
func WriteCSV(path string, rows []*extract.Row, withImages bool) error {
	return writeAtomic(path, func(tmp string) error {
		f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		if err := Write(f, rows, withImages); err != nil {
			f.Close()
			return err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

func writeAtomic(path string, write func(tmp string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
