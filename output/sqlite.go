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
	"strings"

	_ "modernc.org/sqlite"

	"github.com/qitoi/archive-extractor/extract"
	"github.com/qitoi/archive-extractor/twitter"
)

const schema = `
CREATE TABLE tweets (
  tweet_id TEXT PRIMARY KEY,
  in_reply_to_status_id TEXT,
  in_reply_to_user_id TEXT,
  in_reply_to_status_username TEXT,
  timestamp TEXT,
  source TEXT NOT NULL,
  text TEXT NOT NULL,
  expanded_urls TEXT NOT NULL,
  tweet_url TEXT NOT NULL,
  retweet_count INTEGER NOT NULL,
  favorite_count INTEGER NOT NULL,
  like_count INTEGER NOT NULL,
  media_urls TEXT NOT NULL,
  image_category TEXT,
  probability REAL
);
CREATE INDEX idx_tweets_timestamp ON tweets(timestamp);
`

const insertRow = `INSERT INTO tweets(
  tweet_id, in_reply_to_status_id, in_reply_to_user_id, in_reply_to_status_username,
  timestamp, source, text, expanded_urls, tweet_url,
  retweet_count, favorite_count, like_count, media_urls, image_category, probability
) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

// WriteSQLite writes rows into a new SQLite database at path, replacing
// any previous file once every row is stored. Absent values are NULL.
func WriteSQLite(ctx context.Context, path string, rows []*extract.Row) error {
	return writeAtomic(path, func(tmp string) error {
		db, err := sql.Open("sqlite", tmp)
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := db.ExecContext(ctx, schema); err != nil {
			return err
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, insertRow)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, sqliteArgs(row)...); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return err
		}
		return db.Close()
	})
}

func sqliteArgs(row *extract.Row) []interface{} {
	var statusID, userID, username, timestamp, category, probability interface{}
	if row.Reply != nil {
		statusID = row.Reply.StatusID
		userID = row.Reply.UserID
		username = row.Reply.Username
	}
	if !row.Timestamp.IsZero() {
		timestamp = twitter.FormatTimestamp(row.Timestamp)
	}
	if row.Image != nil {
		category = row.Image.Category
		probability = row.Image.Probability
	}

	return []interface{}{
		row.TweetID,
		statusID,
		userID,
		username,
		timestamp,
		row.Source,
		row.Text,
		strings.Join(row.ExpandedURLs, urlSeparator),
		row.TweetURL,
		row.RetweetCount,
		row.FavoriteCount,
		row.LikeCount,
		strings.Join(row.MediaURLs, urlSeparator),
		category,
		probability,
	}
}
