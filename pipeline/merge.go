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

package pipeline

import (
	"errors"

	"github.com/qitoi/archive-extractor/extract"
	"github.com/qitoi/archive-extractor/report"
	"github.com/qitoi/archive-extractor/twitter"
)

// merge normalizes both sources into one row per tweet id. A post row
// absorbs the likes that reference it; likes of other tweets become
// like-only rows counting their like records.
func (p *Pipeline) merge(posts, likes []twitter.Record, summary *report.Summary) []*extract.Row {
	byID := map[string]*extract.Row{}
	rows := make([]*extract.Row, 0, len(posts)+len(likes))

	for i, rec := range posts {
		row, err := extract.NormalizePost(rec)
		if errors.Is(err, extract.ErrMissingID) {
			summary.AddRecord(report.SourcePosts, report.Skipped, 1)
			p.logger.Warnw("skipping post record", "index", i, "error", err)
			continue
		}
		if errors.Is(err, extract.ErrBadTimestamp) {
			summary.AddRecord(report.SourcePosts, report.BadTimestamp, 1)
			p.logger.Warnw("post has invalid timestamp", "tweet_id", row.TweetID, "index", i, "error", err)
		}

		if _, ok := byID[row.TweetID]; ok {
			summary.AddRecord(report.SourcePosts, report.Duplicate, 1)
			p.logger.Debugw("duplicate post record", "tweet_id", row.TweetID, "index", i)
			continue
		}

		summary.AddRecord(report.SourcePosts, report.Parsed, 1)
		row.Index = i
		byID[row.TweetID] = row
		rows = append(rows, row)
	}

	for i, rec := range likes {
		row, err := extract.NormalizeLike(rec)
		if err != nil {
			summary.AddRecord(report.SourceLikes, report.Skipped, 1)
			p.logger.Warnw("skipping like record", "index", i, "error", err)
			continue
		}
		summary.AddRecord(report.SourceLikes, report.Parsed, 1)

		if existing, ok := byID[row.TweetID]; ok {
			existing.LikeCount++
			if existing.Origin == extract.OriginPost {
				summary.AddRecord(report.SourceLikes, report.Merged, 1)
			}
			continue
		}

		row.Index = i
		byID[row.TweetID] = row
		rows = append(rows, row)
	}

	return rows
}
