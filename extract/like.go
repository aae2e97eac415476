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

package extract

import (
	"fmt"

	"github.com/qitoi/archive-extractor/twitter"
)

var (
	likeID        = twitter.Field{Key: "tweetId", Aliases: []string{"tweet_id", "id_str"}, Required: true}
	likeText      = twitter.Field{Key: "fullText", Aliases: []string{"full_text", "text"}, Default: ""}
	likePermalink = twitter.Field{Key: "expandedUrl", Aliases: []string{"expanded_url"}}
)

// NormalizeLike maps one likes record to a Row with LikeCount 1. Likes
// only carry the liked tweet's id and a text snapshot.
func NormalizeLike(rec twitter.Record) (*Row, error) {
	rec = twitter.Unwrap(rec, twitter.LikeKey)

	id, err := rec.String(likeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingID, err)
	}

	text, _ := rec.String(likeText)
	text = unescapeText(text)
	permalink, _ := rec.String(likePermalink)

	return &Row{
		TweetID:      id,
		Text:         text,
		ExpandedURLs: urlsInText(text),
		TweetURL:     statusURL(id, permalink),
		LikeCount:    1,
		Origin:       OriginLike,
	}, nil
}
