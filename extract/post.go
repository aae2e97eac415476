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
	postID            = twitter.Field{Key: "id_str", Aliases: []string{"id"}, Required: true}
	postReplyStatusID = twitter.Field{Key: "in_reply_to_status_id_str", Aliases: []string{"in_reply_to_status_id"}}
	postReplyUserID   = twitter.Field{Key: "in_reply_to_user_id_str", Aliases: []string{"in_reply_to_user_id"}}
	postReplyUsername = twitter.Field{Key: "in_reply_to_screen_name"}
	postCreatedAt     = twitter.Field{Key: "created_at"}
	postSource        = twitter.Field{Key: "source", Default: ""}
	postText          = twitter.Field{Key: "full_text", Aliases: []string{"text"}, Default: ""}
	postRetweetCount  = twitter.Field{Key: "retweet_count", Default: int64(0)}
	postFavoriteCount = twitter.Field{Key: "favorite_count", Default: int64(0)}
	postPermalink     = twitter.Field{Key: "permalink", Aliases: []string{"expanded_url", "expandedUrl"}}

	entityURL       = twitter.Field{Key: "expanded_url", Aliases: []string{"url"}}
	entityMediaURL  = twitter.Field{Key: "media_url_https", Aliases: []string{"media_url"}}
	entityMediaLink = twitter.Field{Key: "expanded_url"}
)

// NormalizePost maps one posts record (wrapped or bare) to a Row. When
// created_at cannot be parsed the row is still returned, with a zero
// timestamp, together with an error wrapping ErrBadTimestamp.
func NormalizePost(rec twitter.Record) (*Row, error) {
	rec = twitter.Unwrap(rec, twitter.TweetKey)

	id, err := rec.String(postID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingID, err)
	}

	source, _ := rec.String(postSource)
	text, _ := rec.String(postText)

	row := &Row{
		TweetID:       id,
		Reply:         replyOf(rec),
		Source:        sourceText(source),
		Text:          unescapeText(text),
		ExpandedURLs:  entityURLs(rec),
		RetweetCount:  rec.Int(postRetweetCount),
		FavoriteCount: rec.Int(postFavoriteCount),
		MediaURLs:     mediaURLs(rec),
		Origin:        OriginPost,
	}

	permalink, _ := rec.String(postPermalink)
	row.TweetURL = statusURL(id, append([]string{permalink}, mediaLinks(rec)...)...)

	createdAt, _ := rec.String(postCreatedAt)
	if createdAt != "" {
		ts, err := twitter.ParseCreatedAt(createdAt)
		if err != nil {
			return row, fmt.Errorf("%w %q: %v", ErrBadTimestamp, createdAt, err)
		}
		row.Timestamp = ts
	}

	return row, nil
}

// replyOf returns the reply linkage only when the status id and user id
// are both present; a lone username is not a reply.
func replyOf(rec twitter.Record) *Reply {
	statusID, _ := rec.String(postReplyStatusID)
	userID, _ := rec.String(postReplyUserID)
	if statusID == "" || userID == "" {
		return nil
	}
	username, _ := rec.String(postReplyUsername)
	return &Reply{
		StatusID: statusID,
		UserID:   userID,
		Username: username,
	}
}

func entityURLs(rec twitter.Record) []string {
	urls := make([]string, 0)
	for _, u := range rec.Object("entities").Objects("urls") {
		link, _ := u.String(entityURL)
		urls = appendUnique(urls, link)
	}
	return urls
}

func media(rec twitter.Record) []twitter.Record {
	if m := rec.Object("extended_entities").Objects("media"); len(m) > 0 {
		return m
	}
	return rec.Object("entities").Objects("media")
}

func mediaURLs(rec twitter.Record) []string {
	var urls []string
	for _, m := range media(rec) {
		link, _ := m.String(entityMediaURL)
		urls = appendUnique(urls, link)
	}
	return urls
}

func mediaLinks(rec twitter.Record) []string {
	var links []string
	for _, m := range media(rec) {
		link, _ := m.String(entityMediaLink)
		links = appendUnique(links, link)
	}
	return links
}

func statusURL(id string, candidates ...string) string {
	for _, c := range candidates {
		if link, ok := twitter.PermalinkFor(c, id); ok {
			return link
		}
	}
	return twitter.GetStatusURL(id)
}
