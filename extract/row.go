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
	"errors"
	"time"

	"github.com/qitoi/archive-extractor/classify"
)

var (
	ErrMissingID    = errors.New("record has no tweet id")
	ErrBadTimestamp = errors.New("unparseable created_at")
)

type Origin int

const (
	OriginPost Origin = iota
	OriginLike
)

func (o Origin) String() string {
	switch o {
	case OriginPost:
		return "posts"
	case OriginLike:
		return "likes"
	}
	return "unknown"
}

// Reply links a post to the status it answers. It is only set when both
// the status id and the user id are known.
type Reply struct {
	StatusID string
	UserID   string
	Username string
}

// Row is one normalized post or like.
type Row struct {
	TweetID       string
	Reply         *Reply
	Timestamp     time.Time
	Source        string
	Text          string
	ExpandedURLs  []string
	TweetURL      string
	RetweetCount  int64
	FavoriteCount int64
	LikeCount     int64

	// MediaURLs feed image classification; they are not written out.
	MediaURLs []string
	Image     *classify.Label

	Origin Origin
	// Index is the position of the record in its source file.
	Index int
}
