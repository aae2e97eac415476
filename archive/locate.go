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
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Known data file names, in lookup order.
var (
	PostFileNames = []string{"tweets.js", "tweet.js"}
	LikeFileNames = []string{"like.js"}
)

var partPattern = regexp.MustCompile(`^(.+)-part(\d+)\.js$`)

type Member struct {
	Name string
	Data []byte
}

// Located holds the data files of both sources. Large exports are split
// into tweets.js, tweets-part1.js, ...; the parts follow the primary file.
type Located struct {
	Posts []Member
	Likes []Member
}

func Locate(members Members) (*Located, error) {
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	posts := find(members, names, PostFileNames)
	if posts == nil {
		return nil, &MissingDataError{Kind: "posts", Expected: PostFileNames}
	}
	likes := find(members, names, LikeFileNames)
	if likes == nil {
		return nil, &MissingDataError{Kind: "likes", Expected: LikeFileNames}
	}

	return &Located{
		Posts: posts,
		Likes: likes,
	}, nil
}

func find(members Members, names []string, candidates []string) []Member {
	for _, candidate := range candidates {
		stem := strings.TrimSuffix(candidate, ".js")

		var primary *Member
		type part struct {
			n int
			m Member
		}
		var parts []part

		for _, name := range names {
			base := strings.ToLower(path.Base(name))
			if base == candidate {
				if primary == nil {
					primary = &Member{Name: name, Data: members[name]}
				}
				continue
			}
			if m := partPattern.FindStringSubmatch(base); m != nil && m[1] == stem {
				n, _ := strconv.Atoi(m[2])
				parts = append(parts, part{n: n, m: Member{Name: name, Data: members[name]}})
			}
		}

		if primary == nil {
			continue
		}

		sort.SliceStable(parts, func(i, j int) bool { return parts[i].n < parts[j].n })
		out := []Member{*primary}
		for _, p := range parts {
			out = append(out, p.m)
		}
		return out
	}
	return nil
}
