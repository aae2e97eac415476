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
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	twtext "github.com/kylemcc/twitter-text-go/extract"
)

// sourceText reduces the client markup (<a href="...">Twitter for iPhone</a>)
// to its visible text.
func sourceText(source string) string {
	source = strings.TrimSpace(source)
	if !strings.Contains(source, "<") {
		return html.UnescapeString(source)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return source
	}
	return strings.TrimSpace(doc.Text())
}

// unescapeText undoes the entity escaping the export applies to tweet text.
func unescapeText(text string) string {
	return html.UnescapeString(text)
}

// urlsInText returns the links found in text, in order of appearance.
func urlsInText(text string) []string {
	entities := twtext.ExtractUrls(text)
	urls := make([]string, 0, len(entities))
	for _, e := range entities {
		urls = appendUnique(urls, e.Text)
	}
	return urls
}

func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
