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

package classify

import (
	"context"
	"errors"
)

// DefaultCategories are the labels images are classified against.
var DefaultCategories = []string{"meme", "infographic", "book recommendation", "promotion"}

var ErrUnavailable = errors.New("image classification unavailable")

type Label struct {
	Category    string
	Probability float64
}

// Classifier labels one image.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (Label, error)
}

// Noop is used when image analysis is disabled.
type Noop struct{}

func (Noop) Classify(context.Context, []byte) (Label, error) {
	return Label{}, ErrUnavailable
}

// Best returns the label with the highest probability among scores, in
// the order of categories on ties.
func Best(categories []string, scores map[string]float64) (Label, bool) {
	var best Label
	found := false
	for _, c := range categories {
		p, ok := scores[c]
		if !ok {
			continue
		}
		if !found || p > best.Probability {
			best = Label{Category: c, Probability: p}
			found = true
		}
	}
	return best, found
}
