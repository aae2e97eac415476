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
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qitoi/archive-extractor/archive"
	"github.com/qitoi/archive-extractor/classify"
	"github.com/qitoi/archive-extractor/expand"
	"github.com/qitoi/archive-extractor/extract"
	"github.com/qitoi/archive-extractor/report"
)

const DefaultConcurrency = 8

// ImageFetcher downloads the bytes behind a media URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, mediaURL string) ([]byte, error)
}

type Options struct {
	// Expander resolves shortened URLs. Nil leaves URLs as found.
	Expander *expand.Expander

	AnalyzeImages bool
	Classifier    classify.Classifier
	Fetcher       ImageFetcher

	// Concurrency bounds the rows enriched at once.
	Concurrency int
	Logger      *zap.SugaredLogger
}

type Pipeline struct {
	expander      *expand.Expander
	analyzeImages bool
	classifier    classify.Classifier
	fetcher       ImageFetcher
	concurrency   int
	logger        *zap.SugaredLogger
}

type Result struct {
	Rows    []*extract.Row
	Summary *report.Summary
}

func New(opts Options) *Pipeline {
	p := &Pipeline{
		expander:      opts.Expander,
		analyzeImages: opts.AnalyzeImages,
		classifier:    opts.Classifier,
		fetcher:       opts.Fetcher,
		concurrency:   opts.Concurrency,
		logger:        opts.Logger,
	}
	if p.classifier == nil {
		p.classifier = classify.Noop{}
	}
	if p.fetcher == nil {
		p.fetcher = classify.NewFetcher(0, 0)
	}
	if p.concurrency <= 0 {
		p.concurrency = DefaultConcurrency
	}
	if p.logger == nil {
		p.logger = zap.NewNop().Sugar()
	}
	return p
}

// RunArchive reads the zip at path and runs the pipeline over it.
func (p *Pipeline) RunArchive(ctx context.Context, path string) (*Result, error) {
	members, err := archive.ReadZip(path)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, members)
}

// Run turns the archive members into rows sorted newest first. Only a
// missing or malformed data file fails the run; bad records are skipped
// and counted in the summary.
func (p *Pipeline) Run(ctx context.Context, members archive.Members) (*Result, error) {
	summary := report.NewSummary()

	located, err := archive.Locate(members)
	if err != nil {
		return nil, err
	}

	posts, err := archive.ParseAll(located.Posts)
	if err != nil {
		return nil, err
	}
	likes, err := archive.ParseAll(located.Likes)
	if err != nil {
		return nil, err
	}

	p.logger.Infow("parsed archive",
		"posts_files", memberNames(located.Posts),
		"likes_files", memberNames(located.Likes),
		"posts", len(posts),
		"likes", len(likes),
	)

	rows := p.merge(posts, likes, summary)

	if err := p.enrich(ctx, rows, summary); err != nil {
		return nil, err
	}

	SortRows(rows)

	return &Result{
		Rows:    rows,
		Summary: summary,
	}, nil
}

func memberNames(members []archive.Member) []string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	return names
}

func (p *Pipeline) enrich(ctx context.Context, rows []*extract.Row, summary *report.Summary) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, row := range rows {
		row := row
		g.Go(func() error {
			return p.enrichRow(gctx, row, summary)
		})
	}

	err := g.Wait()

	if p.expander != nil {
		stats := p.expander.Stats()
		summary.AddExpansions(report.Expanded, stats.Expanded)
		summary.AddExpansions(report.Unchanged, stats.Unchanged)
		summary.AddExpansions(report.Failed, stats.Failed)
	}

	if err != nil {
		return err
	}
	return ctx.Err()
}

// enrichRow expands the row's URLs and classifies its media. The row is
// owned by the calling goroutine until it returns.
func (p *Pipeline) enrichRow(ctx context.Context, row *extract.Row, summary *report.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.expander != nil && len(row.ExpandedURLs) > 0 {
		row.ExpandedURLs = p.expander.ExpandAll(ctx, row.ExpandedURLs)
	}

	if p.analyzeImages && len(row.MediaURLs) > 0 {
		row.Image = p.classifyMedia(ctx, row, summary)
	}

	return ctx.Err()
}

// classifyMedia returns the most probable label over the row's media, or
// nil when no image could be classified.
func (p *Pipeline) classifyMedia(ctx context.Context, row *extract.Row, summary *report.Summary) *classify.Label {
	var best *classify.Label

	for _, mediaURL := range row.MediaURLs {
		image, err := p.fetcher.Fetch(ctx, mediaURL)
		if err != nil {
			summary.AddImage(report.Failed)
			p.logger.Debugw("image download failed", "tweet_id", row.TweetID, "url", mediaURL, "error", err)
			continue
		}

		label, err := p.classifier.Classify(ctx, image)
		if err != nil {
			if errors.Is(err, classify.ErrUnavailable) {
				summary.AddImage(report.Unavailable)
			} else {
				summary.AddImage(report.Failed)
				p.logger.Debugw("image classification failed", "tweet_id", row.TweetID, "url", mediaURL, "error", err)
			}
			continue
		}

		summary.AddImage(report.Classified)
		if best == nil || label.Probability > best.Probability {
			l := label
			best = &l
		}
	}

	return best
}

// SortRows orders rows newest first. Rows with equal timestamps, including
// rows without one, keep posts before likes and then their order in the
// source file.
func SortRows(rows []*extract.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if a.Origin != b.Origin {
			return a.Origin < b.Origin
		}
		return a.Index < b.Index
	})
}
