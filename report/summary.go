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

package report

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "archive_extractor"

const (
	SourcePosts = "posts"
	SourceLikes = "likes"
)

// Record outcomes.
const (
	Parsed       = "parsed"
	Skipped      = "skipped"
	BadTimestamp = "bad_timestamp"
	Duplicate    = "duplicate"
	Merged       = "merged"
)

// URL expansion results.
const (
	Expanded  = "expanded"
	Unchanged = "unchanged"
	Failed    = "failed"
)

// Image classification results.
const (
	Classified  = "classified"
	Unavailable = "unavailable"
)

var (
	sources          = []string{SourcePosts, SourceLikes}
	recordOutcomes   = []string{Parsed, Skipped, BadTimestamp, Duplicate, Merged}
	expansionResults = []string{Expanded, Unchanged, Failed}
	classifyResults  = []string{Classified, Unavailable, Failed}
)

// Summary aggregates the non-fatal outcomes of one run. All methods are
// safe for concurrent use.
type Summary struct {
	records     map[string]*atomic.Int64
	expansions  map[string]*atomic.Int64
	images      map[string]*atomic.Int64
	rowsWritten atomic.Int64
	started     time.Time
}

func NewSummary() *Summary {
	s := &Summary{
		records:    map[string]*atomic.Int64{},
		expansions: map[string]*atomic.Int64{},
		images:     map[string]*atomic.Int64{},
		started:    time.Now(),
	}
	for _, src := range sources {
		for _, o := range recordOutcomes {
			s.records[recordKey(src, o)] = &atomic.Int64{}
		}
	}
	for _, r := range expansionResults {
		s.expansions[r] = &atomic.Int64{}
	}
	for _, r := range classifyResults {
		s.images[r] = &atomic.Int64{}
	}
	return s
}

func recordKey(source, outcome string) string {
	return source + "/" + outcome
}

// AddRecord counts n records of source with outcome. Unknown labels are
// ignored.
func (s *Summary) AddRecord(source, outcome string, n int64) {
	if c, ok := s.records[recordKey(source, outcome)]; ok {
		c.Add(n)
	}
}

func (s *Summary) Record(source, outcome string) int64 {
	if c, ok := s.records[recordKey(source, outcome)]; ok {
		return c.Load()
	}
	return 0
}

func (s *Summary) AddExpansions(result string, n int64) {
	if c, ok := s.expansions[result]; ok {
		c.Add(n)
	}
}

func (s *Summary) Expansions(result string) int64 {
	if c, ok := s.expansions[result]; ok {
		return c.Load()
	}
	return 0
}

func (s *Summary) AddImage(result string) {
	if c, ok := s.images[result]; ok {
		c.Add(1)
	}
}

func (s *Summary) Images(result string) int64 {
	if c, ok := s.images[result]; ok {
		return c.Load()
	}
	return 0
}

func (s *Summary) SetRowsWritten(n int) {
	s.rowsWritten.Store(int64(n))
}

func (s *Summary) RowsWritten() int64 {
	return s.rowsWritten.Load()
}

// Fields returns the summary as key-value pairs for a sugared logger.
func (s *Summary) Fields() []interface{} {
	var fields []interface{}
	for _, src := range sources {
		for _, o := range recordOutcomes {
			if n := s.Record(src, o); n > 0 {
				fields = append(fields, src+"_"+o, n)
			}
		}
	}
	for _, r := range expansionResults {
		if n := s.Expansions(r); n > 0 {
			fields = append(fields, "urls_"+r, n)
		}
	}
	for _, r := range classifyResults {
		if n := s.Images(r); n > 0 {
			fields = append(fields, "images_"+r, n)
		}
	}
	fields = append(fields,
		"rows_written", s.RowsWritten(),
		"elapsed", time.Since(s.started).Round(time.Millisecond).String(),
	)
	return fields
}

// Registry exposes the counters on a dedicated registry.
func (s *Summary) Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	for _, src := range sources {
		for _, o := range recordOutcomes {
			c := s.records[recordKey(src, o)]
			reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "records_total",
				Help:        "Archive records by source and outcome",
				ConstLabels: prometheus.Labels{"source": src, "outcome": o},
			}, loader(c)))
		}
	}
	for _, r := range expansionResults {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "url_expansions_total",
			Help:        "Distinct URL resolutions by result",
			ConstLabels: prometheus.Labels{"result": r},
		}, loader(s.expansions[r])))
	}
	for _, r := range classifyResults {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "image_classifications_total",
			Help:        "Image classifications by result",
			ConstLabels: prometheus.Labels{"result": r},
		}, loader(s.images[r])))
	}
	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_written_total",
		Help:      "Rows written to the output file",
	}, loader(&s.rowsWritten)))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Seconds since the run started",
	}, func() float64 {
		return time.Since(s.started).Seconds()
	}))

	return reg
}

func loader(c *atomic.Int64) func() float64 {
	return func() float64 {
		return float64(c.Load())
	}
}

// WriteTextfile writes the counters in the node_exporter textfile format.
func (s *Summary) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, s.Registry())
}
