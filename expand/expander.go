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

package expand

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	maxRedirects = 10
	maxHTMLBytes = 256 << 10
)

// DefaultHosts lists the link shorteners resolved by default.
var DefaultHosts = []string{
	"t.co", "bit.ly", "buff.ly", "tinyurl.com", "ow.ly", "goo.gl", "dlvr.it", "ift.tt",
	"lnkd.in", "fb.me", "trib.al", "amzn.to", "tiny.cc", "is.gd", "t.ly",
}

type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return e.Status
}

type Config struct {
	// Timeout bounds one resolution including redirects.
	Timeout time.Duration
	// Hosts restricts expansion to these hosts. Empty means every URL.
	Hosts []string
	// Rate is the number of outbound requests per second; 0 is unlimited.
	Rate       float64
	Burst      int
	UserAgent  string
	HTTPClient *http.Client
}

type Stats struct {
	Requests  int64
	Expanded  int64
	Unchanged int64
	Failed    int64
}

// Expander resolves shortened URLs to their final destination. Results
// are memoized in a Cache, so a URL is requested at most once.
type Expander struct {
	client    *http.Client
	limiter   *rate.Limiter
	hosts     map[string]bool
	userAgent string
	cache     *Cache
	logger    *zap.SugaredLogger

	requests  atomic.Int64
	expanded  atomic.Int64
	unchanged atomic.Int64
	failed    atomic.Int64
}

func New(cfg Config, cache *Cache, logger *zap.SugaredLogger) *Expander {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &http.Client{}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		client = &c
	}
	client.Timeout = timeout
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	if burst <= 0 {
		burst = 1
	}

	hosts := map[string]bool{}
	for _, h := range cfg.Hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts[h] = true
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Expander{
		client:    client,
		limiter:   rate.NewLimiter(limit, burst),
		hosts:     hosts,
		userAgent: userAgent,
		cache:     cache,
		logger:    logger,
	}
}

// Expand returns the destination of link, or link itself when it is not a
// shortener link or cannot be resolved.
func (e *Expander) Expand(ctx context.Context, link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return link
	}
	if !e.shouldExpand(u.Hostname()) {
		return link
	}

	return e.cache.Resolve(link, func() string {
		dest, err := e.resolve(ctx, link)
		if err != nil {
			e.failed.Add(1)
			e.logger.Debugw("url expansion failed", "url", link, "error", err)
			return link
		}
		if dest == link {
			e.unchanged.Add(1)
		} else {
			e.expanded.Add(1)
		}
		return dest
	})
}

// ExpandAll expands every link, keeping the input order.
func (e *Expander) ExpandAll(ctx context.Context, links []string) []string {
	out := make([]string, len(links))
	for i, link := range links {
		out[i] = e.Expand(ctx, link)
	}
	return out
}

func (e *Expander) Stats() Stats {
	return Stats{
		Requests:  e.requests.Load(),
		Expanded:  e.expanded.Load(),
		Unchanged: e.unchanged.Load(),
		Failed:    e.failed.Load(),
	}
}

func (e *Expander) shouldExpand(host string) bool {
	if len(e.hosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	return e.hosts[host] || e.hosts[strings.TrimPrefix(host, "www.")]
}

func (e *Expander) resolve(ctx context.Context, link string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", e.userAgent)

	e.requests.Add(1)
	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	dest := resp.Request.URL
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		if refresh, err := metaRefresh(io.LimitReader(resp.Body, maxHTMLBytes)); err == nil && refresh != "" {
			if next, err := dest.Parse(refresh); err == nil {
				dest = next
			}
		}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxHTMLBytes))

	return dest.String(), nil
}

var errNoRefresh = errors.New("no meta refresh")

// metaRefresh returns the target of <meta http-equiv="refresh"
// content="0;URL=...">, the redirect t.co serves to browsers.
func metaRefresh(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	target := ""
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if equiv, _ := s.Attr("http-equiv"); !strings.EqualFold(equiv, "refresh") {
			return true
		}
		content, _ := s.Attr("content")
		target = refreshURL(content)
		return target == ""
	})
	if target == "" {
		return "", errNoRefresh
	}
	return target, nil
}

func refreshURL(content string) string {
	for _, part := range strings.Split(content, ";") {
		part = strings.TrimSpace(part)
		if len(part) > 4 && strings.EqualFold(part[:4], "url=") {
			return strings.Trim(strings.TrimSpace(part[4:]), `"'`)
		}
	}
	return ""
}
