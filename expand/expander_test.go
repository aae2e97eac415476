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
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newRedirectServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExpandFollowsRedirect(t *testing.T) {
	var hits atomic.Int64
	srv := newRedirectServer(t, &hits)
	e := New(Config{}, NewCache(), nil)

	short := srv.URL + "/short"
	expected := srv.URL + "/final"

	for i := 0; i < 3; i++ {
		if actual := e.Expand(context.Background(), short); actual != expected {
			t.Errorf("Expand(%s), actual: %s, expected: %s", short, actual, expected)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("outbound calls, actual: %d, expected: 1", n)
	}
	if s := e.Stats(); s.Requests != 1 || s.Expanded != 1 || s.Failed != 0 {
		t.Errorf("Stats(), actual: %+v", s)
	}
}

func TestExpandConcurrentSingleResolution(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	e := New(Config{}, NewCache(), nil)
	link := srv.URL + "/x"

	var wg sync.WaitGroup
	results := make([]string, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Expand(context.Background(), link)
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if r != link {
			t.Errorf("result[%d], actual: %s, expected: %s", i, r, link)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("outbound calls, actual: %d, expected: 1", n)
	}
}

func TestExpandTimeoutKeepsOriginal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	e := New(Config{Timeout: 50 * time.Millisecond}, NewCache(), nil)
	link := srv.URL + "/slow"

	if actual := e.Expand(context.Background(), link); actual != link {
		t.Errorf("Expand(%s), actual: %s, expected: %s", link, actual, link)
	}
	if s := e.Stats(); s.Failed != 1 {
		t.Errorf("Stats().Failed, actual: %d, expected: 1", s.Failed)
	}
}

func TestExpandErrorStatusKeepsOriginal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	e := New(Config{}, NewCache(), nil)
	link := srv.URL + "/gone"
	if actual := e.Expand(context.Background(), link); actual != link {
		t.Errorf("Expand(%s), actual: %s, expected: %s", link, actual, link)
	}
}

func TestExpandMetaRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><meta name="referrer" content="always">`+
			`<META http-equiv="refresh" content="0;URL=https://example.com/article?id=1"></head></html>`)
	}))
	defer srv.Close()

	e := New(Config{}, NewCache(), nil)
	expected := "https://example.com/article?id=1"
	if actual := e.Expand(context.Background(), srv.URL+"/abc"); actual != expected {
		t.Errorf("Expand(meta refresh), actual: %s, expected: %s", actual, expected)
	}
}

func TestExpandHostFilter(t *testing.T) {
	var hits atomic.Int64
	srv := newRedirectServer(t, &hits)

	e := New(Config{Hosts: DefaultHosts}, NewCache(), nil)
	link := srv.URL + "/short"
	if actual := e.Expand(context.Background(), link); actual != link {
		t.Errorf("Expand(%s), actual: %s, expected: %s", link, actual, link)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("outbound calls, actual: %d, expected: 0", n)
	}

	for _, host := range []string{"t.co", "BIT.LY", "www.bit.ly"} {
		if !e.shouldExpand(host) {
			t.Errorf("shouldExpand(%s), actual: false, expected: true", host)
		}
	}
	if e.shouldExpand("example.com") {
		t.Errorf("shouldExpand(example.com), actual: true, expected: false")
	}
}

func TestExpandNotURL(t *testing.T) {
	e := New(Config{}, NewCache(), nil)
	for _, link := range []string{"", "not a url", "ftp://example.com/file", "mailto:a@example.com"} {
		if actual := e.Expand(context.Background(), link); actual != link {
			t.Errorf("Expand(%q), actual: %q, expected: %q", link, actual, link)
		}
	}
	if s := e.Stats(); s.Requests != 0 {
		t.Errorf("Stats().Requests, actual: %d, expected: 0", s.Requests)
	}
}

func TestExpandAllKeepsOrder(t *testing.T) {
	var hits atomic.Int64
	srv := newRedirectServer(t, &hits)
	e := New(Config{}, NewCache(), nil)

	in := []string{srv.URL + "/short", "not a url", srv.URL + "/short"}
	expected := []string{srv.URL + "/final", "not a url", srv.URL + "/final"}
	if diff := cmp.Diff(expected, e.ExpandAll(context.Background(), in)); diff != "" {
		t.Errorf("ExpandAll mismatch (-expected +actual):\n%s", diff)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("outbound calls, actual: %d, expected: 1", n)
	}
}

func TestCacheResolveOnce(t *testing.T) {
	c := NewCache()
	calls := 0
	resolve := func() string {
		calls++
		return "https://example.com/"
	}

	for i := 0; i < 3; i++ {
		if actual := c.Resolve("https://t.co/x", resolve); actual != "https://example.com/" {
			t.Errorf("Resolve, actual: %s", actual)
		}
	}
	if calls != 1 {
		t.Errorf("resolve calls, actual: %d, expected: 1", calls)
	}
	if c.Len() != 1 {
		t.Errorf("Len(), actual: %d, expected: 1", c.Len())
	}
	if _, ok := c.Get("https://t.co/y"); ok {
		t.Errorf("Get(missing), actual: found")
	}
}

func TestRefreshURL(t *testing.T) {
	cases := []struct {
		content  string
		expected string
	}{
		{"0;URL=https://example.com/", "https://example.com/"},
		{"0; url='https://example.com/a'", "https://example.com/a"},
		{"5", ""},
		{"", ""},
	}
	for _, c := range cases {
		if actual := refreshURL(c.content); actual != c.expected {
			t.Errorf("refreshURL(%s), actual: %s, expected: %s", c.content, actual, c.expected)
		}
	}
}
