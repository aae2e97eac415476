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
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache maps a shortened URL to its resolved destination for one run.
// Each key is written once; concurrent lookups of a missing key share a
// single resolution.
type Cache struct {
	mu    sync.RWMutex
	m     map[string]string
	group singleflight.Group
}

func NewCache() *Cache {
	return &Cache{
		m: map[string]string{},
	}
}

func (c *Cache) Get(url string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[url]
	return v, ok
}

// Resolve returns the cached value for url, calling resolve to fill it
// when absent.
func (c *Cache) Resolve(url string, resolve func() string) string {
	if v, ok := c.Get(url); ok {
		return v
	}

	v, _, _ := c.group.Do(url, func() (interface{}, error) {
		if v, ok := c.Get(url); ok {
			return v, nil
		}
		v := resolve()

		c.mu.Lock()
		defer c.mu.Unlock()
		if prev, ok := c.m[url]; ok {
			return prev, nil
		}
		c.m[url] = v
		return v, nil
	})

	return v.(string)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
