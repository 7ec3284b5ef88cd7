// Copyright 2015-2017 Piprate Limited
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ld

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// defaultPreloadConcurrency bounds parallel fetches in Preload.
const defaultPreloadConcurrency = 8

type cachedRemoteDocument struct {
	remoteDocument *RemoteDocument
	storedAt       time.Time
	expireTime     time.Time
	neverExpires   bool
}

func (e *cachedRemoteDocument) fresh(now time.Time) bool {
	return e.neverExpires || e.expireTime.After(now)
}

// CachingDocumentLoader is an overlay on top of DocumentLoader instance
// which caches documents as soon as they get retrieved from the
// underlying loader. It is safe for concurrent use.
//
// Cached documents are deep-copied on insert and then shared between
// callers, who must treat them as read-only. Concurrent misses for the same
// URL result in a single call to the underlying loader.
type CachingDocumentLoader struct {
	nextLoader DocumentLoader
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	log        *slog.Logger
	metrics    *LoaderMetrics

	mu    sync.RWMutex
	cache map[string]*cachedRemoteDocument
	group singleflight.Group
}

// CacheOption configures a CachingDocumentLoader.
type CacheOption func(*CachingDocumentLoader)

// WithTTL sets how long fetched documents stay fresh. Zero keeps them until
// invalidated, unless the document carries its own expiry.
func WithTTL(ttl time.Duration) CacheOption {
	return func(cdl *CachingDocumentLoader) { cdl.ttl = ttl }
}

// WithMaxEntries bounds the cache size; the oldest entry is evicted first.
// Zero means unbounded.
func WithMaxEntries(n int) CacheOption {
	return func(cdl *CachingDocumentLoader) { cdl.maxEntries = n }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(cdl *CachingDocumentLoader) { cdl.now = now }
}

// WithCacheLogger sets the logger for cache events.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(cdl *CachingDocumentLoader) {
		if logger != nil {
			cdl.log = logger
		}
	}
}

// WithCacheMetrics records hits, misses and evictions into m.
func WithCacheMetrics(m *LoaderMetrics) CacheOption {
	return func(cdl *CachingDocumentLoader) { cdl.metrics = m }
}

// NewCachingDocumentLoader creates a new instance of CachingDocumentLoader.
func NewCachingDocumentLoader(nextLoader DocumentLoader, opts ...CacheOption) *CachingDocumentLoader {
	rval := &CachingDocumentLoader{
		nextLoader: nextLoader,
		now:        time.Now,
		log:        slog.Default(),
		cache:      make(map[string]*cachedRemoteDocument),
	}
	for _, opt := range opts {
		opt(rval)
	}
	return rval
}

// LoadDocument returns a RemoteDocument containing the contents of the JSON resource
// from the given URL.
func (cdl *CachingDocumentLoader) LoadDocument(ctx context.Context, u string) (*RemoteDocument, error) {
	if doc, found := cdl.lookup(u); found {
		cdl.metrics.observeHit()
		cdl.log.Debug("document cache hit", "url", u)
		return doc, nil
	}
	cdl.metrics.observeMiss()

	ch := cdl.group.DoChan(u, func() (interface{}, error) {
		// another caller may have filled the entry while we queued
		if doc, found := cdl.lookup(u); found {
			return doc, nil
		}
		doc, err := cdl.nextLoader.LoadDocument(ctx, u)
		if err != nil {
			return nil, err
		}
		return cdl.store(u, doc), nil
	})

	select {
	case <-ctx.Done():
		return nil, newLoadError(LoadingDocumentFailed, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			if ErrorCodeOf(res.Err) == "" {
				return nil, newLoadError(LoadingDocumentFailed, res.Err)
			}
			return nil, res.Err
		}
		return res.Val.(*RemoteDocument), nil
	}
}

func (cdl *CachingDocumentLoader) lookup(u string) (*RemoteDocument, bool) {
	now := cdl.now()

	cdl.mu.RLock()
	entry, found := cdl.cache[u]
	cdl.mu.RUnlock()
	if !found {
		return nil, false
	}
	if entry.fresh(now) {
		return entry.remoteDocument, true
	}

	cdl.mu.Lock()
	if current, stillThere := cdl.cache[u]; stillThere && current == entry {
		delete(cdl.cache, u)
		cdl.metrics.observeEviction()
		cdl.log.Debug("document cache entry expired", "url", u)
	}
	cdl.mu.Unlock()
	return nil, false
}

// store inserts a private copy of doc and returns it.
func (cdl *CachingDocumentLoader) store(u string, doc *RemoteDocument) *RemoteDocument {
	now := cdl.now()
	stored := *doc
	stored.Document = CloneDocument(doc.Document)

	entry := &cachedRemoteDocument{remoteDocument: &stored, storedAt: now}
	switch {
	case cdl.ttl > 0:
		entry.expireTime = now.Add(cdl.ttl)
		if !doc.Expires.IsZero() && doc.Expires.Before(entry.expireTime) {
			entry.expireTime = doc.Expires
		}
	case !doc.Expires.IsZero():
		entry.expireTime = doc.Expires
	default:
		entry.neverExpires = true
	}

	cdl.mu.Lock()
	defer cdl.mu.Unlock()
	cdl.cache[u] = entry
	cdl.evictOverflowLocked(u)
	return entry.remoteDocument
}

func (cdl *CachingDocumentLoader) evictOverflowLocked(keep string) {
	for cdl.maxEntries > 0 && len(cdl.cache) > cdl.maxEntries {
		oldest := ""
		var oldestAt time.Time
		for u, entry := range cdl.cache {
			if u == keep {
				continue
			}
			if oldest == "" || entry.storedAt.Before(oldestAt) {
				oldest, oldestAt = u, entry.storedAt
			}
		}
		if oldest == "" {
			return
		}
		delete(cdl.cache, oldest)
		cdl.metrics.observeEviction()
	}
}

// AddDocument populates the cache with the given document (doc) for the provided URL (u).
// The entry never expires.
func (cdl *CachingDocumentLoader) AddDocument(u string, doc interface{}) {
	cdl.mu.Lock()
	defer cdl.mu.Unlock()
	cdl.cache[u] = &cachedRemoteDocument{
		remoteDocument: &RemoteDocument{DocumentURL: u, Document: CloneDocument(doc)},
		storedAt:       cdl.now(),
		neverExpires:   true,
	}
	cdl.evictOverflowLocked(u)
}

// Invalidate drops the entry for u, if any.
func (cdl *CachingDocumentLoader) Invalidate(u string) {
	cdl.mu.Lock()
	defer cdl.mu.Unlock()
	if _, found := cdl.cache[u]; found {
		delete(cdl.cache, u)
		cdl.metrics.observeEviction()
	}
}

// Purge drops every entry.
func (cdl *CachingDocumentLoader) Purge() {
	cdl.mu.Lock()
	defer cdl.mu.Unlock()
	for range cdl.cache {
		cdl.metrics.observeEviction()
	}
	cdl.cache = make(map[string]*cachedRemoteDocument)
}

// Len returns the number of cached entries, fresh or not.
func (cdl *CachingDocumentLoader) Len() int {
	cdl.mu.RLock()
	defer cdl.mu.RUnlock()
	return len(cdl.cache)
}

// Preload fetches the given URLs in parallel and caches them.
// The first failure cancels the remaining fetches.
func (cdl *CachingDocumentLoader) Preload(ctx context.Context, urls ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultPreloadConcurrency)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			_, err := cdl.LoadDocument(gctx, u)
			return err
		})
	}
	return g.Wait()
}

// PreloadWithMapping populates the cache with a number of documents which may be loaded
// from location different from the original URL (most importantly, from local files).
//
// Example:
//
//	l.PreloadWithMapping(ctx, map[string]string{
//	    "http://www.example.com/context.json": "/home/me/cache/example_com_context.json",
//	})
func (cdl *CachingDocumentLoader) PreloadWithMapping(ctx context.Context, urlMap map[string]string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultPreloadConcurrency)
	for srcURL, mappedURL := range urlMap {
		srcURL, mappedURL := srcURL, mappedURL
		g.Go(func() error {
			doc, err := cdl.nextLoader.LoadDocument(gctx, mappedURL)
			if err != nil {
				return err
			}
			withSource := *doc
			withSource.DocumentURL = srcURL
			withSource.Expires = time.Time{}
			cdl.storePermanent(srcURL, &withSource)
			return nil
		})
	}
	return g.Wait()
}

func (cdl *CachingDocumentLoader) storePermanent(u string, doc *RemoteDocument) {
	stored := *doc
	stored.Document = CloneDocument(doc.Document)

	cdl.mu.Lock()
	defer cdl.mu.Unlock()
	cdl.cache[u] = &cachedRemoteDocument{remoteDocument: &stored, storedAt: cdl.now(), neverExpires: true}
	cdl.evictOverflowLocked(u)
}
