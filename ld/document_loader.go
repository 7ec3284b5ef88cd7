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
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/cachecontrol"
)

const (
	// An HTTP Accept header that prefers JSON-LD.
	acceptHeader = "application/ld+json, application/json;q=0.9, application/n-quads;q=0.5, */*;q=0.1"

	// maxAlternateLinks bounds the chain of rel=alternate links followed for one load.
	maxAlternateLinks = 10
)

// RemoteDocument is a document retrieved from a remote source.
type RemoteDocument struct {
	DocumentURL string
	Document    interface{}
	// ContextURL comes from a Link header with rel=http://www.w3.org/ns/json-ld#context.
	ContextURL  string
	ContentType string
	Profile     string
	// Expires is the time after which a cache should drop the document.
	// The zero value carries no freshness hint.
	Expires time.Time
}

// DocumentLoader knows how to load remote documents.
// Implementations must honor ctx cancellation.
type DocumentLoader interface {
	LoadDocument(ctx context.Context, u string) (*RemoteDocument, error)
}

// DocumentLoaderFunc adapts a function to the DocumentLoader interface.
type DocumentLoaderFunc func(ctx context.Context, u string) (*RemoteDocument, error)

// LoadDocument calls f(ctx, u).
func (f DocumentLoaderFunc) LoadDocument(ctx context.Context, u string) (*RemoteDocument, error) {
	return f(ctx, u)
}

// DefaultDocumentLoader is a standard implementation of DocumentLoader
// which can retrieve documents via HTTP. Other schemes and plain paths
// are handed to a FileLoader.
type DefaultDocumentLoader struct {
	httpClient *http.Client
	accept     string
	files      *FileLoader
	log        *slog.Logger
	metrics    *LoaderMetrics
}

// NewDefaultDocumentLoader creates a new instance of DefaultDocumentLoader.
// A nil client means http.DefaultClient.
func NewDefaultDocumentLoader(httpClient *http.Client) *DefaultDocumentLoader {
	rval := &DefaultDocumentLoader{
		httpClient: httpClient,
		accept:     acceptHeader,
		files:      NewFileLoader(""),
		log:        slog.Default(),
	}
	if rval.httpClient == nil {
		rval.httpClient = http.DefaultClient
	}
	return rval
}

// WithAccept overrides the Accept header sent with every request.
func (dl *DefaultDocumentLoader) WithAccept(accept string) *DefaultDocumentLoader {
	if accept != "" {
		dl.accept = accept
	}
	return dl
}

// WithFileLoader sets the loader used for non-HTTP IRIs.
func (dl *DefaultDocumentLoader) WithFileLoader(files *FileLoader) *DefaultDocumentLoader {
	dl.files = files
	return dl
}

// WithLogger sets the logger for fetch events.
func (dl *DefaultDocumentLoader) WithLogger(logger *slog.Logger) *DefaultDocumentLoader {
	if logger != nil {
		dl.log = logger
	}
	return dl
}

// WithMetrics records fetch latency into m.
func (dl *DefaultDocumentLoader) WithMetrics(m *LoaderMetrics) *DefaultDocumentLoader {
	dl.metrics = m
	return dl
}

// LoadDocument returns a RemoteDocument containing the contents of the JSON resource
// from the given URL.
func (dl *DefaultDocumentLoader) LoadDocument(ctx context.Context, u string) (*RemoteDocument, error) {
	return dl.load(ctx, u, 0)
}

func (dl *DefaultDocumentLoader) load(ctx context.Context, u string, hops int) (*RemoteDocument, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, NewJsonLdError(LoadingDocumentFailed, fmt.Sprintf("error parsing URL: %s", u))
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return dl.files.LoadDocument(ctx, u)
	}

	start := time.Now()
	doc, err := dl.fetch(ctx, u, hops)
	dl.metrics.observeFetch(start, err)
	return doc, err
}

func (dl *DefaultDocumentLoader) fetch(ctx context.Context, u string, hops int) (*RemoteDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, NewJsonLdError(LoadingDocumentFailed, err)
	}
	req.Header.Set("Accept", dl.accept)

	dl.log.Debug("fetching document", "url", u)

	res, err := dl.httpClient.Do(req)
	if err != nil {
		return nil, newLoadError(LoadingDocumentFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, NewJsonLdError(LoadingDocumentFailed, &HTTPStatusError{URL: u, StatusCode: res.StatusCode})
	}

	remoteDoc := &RemoteDocument{DocumentURL: res.Request.URL.String()}

	contentType, params, _ := mime.ParseMediaType(res.Header.Get("Content-Type"))
	remoteDoc.ContentType = contentType
	remoteDoc.Profile = params["profile"]

	if links := res.Header.Values("Link"); len(links) > 0 {
		parsedLinkHeader := ParseLinkHeader(strings.Join(links, ", "))

		contextLink := parsedLinkHeader[LinkHeaderRel]
		if contextLink != nil && contentType != ApplicationJSONLDType && rApplicationJSON.MatchString(contentType) {
			if len(contextLink) > 1 {
				return nil, NewJsonLdError(MultipleContextLinkHeaders, u)
			}
			remoteDoc.ContextURL = Resolve(remoteDoc.DocumentURL, contextLink[0]["target"])
		}

		// a non-JSON response may point at its JSON-LD representation
		alternateLink := parsedLinkHeader["alternate"]
		if len(alternateLink) > 0 &&
			alternateLink[0]["type"] == ApplicationJSONLDType &&
			!rApplicationJSON.MatchString(contentType) {

			if hops >= maxAlternateLinks {
				return nil, NewJsonLdError(LoadingDocumentFailed, "too many alternate links from "+u)
			}
			return dl.load(ctx, Resolve(remoteDoc.DocumentURL, alternateLink[0]["target"]), hops+1)
		}
	}

	switch {
	case contentType == TextHTMLType:
		return nil, NewJsonLdError(LoadingDocumentFailed, "HTML documents are not supported: "+u)
	case contentType == ApplicationNQuadsType:
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, newLoadError(LoadingDocumentFailed, err)
		}
		remoteDoc.Document = string(body)
	default:
		remoteDoc.Document, err = DocumentFromReader(res.Body)
		if err != nil {
			return nil, err
		}
	}

	if reasons, expires, err := cachecontrol.CachableResponse(req, res, cachecontrol.Options{}); err == nil &&
		len(reasons) == 0 && !expires.IsZero() {
		remoteDoc.Expires = expires
	}

	return remoteDoc, nil
}

var rSplitOnComma = regexp.MustCompile("(?:<[^>]*?>|\"[^\"]*?\"|[^,])+")
var rLinkHeader = regexp.MustCompile(`\s*<([^>]*?)>\s*(?:;\s*(.*))?`)
var rApplicationJSON = regexp.MustCompile(`^application/(\w*\+)?json$`)
var rParams = regexp.MustCompile("(.*?)=(?:(?:\"([^\"]*?)\")|([^\"]*?))\\s*(?:(?:;\\s*)|$)")

// ParseLinkHeader parses a link header. The results will be keyed by the value of "rel".
//
//	Link: <http://json-ld.org/contexts/person.jsonld>; \
//	  rel="http://www.w3.org/ns/json-ld#context"; type="application/ld+json"
//
//	Parses as: {
//	  'http://www.w3.org/ns/json-ld#context': [{
//	    target: http://json-ld.org/contexts/person.jsonld,
//	    rel:    http://www.w3.org/ns/json-ld#context,
//	    type:   application/ld+json
//	  }]
//	}
func ParseLinkHeader(header string) map[string][]map[string]string {
	rval := make(map[string][]map[string]string)

	// split on unbracketed/unquoted commas
	for _, entry := range rSplitOnComma.FindAllString(header, -1) {
		match := rLinkHeader.FindStringSubmatch(entry)
		if match == nil {
			continue
		}

		result := map[string]string{"target": match[1]}
		for _, param := range rParams.FindAllStringSubmatch(match[2], -1) {
			name := strings.TrimSpace(param[1])
			if param[2] != "" {
				result[name] = param[2]
			} else {
				result[name] = param[3]
			}
		}
		rel := result["rel"]
		rval[rel] = append(rval[rel], result)
	}
	return rval
}

// callScopedLoader memoizes successful loads for the duration of one
// top-level operation, so a remote context referenced many times is
// fetched once.
type callScopedLoader struct {
	next DocumentLoader
	mu   sync.Mutex
	docs map[string]*RemoteDocument
}

func newCallScopedLoader(next DocumentLoader) DocumentLoader {
	if next == nil {
		return nil
	}
	if _, scoped := next.(*callScopedLoader); scoped {
		return next
	}
	return &callScopedLoader{next: next, docs: make(map[string]*RemoteDocument)}
}

func (l *callScopedLoader) LoadDocument(ctx context.Context, u string) (*RemoteDocument, error) {
	l.mu.Lock()
	doc, found := l.docs[u]
	l.mu.Unlock()
	if found {
		return doc, nil
	}

	doc, err := l.next.LoadDocument(ctx, u)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.docs[u] = doc
	l.mu.Unlock()
	return doc, nil
}
