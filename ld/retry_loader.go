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
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 200 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
)

// RetryingDocumentLoader repeats loads that fail with a retryable error,
// waiting with exponential backoff between attempts. Malformed documents
// and client errors are returned immediately.
type RetryingDocumentLoader struct {
	nextLoader      DocumentLoader
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	log             *slog.Logger
	metrics         *LoaderMetrics
}

// NewRetryingDocumentLoader wraps nextLoader with the default retry policy.
func NewRetryingDocumentLoader(nextLoader DocumentLoader) *RetryingDocumentLoader {
	return &RetryingDocumentLoader{
		nextLoader:      nextLoader,
		maxRetries:      DefaultMaxRetries,
		initialInterval: DefaultInitialInterval,
		maxInterval:     DefaultMaxInterval,
		log:             slog.Default(),
	}
}

// WithPolicy sets the number of retries and the backoff bounds. Zero
// intervals keep the defaults.
func (rl *RetryingDocumentLoader) WithPolicy(maxRetries int, initial, maxInterval time.Duration) *RetryingDocumentLoader {
	if maxRetries >= 0 {
		rl.maxRetries = uint64(maxRetries)
	}
	if initial > 0 {
		rl.initialInterval = initial
	}
	if maxInterval > 0 {
		rl.maxInterval = maxInterval
	}
	return rl
}

// WithLogger sets the logger that reports retries.
func (rl *RetryingDocumentLoader) WithLogger(logger *slog.Logger) *RetryingDocumentLoader {
	if logger != nil {
		rl.log = logger
	}
	return rl
}

// WithMetrics counts retries into m.
func (rl *RetryingDocumentLoader) WithMetrics(m *LoaderMetrics) *RetryingDocumentLoader {
	rl.metrics = m
	return rl
}

func (rl *RetryingDocumentLoader) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rl.initialInterval
	b.MaxInterval = rl.maxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, rl.maxRetries), ctx)
}

// LoadDocument loads u through the wrapped loader, retrying on transient failures.
func (rl *RetryingDocumentLoader) LoadDocument(ctx context.Context, u string) (*RemoteDocument, error) {
	var doc *RemoteDocument
	operation := func() error {
		d, err := rl.nextLoader.LoadDocument(ctx, u)
		if err != nil {
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		doc = d
		return nil
	}
	notify := func(err error, wait time.Duration) {
		rl.metrics.observeRetry()
		rl.log.Warn("retrying document load", "url", u, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, rl.newBackOff(ctx), notify); err != nil {
		if ErrorCodeOf(err) == "" {
			return nil, newLoadError(LoadingDocumentFailed, err)
		}
		return nil, err
	}
	return doc, nil
}
