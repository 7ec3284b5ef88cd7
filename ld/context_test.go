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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorDocumentLoader struct {
	err error
}

func (l errorDocumentLoader) LoadDocument(_ context.Context, _ string) (*RemoteDocument, error) {
	return nil, l.err
}

// contextLoader serves remote contexts from memory.
func contextLoader(docs map[string]interface{}) DocumentLoader {
	return DocumentLoaderFunc(func(_ context.Context, u string) (*RemoteDocument, error) {
		doc, found := docs[u]
		if !found {
			return nil, NewJsonLdError(LoadingDocumentFailed, u)
		}
		return &RemoteDocument{DocumentURL: u, Document: doc}, nil
	})
}

func TestContext_Parse(t *testing.T) {
	expectedError := errors.New("failed")
	opts := NewJsonLdOptions("")
	opts.DocumentLoader = errorDocumentLoader{err: expectedError}

	t.Run("DocumentLoader can't resolve @context URL", func(t *testing.T) {
		_, err := NewContext(opts).Parse(context.Background(), "http://example.org/foo.ldjson")
		jsonLDError := new(JsonLdError)
		require.ErrorAs(t, err, &jsonLDError)
		assert.Equal(t, LoadingRemoteContextFailed, jsonLDError.Code)
		assert.ErrorIs(t, err, expectedError, "DocumentLoader error is not wrapped")
	})
	t.Run("DocumentLoader can't resolve @import", func(t *testing.T) {
		_, err := NewContext(opts).Parse(context.Background(), map[string]interface{}{
			"@import": "http://example.org/foo.ldjson",
		})
		jsonLDError := new(JsonLdError)
		require.ErrorAs(t, err, &jsonLDError)
		assert.Equal(t, LoadingRemoteContextFailed, jsonLDError.Code)
		assert.ErrorIs(t, err, expectedError, "DocumentLoader error is not wrapped")
	})
	t.Run("loader deadline is reported as a timeout", func(t *testing.T) {
		opts := NewJsonLdOptions("")
		opts.DocumentLoader = errorDocumentLoader{err: context.DeadlineExceeded}
		_, err := NewContext(opts).Parse(context.Background(), "http://example.org/slow.jsonld")
		assert.Equal(t, LoadingDocumentTimeout, ErrorCodeOf(err))
	})
}

func TestContext_TermDefinitions(t *testing.T) {
	activeCtx, err := NewContext(NewJsonLdOptions("")).Parse(context.Background(), map[string]interface{}{
		"@vocab":  "http://vocab.example/",
		"name":    "ex:name",
		"ex":      "http://example.org/",
		"knows":   map[string]interface{}{"@id": "ex:knows", "@type": "@id"},
		"tags":    map[string]interface{}{"@id": "ex:tags", "@container": "@list"},
		"label":   map[string]interface{}{"@id": "ex:label", "@language": "en"},
		"ignored": nil,
	})
	require.NoError(t, err)

	// definitions may refer to terms defined later in the same context
	assert.Equal(t, "http://example.org/name", activeCtx.GetTermDefinition("name").ID)
	assert.Equal(t, "@id", activeCtx.GetTypeMapping("knows"))
	assert.True(t, activeCtx.GetContainer("tags").Has(ContainerList))
	assert.Equal(t, "en", activeCtx.GetLanguageMapping("label"))
	assert.True(t, activeCtx.GetTermDefinition("ignored").IsNull())
	assert.Equal(t, "http://vocab.example/", activeCtx.Vocab())

	iri, _ := activeCtx.ExpandIri("ex:other", false, true)
	assert.Equal(t, "http://example.org/other", iri)
	iri, _ = activeCtx.ExpandIri("unknown", false, true)
	assert.Equal(t, "http://vocab.example/unknown", iri)
}

func TestContext_ParseIsImmutable(t *testing.T) {
	base, err := NewContext(NewJsonLdOptions("")).Parse(context.Background(), map[string]interface{}{
		"name": "http://schema.org/name",
	})
	require.NoError(t, err)

	derived, err := base.Parse(context.Background(), map[string]interface{}{
		"name": "http://example.org/name",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://schema.org/name", base.GetTermDefinition("name").ID)
	assert.Equal(t, "http://example.org/name", derived.GetTermDefinition("name").ID)
}

func TestContext_Errors(t *testing.T) {
	tests := []struct {
		name     string
		local    interface{}
		expected ErrorCode
	}{
		{"cyclic term definitions", map[string]interface{}{"a": "b:x", "b": "a:y"}, CyclicIRIMapping},
		{"keyword redefinition", map[string]interface{}{"@id": "http://example.org/id"}, KeywordRedefinition},
		{"non-string vocab", map[string]interface{}{"@vocab": 5.0}, InvalidVocabMapping},
		{"bad default language", map[string]interface{}{"@language": true}, InvalidDefaultLanguage},
		{"bad local context", 42.0, InvalidLocalContext},
		{"bad direction", map[string]interface{}{"@direction": "up"}, InvalidBaseDirection},
		{"bad @type redefinition", map[string]interface{}{"@type": map[string]interface{}{"@container": "@list"}},
			KeywordRedefinition},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			_, err := NewContext(NewJsonLdOptions("")).Parse(context.Background(), test.local)
			require.Error(t, err)
			assert.Equal(t, test.expected, ErrorCodeOf(err))
		})
	}
}

func TestContext_ProtectedTerms(t *testing.T) {
	protected, err := NewContext(NewJsonLdOptions("")).Parse(context.Background(), map[string]interface{}{
		"@protected": true,
		"name":       "http://schema.org/name",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, protected.ProtectedTerms())

	t.Run("identical redefinition is allowed", func(t *testing.T) {
		_, err := protected.Parse(context.Background(), map[string]interface{}{
			"name": "http://schema.org/name",
		})
		assert.NoError(t, err)
	})
	t.Run("different redefinition fails", func(t *testing.T) {
		_, err := protected.Parse(context.Background(), map[string]interface{}{
			"name": "http://example.org/name",
		})
		assert.Equal(t, ProtectedTermRedefinition, ErrorCodeOf(err))
	})
	t.Run("nullification fails", func(t *testing.T) {
		_, err := protected.Parse(context.Background(), nil)
		assert.Equal(t, InvalidContextNullification, ErrorCodeOf(err))
	})
}

func TestContext_RemoteContexts(t *testing.T) {
	opts := NewJsonLdOptions("")
	opts.DocumentLoader = contextLoader(map[string]interface{}{
		"http://example.org/ctx/a.jsonld": map[string]interface{}{
			"@context": []interface{}{
				"b.jsonld",
				map[string]interface{}{"name": "http://schema.org/name"},
			},
		},
		"http://example.org/ctx/b.jsonld": map[string]interface{}{
			"@context": map[string]interface{}{"knows": "http://xmlns.com/foaf/0.1/knows"},
		},
		"http://example.org/ctx/no-context.jsonld": map[string]interface{}{"name": "x"},
	})

	t.Run("relative references resolve against the context URL", func(t *testing.T) {
		activeCtx, err := NewContext(opts).Parse(context.Background(), "http://example.org/ctx/a.jsonld")
		require.NoError(t, err)
		assert.Equal(t, "http://schema.org/name", activeCtx.GetTermDefinition("name").ID)
		assert.Equal(t, "http://xmlns.com/foaf/0.1/knows", activeCtx.GetTermDefinition("knows").ID)
	})
	t.Run("a document without @context is rejected", func(t *testing.T) {
		_, err := NewContext(opts).Parse(context.Background(), "http://example.org/ctx/no-context.jsonld")
		assert.Equal(t, InvalidRemoteContext, ErrorCodeOf(err))
	})
	t.Run("unknown document", func(t *testing.T) {
		_, err := NewContext(opts).Parse(context.Background(), "http://example.org/ctx/missing.jsonld")
		assert.Equal(t, LoadingRemoteContextFailed, ErrorCodeOf(err))
		assert.True(t, IsLoadError(err))
	})
}

func TestContext_Overflow(t *testing.T) {
	opts := NewJsonLdOptions("")
	opts.MaxContextDepth = 2
	opts.DocumentLoader = contextLoader(map[string]interface{}{
		"http://example.org/1": map[string]interface{}{"@context": "http://example.org/2"},
		"http://example.org/2": map[string]interface{}{"@context": "http://example.org/3"},
		"http://example.org/3": map[string]interface{}{"@context": map[string]interface{}{}},
	})

	_, err := NewContext(opts).Parse(context.Background(), "http://example.org/1")
	assert.Equal(t, ContextOverflow, ErrorCodeOf(err))

	opts.MaxContextDepth = 0
	_, err = NewContext(opts).Parse(context.Background(), "http://example.org/1")
	assert.NoError(t, err)
}

func TestContext_CompactIri(t *testing.T) {
	activeCtx, err := NewContext(NewJsonLdOptions("http://example.org/base/")).Parse(context.Background(),
		map[string]interface{}{
			"schema": "http://schema.org/",
			"name":   "http://schema.org/name",
		})
	require.NoError(t, err)

	assert.Equal(t, "name", activeCtx.CompactIri("http://schema.org/name", nil, true, false))
	assert.Equal(t, "schema:Person", activeCtx.CompactIri("http://schema.org/Person", nil, true, false))
	assert.Equal(t, "doc", activeCtx.CompactIri("http://example.org/base/doc", nil, false, false))
	assert.Equal(t, "http://other.example/x", activeCtx.CompactIri("http://other.example/x", nil, true, false))
}
