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

package ld_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/piprate/jsonld-engine/ld"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapLoader serves documents from memory and counts the requests it receives.
type mapLoader struct {
	docs  map[string]interface{}
	calls atomic.Int32
}

func newMapLoader(docs map[string]interface{}) *mapLoader {
	return &mapLoader{docs: docs}
}

func (l *mapLoader) LoadDocument(_ context.Context, u string) (*RemoteDocument, error) {
	l.calls.Add(1)
	doc, found := l.docs[u]
	if !found {
		return nil, NewJsonLdError(LoadingDocumentFailed, fmt.Sprintf("no document at %s", u))
	}
	return &RemoteDocument{DocumentURL: u, Document: doc}, nil
}

func nameDoc() map[string]interface{} {
	return map[string]interface{}{
		"@context": map[string]interface{}{"name": "http://schema.org/name"},
		"name":     "Manu",
	}
}

func TestExpandTermDefinition(t *testing.T) {
	proc := NewJsonLdProcessor()

	expanded, err := proc.Expand(context.Background(), nameDoc(), nil)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"http://schema.org/name": []interface{}{
				map[string]interface{}{"@value": "Manu"},
			},
		},
	}, expanded)
}

func TestFlattenReplacesEmbeddedNodes(t *testing.T) {
	proc := NewJsonLdProcessor()
	doc := map[string]interface{}{
		"@id": "http://example.org/a",
		"http://example.org/knows": map[string]interface{}{
			"@id": "http://example.org/b",
		},
	}

	expanded, err := proc.Expand(context.Background(), doc, nil)
	require.NoError(t, err)

	nodeMap := NewNodeMap()
	err = NewJsonLdApi().GenerateNodeMap(expanded, nodeMap, NewIdentifierIssuer("_:b"), NewJsonLdOptions(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example.org/a", "http://example.org/b"}, nodeMap.Subjects("@default"))
	assert.Equal(t, []interface{}{
		map[string]interface{}{"@id": "http://example.org/b"},
	}, nodeMap.Node("@default", "http://example.org/a")["http://example.org/knows"])

	flattened, err := proc.Flatten(context.Background(), doc, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"@id": "http://example.org/a",
			"http://example.org/knows": []interface{}{
				map[string]interface{}{"@id": "http://example.org/b"},
			},
		},
	}, flattened)
}

func TestToRDFLabelsAnonymousNodes(t *testing.T) {
	proc := NewJsonLdProcessor()
	opts := NewJsonLdOptions("http://example.org/")

	expanded, err := proc.Expand(context.Background(), nameDoc(), opts)
	require.NoError(t, err)

	res, err := proc.ToRDF(context.Background(), expanded, opts)
	require.NoError(t, err)
	dataset := res.(*RDFDataset)

	quads := dataset.GetQuads("@default")
	require.Len(t, quads, 1)
	assert.True(t, quads[0].Equal(NewQuad(
		NewBlankNode("_:b0"),
		NewIRI("http://schema.org/name"),
		NewLiteral("Manu", XSDString, ""),
		"@default",
	)))
	assert.Equal(t, 1, dataset.Len())

	opts.Format = "application/n-quads"
	nquads, err := proc.ToRDF(context.Background(), expanded, opts)
	require.NoError(t, err)
	assert.Equal(t, "_:b0 <http://schema.org/name> \"Manu\" .\n", nquads)
}

func TestCompactUsesTermDefinition(t *testing.T) {
	proc := NewJsonLdProcessor()
	ctxDoc := map[string]interface{}{"name": "http://schema.org/name"}

	expanded, err := proc.Expand(context.Background(), nameDoc(), nil)
	require.NoError(t, err)

	compacted, err := proc.Compact(context.Background(), expanded, ctxDoc, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "Manu"}, compacted)

	opts := NewJsonLdOptions("")
	opts.EmbedContext = true
	compacted, err = proc.Compact(context.Background(), expanded, ctxDoc, opts)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"@context": ctxDoc,
		"name":     "Manu",
	}, compacted)
}

func TestCompactWithoutContextEmitsNoContext(t *testing.T) {
	proc := NewJsonLdProcessor()

	compacted, err := proc.Compact(context.Background(), nameDoc(), map[string]interface{}{}, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"http://schema.org/name": "Manu"}, compacted)
}

func TestCompactRoundTrip(t *testing.T) {
	proc := NewJsonLdProcessor()
	doc := map[string]interface{}{
		"@context": map[string]interface{}{
			"@vocab": "http://schema.org/",
			"knows":  map[string]interface{}{"@type": "@id"},
			"tags":   map[string]interface{}{"@container": "@list"},
		},
		"@id":   "http://example.org/manu",
		"@type": "Person",
		"name":  "Manu",
		"knows": "http://example.org/dave",
		"tags":  []interface{}{"a", "b"},
	}
	ctxDoc := map[string]interface{}{
		"name":   "http://schema.org/name",
		"schema": "http://schema.org/",
	}

	expanded, err := proc.Expand(context.Background(), doc, nil)
	require.NoError(t, err)

	compacted, err := proc.Compact(context.Background(), expanded, ctxDoc, nil)
	require.NoError(t, err)
	assert.Equal(t, "Manu", compacted["name"])
	assert.Equal(t, "schema:Person", compacted["@type"])
	assert.NotContains(t, compacted, "@context")

	opts := NewJsonLdOptions("")
	opts.ExpandContext = ctxDoc
	reExpanded, err := proc.Expand(context.Background(), compacted, opts)
	require.NoError(t, err)
	assert.Equal(t, expanded, reExpanded)
}

func TestRDFRoundTrip(t *testing.T) {
	proc := NewJsonLdProcessor()
	doc := map[string]interface{}{
		"@context": map[string]interface{}{
			"@vocab": "http://example.org/",
			"steps":  map[string]interface{}{"@container": "@list"},
			"next":   map[string]interface{}{"@type": "@id"},
		},
		"@id":   "http://example.org/recipe",
		"steps": []interface{}{"mix", "bake", "serve"},
		"next":  "http://example.org/dessert",
		"title": map[string]interface{}{"@value": "Bread", "@language": "en"},
	}

	expanded, err := proc.Expand(context.Background(), doc, nil)
	require.NoError(t, err)

	dataset, err := proc.ToRDF(context.Background(), expanded, nil)
	require.NoError(t, err)

	fromRDF, err := proc.FromRDF(context.Background(), dataset, nil)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"@id": "http://example.org/recipe",
			"http://example.org/next": []interface{}{
				map[string]interface{}{"@id": "http://example.org/dessert"},
			},
			"http://example.org/steps": []interface{}{
				map[string]interface{}{"@list": []interface{}{
					map[string]interface{}{"@value": "mix"},
					map[string]interface{}{"@value": "bake"},
					map[string]interface{}{"@value": "serve"},
				}},
			},
			"http://example.org/title": []interface{}{
				map[string]interface{}{"@value": "Bread", "@language": "en"},
			},
		},
	}, fromRDF)
}

func TestFlattenIsDeterministic(t *testing.T) {
	proc := NewJsonLdProcessor()
	doc := map[string]interface{}{
		"@context": map[string]interface{}{"@vocab": "http://example.org/"},
		"name":     "root",
		"child": []interface{}{
			map[string]interface{}{"name": "first"},
			map[string]interface{}{"name": "second", "child": map[string]interface{}{"name": "third"}},
		},
	}

	first, err := proc.Flatten(context.Background(), doc, nil, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := proc.Flatten(context.Background(), doc, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Len(t, first, 4)
}

func TestFlattenWithContext(t *testing.T) {
	proc := NewJsonLdProcessor()
	doc := map[string]interface{}{
		"@id":                     "http://example.org/a",
		"http://example.org/name": "A",
		"http://example.org/knows": map[string]interface{}{
			"@id":                     "http://example.org/b",
			"http://example.org/name": "B",
		},
	}
	ctxDoc := map[string]interface{}{"ex": "http://example.org/"}

	opts := NewJsonLdOptions("")
	opts.EmbedContext = true
	flattened, err := proc.Flatten(context.Background(), doc, ctxDoc, opts)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"@context": ctxDoc,
		"@graph": []interface{}{
			map[string]interface{}{
				"@id":      "ex:a",
				"ex:knows": map[string]interface{}{"@id": "ex:b"},
				"ex:name":  "A",
			},
			map[string]interface{}{
				"@id":     "ex:b",
				"ex:name": "B",
			},
		},
	}, flattened)
}

func TestRemoteContextCycleIsRejected(t *testing.T) {
	loader := newMapLoader(map[string]interface{}{
		"http://example.org/a": map[string]interface{}{"@context": "http://example.org/b"},
		"http://example.org/b": map[string]interface{}{"@context": "http://example.org/a"},
	})
	opts := NewJsonLdOptions("")
	opts.DocumentLoader = loader

	doc := map[string]interface{}{
		"@context":                "http://example.org/a",
		"http://example.org/name": "x",
	}

	_, err := NewJsonLdProcessor().Expand(context.Background(), doc, opts)
	require.Error(t, err)
	assert.Equal(t, CyclicIRIMapping, ErrorCodeOf(err))
}

func TestSelfReferencingContextIsRejected(t *testing.T) {
	loader := newMapLoader(map[string]interface{}{
		"http://example.org/self": map[string]interface{}{
			"@context": []interface{}{"http://example.org/self"},
		},
	})
	opts := NewJsonLdOptions("")
	opts.DocumentLoader = loader

	_, err := NewJsonLdProcessor().Expand(context.Background(), map[string]interface{}{
		"@context": "http://example.org/self",
	}, opts)
	assert.Equal(t, CyclicIRIMapping, ErrorCodeOf(err))
}

func TestListOfListsInJsonLd10(t *testing.T) {
	opts := NewJsonLdOptions("")
	opts.ProcessingMode = JsonLd_1_0

	doc := map[string]interface{}{
		"@id": "http://example.org/a",
		"http://example.org/p": map[string]interface{}{
			"@list": []interface{}{
				map[string]interface{}{"@list": []interface{}{"x"}},
			},
		},
	}

	_, err := NewJsonLdProcessor().Expand(context.Background(), doc, opts)
	assert.Equal(t, ListOfLists, ErrorCodeOf(err))
}

func TestExpandRemoteDocumentWithLinkedContext(t *testing.T) {
	loader := newMapLoader(map[string]interface{}{
		"http://example.org/context.jsonld": map[string]interface{}{
			"@context": map[string]interface{}{"name": "http://schema.org/name"},
		},
	})
	opts := NewJsonLdOptions("")
	opts.DocumentLoader = loader

	rd := &RemoteDocument{
		DocumentURL: "http://example.org/doc.json",
		Document:    map[string]interface{}{"name": "Manu"},
		ContextURL:  "http://example.org/context.jsonld",
	}

	expanded, err := NewJsonLdProcessor().Expand(context.Background(), rd, opts)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"http://schema.org/name": []interface{}{map[string]interface{}{"@value": "Manu"}},
		},
	}, expanded)
}

func TestExpandLoadsIRIInputOnce(t *testing.T) {
	loader := newMapLoader(map[string]interface{}{
		"http://example.org/doc.jsonld": map[string]interface{}{
			"@context": "http://example.org/context.jsonld",
			"@id":      "relative",
			"a":        map[string]interface{}{"@context": "http://example.org/context.jsonld", "name": "nested"},
		},
		"http://example.org/context.jsonld": map[string]interface{}{
			"@context": map[string]interface{}{
				"name": "http://schema.org/name",
				"a":    "http://example.org/a",
			},
		},
	})
	opts := NewJsonLdOptions("")
	opts.DocumentLoader = loader

	expanded, err := NewJsonLdProcessor().Expand(context.Background(), "http://example.org/doc.jsonld", opts)
	require.NoError(t, err)
	require.Len(t, expanded, 1)
	assert.Equal(t, "http://example.org/relative", expanded[0].(map[string]interface{})["@id"])

	// the document and its context, each fetched once
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestNormalizeProducesCanonicalLabels(t *testing.T) {
	proc := NewJsonLdProcessor()
	opts := NewJsonLdOptions("")
	opts.Format = "application/n-quads"

	doc := map[string]interface{}{
		"@context": map[string]interface{}{"ex": "http://example.org/vocab#"},
		"@id":      "http://example.org/test#example",
		"@type":    "ex:Foo",
		"ex:embed": map[string]interface{}{"@type": "ex:Bar"},
	}

	normalized, err := proc.Normalize(context.Background(), doc, opts)
	require.NoError(t, err)
	assert.Equal(t,
		"<http://example.org/test#example> <http://example.org/vocab#embed> _:c14n0 .\n"+
			"<http://example.org/test#example> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/vocab#Foo> .\n"+
			"_:c14n0 <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/vocab#Bar> .\n",
		normalized)
}

// recordingSerializer keeps the dataset it was asked to serialize.
type recordingSerializer struct {
	dataset *RDFDataset
}

func (s *recordingSerializer) Parse(interface{}) (*RDFDataset, error) {
	return nil, NewJsonLdError(NotImplemented, "recording serializer cannot parse")
}

func (s *recordingSerializer) Serialize(dataset *RDFDataset) (interface{}, error) {
	s.dataset = dataset
	return "recorded", nil
}

func TestNormalizeUsesRequestedSerializer(t *testing.T) {
	proc := NewJsonLdProcessor()
	input, err := ParseNQuads("_:x <http://example.org/p> \"v\" .\n")
	require.NoError(t, err)

	recorder := &recordingSerializer{}
	RegisterRDFSerializer("application/x-recording", recorder)

	opts := NewJsonLdOptions("")
	opts.Format = "application/x-recording"
	out, err := proc.Normalize(context.Background(), input, opts)
	require.NoError(t, err)
	assert.Equal(t, "recorded", out)
	require.NotNil(t, recorder.dataset)
	assert.Equal(t, "_:c14n0", recorder.dataset.GetQuads("@default")[0].Subject.GetValue())

	opts.Format = FormatCayleyNQuads
	out, err = proc.Normalize(context.Background(), input, opts)
	require.NoError(t, err)
	reparsed, err := ParseNQuads(out.(string))
	require.NoError(t, err)
	assert.Equal(t, "_:c14n0", reparsed.GetQuads("@default")[0].Subject.GetValue())
}

func TestNormalizeIgnoresInputLabels(t *testing.T) {
	proc := NewJsonLdProcessor()
	opts := NewJsonLdOptions("")
	opts.Format = "application/n-quads"

	first, err := ParseNQuads("_:x <http://example.org/p> _:y .\n_:y <http://example.org/q> \"v\" .\n")
	require.NoError(t, err)
	second, err := ParseNQuads("_:y <http://example.org/q> \"v\" .\n_:a <http://example.org/p> _:y .\n")
	require.NoError(t, err)

	n1, err := proc.Normalize(context.Background(), first, opts)
	require.NoError(t, err)
	n2, err := proc.Normalize(context.Background(), second, opts)
	require.NoError(t, err)
	assert.Equal(t, n1, n2)
}

func TestFromRDFText(t *testing.T) {
	triples := `
<http://example.com/Subj1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.com/Type> .
<http://example.com/Subj1> <http://example.com/prop1> <http://example.com/Obj1> .
<http://example.com/Subj1> <http://example.com/prop2> "Plain" .
<http://example.com/Subj1> <http://example.com/prop2> "2012-05-12"^^<http://www.w3.org/2001/XMLSchema#date> .
<http://example.com/Subj1> <http://example.com/prop2> "English"@en .
`
	doc, err := NewJsonLdProcessor().FromRDF(context.Background(), triples, nil)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"@id":   "http://example.com/Subj1",
			"@type": []interface{}{"http://example.com/Type"},
			"http://example.com/prop1": []interface{}{
				map[string]interface{}{"@id": "http://example.com/Obj1"},
			},
			"http://example.com/prop2": []interface{}{
				map[string]interface{}{"@value": "Plain"},
				map[string]interface{}{"@type": "http://www.w3.org/2001/XMLSchema#date", "@value": "2012-05-12"},
				map[string]interface{}{"@language": "en", "@value": "English"},
			},
		},
	}, doc)
}

func TestUnknownFormat(t *testing.T) {
	opts := NewJsonLdOptions("")
	opts.Format = "text/turtle"

	_, err := NewJsonLdProcessor().ToRDF(context.Background(), nameDoc(), opts)
	assert.Equal(t, UnknownFormat, ErrorCodeOf(err))

	_, err = NewJsonLdProcessor().FromRDF(context.Background(), "", opts)
	assert.Equal(t, UnknownFormat, ErrorCodeOf(err))
}

func TestCompactWithBrokenContext(t *testing.T) {
	_, err := NewJsonLdProcessor().Compact(context.Background(), nameDoc(), map[string]interface{}{
		"@vocab": true,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, InvalidContextForCompaction, ErrorCodeOf(err))

	var jsonLdErr *JsonLdError
	require.ErrorAs(t, err, &jsonLdErr)
	assert.Equal(t, InvalidVocabMapping, ErrorCodeOf(jsonLdErr.Unwrap()))
}

func TestOptionsAreNotModified(t *testing.T) {
	opts := NewJsonLdOptions("")
	loader := newMapLoader(map[string]interface{}{
		"http://example.org/doc.jsonld": nameDoc(),
	})
	opts.DocumentLoader = loader

	_, err := NewJsonLdProcessor().Expand(context.Background(), "http://example.org/doc.jsonld", opts)
	require.NoError(t, err)
	assert.Equal(t, "", opts.Base)
	assert.Same(t, loader, opts.DocumentLoader)
}

func TestConcurrentExpandLeavesCachedDocumentIntact(t *testing.T) {
	next := DocumentLoaderFunc(func(_ context.Context, _ string) (*RemoteDocument, error) {
		// no DocumentURL, so the processor falls back to the requested IRI
		return &RemoteDocument{Document: map[string]interface{}{
			"@context": map[string]interface{}{"name": "http://schema.org/name"},
			"@id":      "manu",
			"name":     "Manu",
		}}, nil
	})
	cache := NewCachingDocumentLoader(next)

	opts := NewJsonLdOptions("")
	opts.DocumentLoader = cache

	const iri = "http://example.org/people/doc.jsonld"
	var wg sync.WaitGroup
	results := make([][]interface{}, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = NewJsonLdProcessor().Expand(context.Background(), iri, opts)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, []interface{}{
			map[string]interface{}{
				"@id": "http://example.org/people/manu",
				"http://schema.org/name": []interface{}{
					map[string]interface{}{"@value": "Manu"},
				},
			},
		}, results[i])
	}

	cached, err := cache.LoadDocument(context.Background(), iri)
	require.NoError(t, err)
	assert.Equal(t, "", cached.DocumentURL)
}
