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
	"testing"

	. "github.com/piprate/jsonld-engine/ld"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expandDoc(t *testing.T, doc interface{}) []interface{} {
	t.Helper()
	expanded, err := NewJsonLdProcessor().Expand(context.Background(), doc, NewJsonLdOptions(""))
	require.NoError(t, err)
	return expanded
}

func TestExpand_Values(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]interface{}
		expected []interface{}
	}{
		{
			name: "language tags are lowercased",
			input: map[string]interface{}{
				"http://example.org/p": map[string]interface{}{"@value": "hi", "@language": "EN-US"},
			},
			expected: []interface{}{
				map[string]interface{}{
					"http://example.org/p": []interface{}{
						map[string]interface{}{"@value": "hi", "@language": "en-us"},
					},
				},
			},
		},
		{
			name: "language maps",
			input: map[string]interface{}{
				"@context": map[string]interface{}{
					"label": map[string]interface{}{"@id": "http://example.org/label", "@container": "@language"},
				},
				"label": map[string]interface{}{"en": "Hi", "@none": "plain"},
			},
			expected: []interface{}{
				map[string]interface{}{
					"http://example.org/label": []interface{}{
						map[string]interface{}{"@value": "plain"},
						map[string]interface{}{"@value": "Hi", "@language": "en"},
					},
				},
			},
		},
		{
			name: "index maps",
			input: map[string]interface{}{
				"@context": map[string]interface{}{
					"post": map[string]interface{}{"@id": "http://example.org/post", "@container": "@index"},
				},
				"@id":  "http://example.org/a",
				"post": map[string]interface{}{"en": map[string]interface{}{"@id": "http://example.org/p1"}},
			},
			expected: []interface{}{
				map[string]interface{}{
					"@id": "http://example.org/a",
					"http://example.org/post": []interface{}{
						map[string]interface{}{"@id": "http://example.org/p1", "@index": "en"},
					},
				},
			},
		},
		{
			name: "json literals",
			input: map[string]interface{}{
				"@context": map[string]interface{}{
					"data": map[string]interface{}{"@id": "http://example.org/data", "@type": "@json"},
				},
				"data": map[string]interface{}{"b": 1.0, "a": []interface{}{true}},
			},
			expected: []interface{}{
				map[string]interface{}{
					"http://example.org/data": []interface{}{
						map[string]interface{}{
							"@type":  "@json",
							"@value": map[string]interface{}{"b": 1.0, "a": []interface{}{true}},
						},
					},
				},
			},
		},
		{
			name: "nested lists",
			input: map[string]interface{}{
				"http://example.org/p": map[string]interface{}{
					"@list": []interface{}{[]interface{}{"a"}},
				},
			},
			expected: []interface{}{
				map[string]interface{}{
					"http://example.org/p": []interface{}{
						map[string]interface{}{
							"@list": []interface{}{
								map[string]interface{}{
									"@list": []interface{}{map[string]interface{}{"@value": "a"}},
								},
							},
						},
					},
				},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandDoc(t, tt.input))
		})
	}
}

func TestExpand_NullValueDropsNode(t *testing.T) {
	expanded := expandDoc(t, map[string]interface{}{
		"http://example.org/p": map[string]interface{}{"@value": nil},
	})
	assert.Empty(t, expanded)
}

func TestExpand_Reverse(t *testing.T) {
	doc := map[string]interface{}{
		"@id": "http://example.org/child",
		"@reverse": map[string]interface{}{
			"http://example.org/parent": map[string]interface{}{"@id": "http://example.org/mom"},
		},
	}

	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"@id": "http://example.org/child",
			"@reverse": map[string]interface{}{
				"http://example.org/parent": []interface{}{
					map[string]interface{}{"@id": "http://example.org/mom"},
				},
			},
		},
	}, expandDoc(t, doc))

	// the reverse edge lands on the referenced node
	flattened, err := NewJsonLdProcessor().Flatten(context.Background(), doc, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"@id": "http://example.org/mom",
			"http://example.org/parent": []interface{}{
				map[string]interface{}{"@id": "http://example.org/child"},
			},
		},
	}, flattened)
}

func TestExpand_Nest(t *testing.T) {
	expanded := expandDoc(t, map[string]interface{}{
		"@context": map[string]interface{}{
			"@vocab":  "http://example.org/",
			"details": "@nest",
		},
		"@id":     "http://example.org/a",
		"details": map[string]interface{}{"name": "x"},
	})

	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"@id": "http://example.org/a",
			"http://example.org/name": []interface{}{
				map[string]interface{}{"@value": "x"},
			},
		},
	}, expanded)
}

func TestExpand_TypeScopedContext(t *testing.T) {
	expanded := expandDoc(t, map[string]interface{}{
		"@context": map[string]interface{}{
			"@vocab": "http://example.org/",
			"Person": map[string]interface{}{
				"@context": map[string]interface{}{"name": "http://schema.org/name"},
			},
		},
		"@type": "Person",
		"name":  "x",
	})

	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"@type": []interface{}{"http://example.org/Person"},
			"http://schema.org/name": []interface{}{
				map[string]interface{}{"@value": "x"},
			},
		},
	}, expanded)
}

func TestExpand_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]interface{}
		code  ErrorCode
	}{
		{
			name:  "non-string id",
			input: map[string]interface{}{"@id": 5.0, "http://example.org/p": "x"},
			code:  InvalidIDValue,
		},
		{
			name: "colliding keywords",
			input: map[string]interface{}{
				"@context": map[string]interface{}{"id": "@id"},
				"@id":      "http://example.org/a",
				"id":       "http://example.org/b",
			},
			code: CollidingKeywords,
		},
		{
			name: "typed and language-tagged value",
			input: map[string]interface{}{
				"http://example.org/p": map[string]interface{}{
					"@value": "x", "@type": "http://example.org/t", "@language": "en",
				},
			},
			code: InvalidValueObject,
		},
		{
			name: "blank node datatype",
			input: map[string]interface{}{
				"http://example.org/p": map[string]interface{}{"@value": "x", "@type": "_:t"},
			},
			code: InvalidTypedValue,
		},
		{
			name: "reverse value",
			input: map[string]interface{}{
				"@reverse": "http://example.org/p",
			},
			code: InvalidReverseValue,
		},
		{
			name: "list with extra keys",
			input: map[string]interface{}{
				"http://example.org/p": map[string]interface{}{
					"@list": []interface{}{"a"}, "@id": "http://example.org/l",
				},
			},
			code: InvalidSetOrListObject,
		},
		{
			name: "non-string type",
			input: map[string]interface{}{
				"@type": 3.0,
			},
			code: InvalidTypeValue,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJsonLdProcessor().Expand(context.Background(), tt.input, nil)
			require.Error(t, err)
			assert.Equal(t, tt.code, ErrorCodeOf(err))
		})
	}
}

func TestFlatten_ConflictingIndexes(t *testing.T) {
	doc := []interface{}{
		map[string]interface{}{
			"@id":                  "http://example.org/a",
			"@index":               "one",
			"http://example.org/p": "x",
		},
		map[string]interface{}{
			"@id":    "http://example.org/a",
			"@index": "two",
		},
	}

	flattened, err := NewJsonLdProcessor().Flatten(context.Background(), doc, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"@id":    "http://example.org/a",
			"@index": "one",
			"http://example.org/p": []interface{}{
				map[string]interface{}{"@value": "x"},
			},
		},
	}, flattened)

	opts := NewJsonLdOptions("")
	opts.StrictMerge = true
	_, err = NewJsonLdProcessor().Flatten(context.Background(), doc, nil, opts)
	assert.Equal(t, ConflictingIndexes, ErrorCodeOf(err))
}

func TestFlatten_Included(t *testing.T) {
	flattened, err := NewJsonLdProcessor().Flatten(context.Background(), map[string]interface{}{
		"@id":                  "http://example.org/a",
		"http://example.org/p": "x",
		"@included": []interface{}{
			map[string]interface{}{"@id": "http://example.org/b", "http://example.org/p": "y"},
		},
	}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"@id":                  "http://example.org/a",
			"http://example.org/p": []interface{}{map[string]interface{}{"@value": "x"}},
		},
		map[string]interface{}{
			"@id":                  "http://example.org/b",
			"http://example.org/p": []interface{}{map[string]interface{}{"@value": "y"}},
		},
	}, flattened)
}

func TestFlatten_NamedGraphs(t *testing.T) {
	flattened, err := NewJsonLdProcessor().Flatten(context.Background(), map[string]interface{}{
		"@id": "http://example.org/g",
		"@graph": []interface{}{
			map[string]interface{}{"@id": "http://example.org/s", "http://example.org/p": "v"},
		},
	}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"@id": "http://example.org/g",
			"@graph": []interface{}{
				map[string]interface{}{
					"@id":                  "http://example.org/s",
					"http://example.org/p": []interface{}{map[string]interface{}{"@value": "v"}},
				},
			},
		},
	}, flattened)
}
