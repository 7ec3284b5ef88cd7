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

const (
	rdfFirst = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#first>"
	rdfRest  = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#rest>"
	rdfNil   = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#nil>"
)

func fromRDF(input string, strict bool) (interface{}, error) {
	opts := NewJsonLdOptions("")
	opts.StrictLists = strict
	return NewJsonLdProcessor().FromRDF(context.Background(), input, opts)
}

func TestFromRDF_StrictListsAcceptsWellFormedLists(t *testing.T) {
	input := "<http://example.org/s> <http://example.org/p> _:l1 .\n" +
		"_:l1 " + rdfFirst + " \"a\" .\n" +
		"_:l1 " + rdfRest + " _:l2 .\n" +
		"_:l2 " + rdfFirst + " \"b\" .\n" +
		"_:l2 " + rdfRest + " " + rdfNil + " .\n"

	doc, err := fromRDF(input, true)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"@id": "http://example.org/s",
			"http://example.org/p": []interface{}{
				map[string]interface{}{"@list": []interface{}{
					map[string]interface{}{"@value": "a"},
					map[string]interface{}{"@value": "b"},
				}},
			},
		},
	}, doc)
}

func TestFromRDF_MalformedLists(t *testing.T) {
	tests := map[string]string{
		"cycle": "_:l1 " + rdfFirst + " \"a\" .\n" +
			"_:l1 " + rdfRest + " _:l2 .\n" +
			"_:l2 " + rdfFirst + " \"b\" .\n" +
			"_:l2 " + rdfRest + " _:l1 .\n",
		"terminated by an IRI": "<http://example.org/s> <http://example.org/p> _:l1 .\n" +
			"_:l1 " + rdfFirst + " \"a\" .\n" +
			"_:l1 " + rdfRest + " <http://example.org/end> .\n",
		"extra property": "<http://example.org/s> <http://example.org/p> _:l1 .\n" +
			"_:l1 " + rdfFirst + " \"a\" .\n" +
			"_:l1 <http://example.org/extra> \"x\" .\n" +
			"_:l1 " + rdfRest + " " + rdfNil + " .\n",
	}

	for name, input := range tests {
		name, input := name, input
		t.Run(name, func(t *testing.T) {
			_, err := fromRDF(input, true)
			assert.Equal(t, InvalidRDFList, ErrorCodeOf(err))

			// without strict lists the chain stays as ordinary nodes
			doc, err := fromRDF(input, false)
			require.NoError(t, err)
			assert.NotEmpty(t, doc)
		})
	}
}

func TestFromRDF_CyclicListKeptAsNodes(t *testing.T) {
	doc, err := fromRDF("_:l1 "+rdfFirst+" \"a\" .\n"+
		"_:l1 "+rdfRest+" _:l2 .\n"+
		"_:l2 "+rdfFirst+" \"b\" .\n"+
		"_:l2 "+rdfRest+" _:l1 .\n", false)
	require.NoError(t, err)

	nodes := doc.([]interface{})
	require.Len(t, nodes, 2)
	assert.Equal(t, "_:l1", nodes[0].(map[string]interface{})["@id"])
	assert.Equal(t, "_:l2", nodes[1].(map[string]interface{})["@id"])
}
