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
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cayleygraph/quad"
	. "github.com/piprate/jsonld-engine/ld"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNQuads = `# a comment
<http://example.org/s> <http://example.org/p> "line\nbreak \"quoted\"" .
<http://example.org/s> <http://example.org/p> "chat"@fr <http://example.org/g> .
_:b0 <http://example.org/p> "5"^^<http://www.w3.org/2001/XMLSchema#integer> _:g1 .
<http://example.org/s> <http://example.org/p> _:b0 .
<http://example.org/s> <http://example.org/p> _:b0 .

`

func TestParseNQuads(t *testing.T) {
	dataset, err := ParseNQuads(sampleNQuads)
	require.NoError(t, err)

	// the duplicate statement is dropped
	assert.Equal(t, 4, dataset.Len())
	assert.Equal(t, []string{"@default", "http://example.org/g", "_:g1"}, dataset.GraphNames())

	defaultGraph := dataset.GetQuads("@default")
	require.Len(t, defaultGraph, 2)
	assert.True(t, defaultGraph[0].Object.Equal(NewLiteral("line\nbreak \"quoted\"", XSDString, "")))
	assert.True(t, IsBlankNode(defaultGraph[1].Object))

	named := dataset.GetQuads("http://example.org/g")
	require.Len(t, named, 1)
	assert.True(t, named[0].Object.Equal(NewLiteral("chat", RDFLangString, "fr")))
	assert.Equal(t, "http://example.org/g", named[0].GraphName())

	blankGraph := dataset.GetQuads("_:g1")
	require.Len(t, blankGraph, 1)
	assert.True(t, blankGraph[0].Object.Equal(NewLiteral("5", XSDInteger, "")))
}

func TestParseNQuads_Errors(t *testing.T) {
	for _, input := range []string{
		"<http://example.org/s> <http://example.org/p> .\n",
		"<http://example.org/s> <http://example.org/p> \"unterminated .\n",
		"<http://example.org/s> <http://example.org/p> \"bad \\q escape\" .\n",
		"not a quad\n",
	} {
		input := input
		t.Run(strings.TrimSpace(input), func(t *testing.T) {
			_, err := ParseNQuads(input)
			assert.Equal(t, SyntaxError, ErrorCodeOf(err))
		})
	}

	_, err := ParseNQuadsFrom(42)
	assert.Equal(t, InvalidInput, ErrorCodeOf(err))
}

func TestNQuadRDFSerializer_RoundTrip(t *testing.T) {
	dataset, err := ParseNQuads(sampleNQuads)
	require.NoError(t, err)

	serializer := &NQuadRDFSerializer{}
	out, err := serializer.Serialize(dataset)
	require.NoError(t, err)

	assert.Equal(t,
		"<http://example.org/s> <http://example.org/p> \"line\\nbreak \\\"quoted\\\"\" .\n"+
			"<http://example.org/s> <http://example.org/p> _:b0 .\n"+
			"<http://example.org/s> <http://example.org/p> \"chat\"@fr <http://example.org/g> .\n"+
			"_:b0 <http://example.org/p> \"5\"^^<http://www.w3.org/2001/XMLSchema#integer> _:g1 .\n",
		out)

	reparsed, err := serializer.Parse([]byte(out.(string)))
	require.NoError(t, err)
	assert.Equal(t, dataset.Len(), reparsed.Len())
	for _, name := range dataset.GraphNames() {
		original := dataset.GetQuads(name)
		again := reparsed.GetQuads(name)
		require.Len(t, again, len(original))
		for i := range original {
			assert.True(t, original[i].Equal(again[i]))
		}
	}
}

func TestNQuadRDFSerializer_EscapesIRIs(t *testing.T) {
	dataset := NewRDFDataset()
	dataset.AddQuad(NewQuad(
		NewIRI("http://example.org/a b"),
		NewIRI("http://example.org/p"),
		NewLiteral("tab\there", XSDString, ""),
		"",
	))

	var buf bytes.Buffer
	require.NoError(t, (&NQuadRDFSerializer{}).SerializeTo(&buf, dataset))
	assert.Equal(t, "<http://example.org/a\\u0020b> <http://example.org/p> \"tab\\there\" .\n", buf.String())

	reparsed, err := ParseNQuadsFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/a b", reparsed.GetQuads("@default")[0].Subject.GetValue())
}

func TestCayleyBridge(t *testing.T) {
	dataset, err := ParseNQuads(sampleNQuads)
	require.NoError(t, err)

	quads := DatasetToQuads(dataset)
	require.Len(t, quads, 4)
	assert.Equal(t, quad.IRI("http://example.org/s"), quads[0].Subject)
	assert.Equal(t, quad.String("line\nbreak \"quoted\""), quads[0].Object)
	assert.Nil(t, quads[0].Label)
	assert.Equal(t, quad.LangString{Value: "chat", Lang: "fr"}, quads[2].Object)
	assert.Equal(t, quad.IRI("http://example.org/g"), quads[2].Label)
	assert.Equal(t, quad.BNode("b0"), quads[3].Subject)

	back, err := DatasetFromQuads(quads)
	require.NoError(t, err)
	assert.Equal(t, dataset.Len(), back.Len())
	assert.Equal(t, dataset.GraphNames(), back.GraphNames())

	native, err := DatasetFromQuads([]quad.Quad{
		quad.Make(quad.IRI("http://example.org/s"), quad.IRI("http://example.org/n"), quad.Int(7), nil),
		quad.Make(quad.IRI("http://example.org/s"), quad.IRI("http://example.org/b"), quad.Bool(true), nil),
	})
	require.NoError(t, err)
	objects := native.GetQuads("@default")
	require.Len(t, objects, 2)
	assert.True(t, objects[0].Object.Equal(NewLiteral("7", XSDInteger, "")))
	assert.True(t, objects[1].Object.Equal(NewLiteral("true", XSDBoolean, "")))

	_, err = DatasetFromQuads([]quad.Quad{{Subject: quad.IRI("http://example.org/s")}})
	assert.Equal(t, InvalidInput, ErrorCodeOf(err))
}

func TestCayleyNQuadRDFSerializer(t *testing.T) {
	proc := NewJsonLdProcessor()
	opts := NewJsonLdOptions("")
	opts.Format = FormatCayleyNQuads

	input := "<http://example.org/s> <http://example.org/name> \"Manu\" .\n" +
		"<http://example.org/s> <http://example.org/knows> <http://example.org/o> <http://example.org/g> .\n"

	doc, err := proc.FromRDF(context.Background(), input, opts)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"@id": "http://example.org/g",
			"@graph": []interface{}{
				map[string]interface{}{
					"@id": "http://example.org/s",
					"http://example.org/knows": []interface{}{
						map[string]interface{}{"@id": "http://example.org/o"},
					},
				},
			},
		},
		map[string]interface{}{
			"@id": "http://example.org/s",
			"http://example.org/name": []interface{}{
				map[string]interface{}{"@value": "Manu"},
			},
		},
	}, doc)

	out, err := proc.ToRDF(context.Background(), doc, opts)
	require.NoError(t, err)
	reparsed, err := ParseNQuads(out.(string))
	require.NoError(t, err)
	assert.Equal(t, 2, reparsed.Len())
}

func TestRegisterRDFSerializer(t *testing.T) {
	RegisterRDFSerializer("application/x-test-nquads", &NQuadRDFSerializer{})

	opts := NewJsonLdOptions("")
	opts.Format = "application/x-test-nquads"
	out, err := NewJsonLdProcessor().ToRDF(context.Background(), nameDoc(), opts)
	require.NoError(t, err)
	assert.Equal(t, "_:b0 <http://schema.org/name> \"Manu\" .\n", out)
}

func BenchmarkParseNQuads(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sb, "<http://example.org/s%d> <http://example.org/p> \"value %d\" .\n", i, i)
		fmt.Fprintf(&sb, "_:b%d <http://example.org/q> <http://example.org/s%d> <http://example.org/g> .\n", i, i)
	}
	data := []byte(sb.String())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := ParseNQuadsFrom(data)
		require.NoError(b, err)
	}
}
