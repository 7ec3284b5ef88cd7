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
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
)

// DatasetToQuads converts a dataset into Cayley quads, graph by graph.
func DatasetToQuads(dataset *RDFDataset) []quad.Quad {
	quads := make([]quad.Quad, 0, dataset.Len())
	for _, q := range dataset.AllQuads() {
		cq := quad.Quad{
			Subject:   nodeToValue(q.Subject),
			Predicate: nodeToValue(q.Predicate),
			Object:    nodeToValue(q.Object),
		}
		if q.Graph != nil {
			cq.Label = nodeToValue(q.Graph)
		}
		quads = append(quads, cq)
	}
	return quads
}

// DatasetFromQuads builds a dataset from Cayley quads. A quad without a
// label goes to the default graph.
func DatasetFromQuads(quads []quad.Quad) (*RDFDataset, error) {
	dataset := NewRDFDataset()
	for _, cq := range quads {
		subject, err := valueToNode(cq.Subject)
		if err != nil {
			return nil, err
		}
		predicate, err := valueToNode(cq.Predicate)
		if err != nil {
			return nil, err
		}
		object, err := valueToNode(cq.Object)
		if err != nil {
			return nil, err
		}
		graphName := "@default"
		if cq.Label != nil {
			label, err := valueToNode(cq.Label)
			if err != nil {
				return nil, err
			}
			graphName = label.GetValue()
		}
		dataset.AddQuad(NewQuad(subject, predicate, object, graphName))
	}
	return dataset, nil
}

func nodeToValue(n Node) quad.Value {
	switch v := n.(type) {
	case *IRI:
		return quad.IRI(v.Value)
	case *BlankNode:
		return quad.BNode(strings.TrimPrefix(v.Attribute, "_:"))
	case *Literal:
		switch v.Datatype {
		case XSDString:
			return quad.String(v.Value)
		case RDFLangString:
			return quad.LangString{Value: quad.String(v.Value), Lang: v.Language}
		default:
			return quad.TypedString{Value: quad.String(v.Value), Type: quad.IRI(v.Datatype)}
		}
	}
	return nil
}

func valueToNode(v quad.Value) (Node, error) {
	switch val := v.(type) {
	case quad.IRI:
		return NewIRI(string(val)), nil
	case quad.BNode:
		return NewBlankNode("_:" + string(val)), nil
	case quad.String:
		return NewLiteral(string(val), XSDString, ""), nil
	case quad.LangString:
		return NewLiteral(string(val.Value), RDFLangString, val.Lang), nil
	case quad.TypedString:
		return NewLiteral(string(val.Value), string(val.Type), ""), nil
	case quad.Int:
		return NewLiteral(strconv.FormatInt(int64(val), 10), XSDInteger, ""), nil
	case quad.Float:
		return NewLiteral(GetCanonicalDouble(float64(val)), XSDDouble, ""), nil
	case quad.Bool:
		return NewLiteral(strconv.FormatBool(bool(val)), XSDBoolean, ""), nil
	case quad.Time:
		return NewLiteral(time.Time(val).UTC().Format(time.RFC3339Nano), XSDNS+"dateTime", ""), nil
	case nil:
		return nil, NewJsonLdError(InvalidInput, "quad has an empty term")
	default:
		return nil, NewJsonLdError(InvalidInput, fmt.Sprintf("unsupported quad value %T", v))
	}
}

// CayleyNQuadRDFSerializer reads and writes N-Quads through the Cayley
// N-Quads codec.
type CayleyNQuadRDFSerializer struct {
}

// Parse N-Quads from a string, []byte or io.Reader into an RDFDataset.
func (s *CayleyNQuadRDFSerializer) Parse(input interface{}) (*RDFDataset, error) {
	var r io.Reader
	switch inp := input.(type) {
	case string:
		r = strings.NewReader(inp)
	case []byte:
		r = bytes.NewReader(inp)
	case io.Reader:
		r = inp
	default:
		return nil, NewJsonLdError(InvalidInput, "expected []byte, string or io.Reader")
	}

	// typed literals of known XSD types decode to native quad values
	reader := nquads.NewReader(r, false)
	quads := make([]quad.Quad, 0)
	for {
		q, err := reader.ReadQuad()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, NewJsonLdError(SyntaxError, err)
		}
		quads = append(quads, q)
	}
	return DatasetFromQuads(quads)
}

// SerializeTo writes the dataset as N-Quads into w.
func (s *CayleyNQuadRDFSerializer) SerializeTo(w io.Writer, dataset *RDFDataset) error {
	writer := nquads.NewWriter(w)
	if _, err := writer.WriteQuads(DatasetToQuads(dataset)); err != nil {
		return NewJsonLdError(IOError, err)
	}
	if err := writer.Close(); err != nil {
		return NewJsonLdError(IOError, err)
	}
	return nil
}

// Serialize an RDFDataset into an N-Quads string.
func (s *CayleyNQuadRDFSerializer) Serialize(dataset *RDFDataset) (interface{}, error) {
	var buf bytes.Buffer
	if err := s.SerializeTo(&buf, dataset); err != nil {
		return nil, err
	}
	return buf.String(), nil
}
