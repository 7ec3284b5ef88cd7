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
	"io"
	"sort"
	"strings"
)

// Quad represents an RDF quad. Graph is nil for the default graph.
type Quad struct {
	Subject   Node
	Predicate Node
	Object    Node
	Graph     Node
}

// NewQuad creates a new instance of Quad. An empty graph name or @default
// places the quad in the default graph.
func NewQuad(subject Node, predicate Node, object Node, graph string) *Quad {
	q := &Quad{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
	if graph != "" && graph != "@default" {
		q.Graph = newResource(graph)
	}
	return q
}

// GraphName returns the name of the quad's graph, or @default.
func (q *Quad) GraphName() string {
	if q.Graph == nil {
		return "@default"
	}
	return q.Graph.GetValue()
}

// Equal returns true if this quad is equal to the given quad.
func (q *Quad) Equal(o *Quad) bool {
	if o == nil {
		return false
	}
	if (q.Graph != nil && !q.Graph.Equal(o.Graph)) || (q.Graph == nil && o.Graph != nil) {
		return false
	}
	return q.Subject.Equal(o.Subject) && q.Predicate.Equal(o.Predicate) && q.Object.Equal(o.Object)
}

// RDFDataset holds quads grouped by graph name. The default graph is keyed
// @default and always present; graphs are reported in insertion order.
type RDFDataset struct {
	Graphs map[string][]*Quad

	graphOrder []string
}

// RDFSerializer can serialize and de-serialize RDFDatasets.
type RDFSerializer interface {
	// Parse the input into an RDFDataset.
	Parse(input interface{}) (*RDFDataset, error)

	// Serialize an RDFDataset
	Serialize(dataset *RDFDataset) (interface{}, error)
}

// RDFSerializerTo can serialize RDFDatasets into io.Writer.
type RDFSerializerTo interface {
	SerializeTo(w io.Writer, dataset *RDFDataset) error
}

// NewRDFDataset creates a new instance of RDFDataset.
func NewRDFDataset() *RDFDataset {
	ds := &RDFDataset{
		Graphs: make(map[string][]*Quad),
	}
	ds.ensureGraph("@default")
	return ds
}

func (ds *RDFDataset) ensureGraph(graphName string) {
	if _, found := ds.Graphs[graphName]; !found {
		ds.Graphs[graphName] = make([]*Quad, 0)
		ds.graphOrder = append(ds.graphOrder, graphName)
	}
}

// AddQuad appends a quad to its graph unless the graph already holds an
// equal one.
func (ds *RDFDataset) AddQuad(q *Quad) {
	graphName := q.GraphName()
	ds.ensureGraph(graphName)
	for _, existing := range ds.Graphs[graphName] {
		if existing.Equal(q) {
			return
		}
	}
	ds.Graphs[graphName] = append(ds.Graphs[graphName], q)
}

// GraphNames returns the dataset's graph names, @default first and the rest
// in the order they were added. Graphs assigned directly to Graphs come
// last, sorted by name.
func (ds *RDFDataset) GraphNames() []string {
	names := make([]string, 0, len(ds.Graphs))
	seen := make(map[string]bool, len(ds.Graphs))
	if _, found := ds.Graphs["@default"]; found {
		names = append(names, "@default")
		seen["@default"] = true
	}
	for _, name := range ds.graphOrder {
		if _, found := ds.Graphs[name]; found && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	extra := make([]string, 0)
	for name := range ds.Graphs {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// GetQuads returns a list of quads for the given graph
func (ds *RDFDataset) GetQuads(graphName string) []*Quad {
	return ds.Graphs[graphName]
}

// AllQuads returns the quads of every graph, in graph order.
func (ds *RDFDataset) AllQuads() []*Quad {
	quads := make([]*Quad, 0)
	for _, name := range ds.GraphNames() {
		quads = append(quads, ds.Graphs[name]...)
	}
	return quads
}

// Len returns the total number of quads in the dataset.
func (ds *RDFDataset) Len() int {
	n := 0
	for _, quads := range ds.Graphs {
		n += len(quads)
	}
	return n
}

var (
	first  = NewIRI(RDFFirst)
	rest   = NewIRI(RDFRest)
	nilIRI = NewIRI(RDFNil)
)

// validIRI reports whether iri can appear in an N-Quads IRIREF.
func validIRI(iri string) bool {
	return IsAbsoluteIri(iri) && !IsBlankNodeIdentifier(iri) && !strings.ContainsAny(iri, " <>\"{}|^`\\\t\n\r")
}
