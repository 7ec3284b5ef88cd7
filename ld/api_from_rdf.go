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
	"fmt"
	"sort"
)

// nodeUsage records the subject, property and value object through which a
// node is referenced.
type nodeUsage struct {
	node     *rdfNode
	property string
	value    map[string]interface{}
}

// rdfNode is a node object under construction. usages is only tracked for
// rdf:nil.
type rdfNode struct {
	values map[string]interface{}
	usages []*nodeUsage
}

func newRDFNode(id string) *rdfNode {
	return &rdfNode{values: map[string]interface{}{"@id": id}}
}

func (n *rdfNode) id() string {
	id, _ := n.values["@id"].(string)
	return id
}

// isWellFormedListNode returns true if the node has exactly one rdf:first
// and one rdf:rest value, and optionally an rdf:List type, and nothing else.
func (n *rdfNode) isWellFormedListNode() bool {
	keys := 1 // @id
	for _, property := range []string{RDFFirst, RDFRest} {
		v, present := n.values[property]
		if !present {
			return false
		}
		if vList, isList := v.([]interface{}); !isList || len(vList) != 1 {
			return false
		}
		keys++
	}
	if v, containsType := n.values["@type"]; containsType {
		vList, isList := v.([]interface{})
		if !isList || len(vList) != 1 || vList[0] != RDFList {
			return false
		}
		keys++
	}
	return keys == len(n.values)
}

// rdfGraph is a graph of nodes keyed by subject, with subjects kept in the
// order they were first seen.
type rdfGraph struct {
	nodes map[string]*rdfNode
	order []string
}

func newRDFGraph() *rdfGraph {
	return &rdfGraph{nodes: make(map[string]*rdfNode)}
}

func (g *rdfGraph) node(id string) *rdfNode {
	n, present := g.nodes[id]
	if !present {
		n = newRDFNode(id)
		g.nodes[id] = n
		g.order = append(g.order, id)
	}
	return n
}

// sortedIDs returns the subjects that are still present, sorted.
func (g *rdfGraph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for _, id := range g.order {
		if _, present := g.nodes[id]; present {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// FromRDF converts RDF statements into JSON-LD.
// Returns a list of JSON-LD objects found in the given dataset.
// See https://www.w3.org/TR/json-ld11-api/#serialize-rdf-as-json-ld-algorithm
func (api *JsonLdApi) FromRDF(dataset *RDFDataset, opts *JsonLdOptions) ([]interface{}, error) {
	defaultGraph := newRDFGraph()
	graphMap := map[string]*rdfGraph{"@default": defaultGraph}

	// a nil entry marks a node referenced more than once
	referencedOnce := make(map[string]*nodeUsage)

	graphNames := dataset.GraphNames()
	if opts.Ordered {
		sort.Strings(graphNames)
	}

	for _, name := range graphNames {
		graph, present := graphMap[name]
		if !present {
			graph = newRDFGraph()
			graphMap[name] = graph
		}

		if name != "@default" {
			defaultGraph.node(name)
		}

		for _, triple := range dataset.Graphs[name] {
			subject := triple.Subject.GetValue()
			predicate := triple.Predicate.GetValue()
			object := triple.Object

			node := graph.node(subject)

			isResource := IsIRI(object) || IsBlankNode(object)
			if isResource {
				graph.node(object.GetValue())
			}

			if predicate == RDFType && isResource && !opts.UseRdfType {
				AddValue(node.values, "@type", object.GetValue(), true, false, false, false)
				continue
			}

			value, err := RdfToObject(object, opts.UseNativeTypes, opts.RdfDirection)
			if err != nil {
				return nil, err
			}
			AddValue(node.values, predicate, value, true, false, false, false)

			if !isResource {
				continue
			}
			objectID := object.GetValue()
			if objectID == RDFNil {
				nilNode := graph.node(RDFNil)
				nilNode.usages = append(nilNode.usages, &nodeUsage{node: node, property: predicate, value: value})
			} else if _, seen := referencedOnce[objectID]; seen {
				referencedOnce[objectID] = nil
			} else {
				referencedOnce[objectID] = &nodeUsage{node: node, property: predicate, value: value}
			}
		}
	}

	names := make([]string, 0, len(graphMap))
	for name := range graphMap {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := collapseLists(graphMap[name], referencedOnce, opts.StrictLists); err != nil {
			return nil, err
		}
	}

	result := make([]interface{}, 0)
	for _, subject := range defaultGraph.sortedIDs() {
		node := defaultGraph.nodes[subject]
		if subjectGraph, isGraphName := graphMap[subject]; isGraphName && subject != "@default" {
			graph := make([]interface{}, 0)
			for _, id := range subjectGraph.sortedIDs() {
				n := subjectGraph.nodes[id]
				if len(n.values) == 1 {
					continue
				}
				graph = append(graph, n.values)
			}
			node.values["@graph"] = graph
		}
		if len(node.values) == 1 {
			continue
		}
		result = append(result, node.values)
	}

	return result, nil
}

// collapseLists turns well-formed rdf:first/rdf:rest chains ending in
// rdf:nil into @list values. With strict set, a chain broken by a node that
// is not a singly referenced, well-formed blank list node fails with
// InvalidRDFList, as does any list node left over once the chains ending in
// rdf:nil are collapsed (cycles and chains ending elsewhere). Otherwise the
// broken part stays as ordinary nodes.
func collapseLists(graph *rdfGraph, referencedOnce map[string]*nodeUsage, strict bool) error {
	nilNode, present := graph.nodes[RDFNil]
	if !present {
		return checkNoListNodes(graph, strict)
	}

	for _, usage := range nilNode.usages {
		node := usage.node
		property := usage.property
		head := usage.value
		list := make([]interface{}, 0)
		listNodes := make([]string, 0)

		for property == RDFRest {
			usedBy := referencedOnce[node.id()]
			if !IsBlankNodeValue(node.values) || usedBy == nil || !node.isWellFormedListNode() {
				if strict {
					return NewJsonLdError(InvalidRDFList,
						fmt.Sprintf("list node %s is not a well-formed list node", node.id()))
				}
				break
			}

			list = append(list, node.values[RDFFirst].([]interface{})[0])
			listNodes = append(listNodes, node.id())

			node = usedBy.node
			property = usedBy.property
			head = usedBy.value
		}

		delete(head, "@id")
		for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
			list[i], list[j] = list[j], list[i]
		}
		head["@list"] = list
		for _, nodeID := range listNodes {
			delete(graph.nodes, nodeID)
		}
	}
	return checkNoListNodes(graph, strict)
}

func checkNoListNodes(graph *rdfGraph, strict bool) error {
	if !strict {
		return nil
	}
	for _, id := range graph.sortedIDs() {
		values := graph.nodes[id].values
		_, hasFirst := values[RDFFirst]
		_, hasRest := values[RDFRest]
		if hasFirst || hasRest {
			return NewJsonLdError(InvalidRDFList,
				fmt.Sprintf("list node %s is not part of a list ending in rdf:nil", id))
		}
	}
	return nil
}
