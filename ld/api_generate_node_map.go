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
	"strings"
)

// NodeMap maps graph names to subject identifiers to flattened node
// objects. Graph names and subjects are kept in insertion order; the default
// graph (@default) always exists.
type NodeMap struct {
	graphs       map[string]map[string]interface{}
	graphOrder   []string
	subjectOrder map[string][]string

	// issuer labelled the map's blank nodes; RDF conversion continues it
	issuer *IdentifierIssuer
}

// NewNodeMap creates a node map holding an empty default graph.
func NewNodeMap() *NodeMap {
	nm := &NodeMap{
		graphs:       make(map[string]map[string]interface{}),
		subjectOrder: make(map[string][]string),
	}
	nm.ensureGraph("@default")
	return nm
}

func (nm *NodeMap) ensureGraph(name string) map[string]interface{} {
	graph, found := nm.graphs[name]
	if !found {
		graph = make(map[string]interface{})
		nm.graphs[name] = graph
		nm.graphOrder = append(nm.graphOrder, name)
	}
	return graph
}

// subject returns the node for id in graph, creating it if needed.
func (nm *NodeMap) subject(graphName string, id string) map[string]interface{} {
	graph := nm.ensureGraph(graphName)
	if node, found := graph[id]; found {
		return node.(map[string]interface{})
	}
	node := map[string]interface{}{"@id": id}
	graph[id] = node
	nm.subjectOrder[graphName] = append(nm.subjectOrder[graphName], id)
	return node
}

// HasGraph returns true if the node map contains a graph with the given name.
func (nm *NodeMap) HasGraph(name string) bool {
	_, found := nm.graphs[name]
	return found
}

// Graph returns the nodes of a graph keyed by subject identifier, or nil.
func (nm *NodeMap) Graph(name string) map[string]interface{} {
	return nm.graphs[name]
}

// GraphNames returns the graph names in insertion order, @default first.
func (nm *NodeMap) GraphNames() []string {
	return nm.graphOrder
}

// Subjects returns the subject identifiers of a graph in insertion order.
func (nm *NodeMap) Subjects(graphName string) []string {
	return nm.subjectOrder[graphName]
}

// Node returns the node with the given identifier in a graph, or nil.
func (nm *NodeMap) Node(graphName string, id string) map[string]interface{} {
	node, _ := nm.graphs[graphName][id].(map[string]interface{})
	return node
}

// GenerateNodeMap recursively flattens the subjects in the given JSON-LD expanded
// input into a node map. Blank node identifiers are relabelled by issuer.
// See https://www.w3.org/TR/json-ld11-api/#node-map-generation
func (api *JsonLdApi) GenerateNodeMap(input interface{}, nodeMap *NodeMap, issuer *IdentifierIssuer,
	opts *JsonLdOptions) error {
	if nodeMap.issuer == nil {
		nodeMap.issuer = issuer
	}
	return api.generateNodeMap(input, nodeMap, "@default", issuer, "", nil, opts)
}

// generateNodeMap adds input to activeGraph. If list is not nil, input is
// a list member and its values or references are appended to it.
func (api *JsonLdApi) generateNodeMap(input interface{}, nodeMap *NodeMap, activeGraph string,
	issuer *IdentifierIssuer, name string, list *[]interface{}, opts *JsonLdOptions) error {

	// recurse through array
	if elementList, isList := input.([]interface{}); isList {
		for _, item := range elementList {
			if err := api.generateNodeMap(item, nodeMap, activeGraph, issuer, "", list, opts); err != nil {
				return err
			}
		}
		return nil
	}

	// add non-object to list
	elem, isMap := input.(map[string]interface{})
	if !isMap {
		if list != nil {
			*list = append(*list, input)
		}
		return nil
	}

	// add values to list
	if IsValue(elem) {
		if typeStr, hasType := elem["@type"].(string); hasType && IsBlankNodeIdentifier(typeStr) {
			// relabel @type blank node
			elem["@type"] = issuer.GetId(typeStr)
		}
		if list != nil {
			*list = append(*list, elem)
		}
		return nil
	} else if list != nil && IsList(elem) {
		nested := make([]interface{}, 0)
		if err := api.generateNodeMap(elem["@list"], nodeMap, activeGraph, issuer, name, &nested, opts); err != nil {
			return err
		}
		*list = append(*list, map[string]interface{}{"@list": nested})
		return nil
	}

	// Note: At this point, input must be a subject.

	// @type blank nodes are labelled first
	for _, t := range Arrayify(elem["@type"]) {
		if typeStr, isString := t.(string); isString && IsBlankNodeIdentifier(typeStr) {
			issuer.GetId(typeStr)
		}
	}

	// get identifier for subject
	if name == "" {
		if idVal, hasID := elem["@id"]; hasID {
			id, isString := idVal.(string)
			if !isString {
				return NewJsonLdError(InvalidIDValue, fmt.Sprintf("@id must be a string, got %v", idVal))
			}
			name = id
		}
		if IsBlankNodeValue(elem) {
			name = issuer.GetId(name)
		}
	}

	// add subject reference to list
	if list != nil {
		*list = append(*list, map[string]interface{}{"@id": name})
	}

	// create new subject or merge into existing one
	subject := nodeMap.subject(activeGraph, name)

	for _, property := range GetOrderedKeys(elem) {
		value := elem[property]

		switch property {
		case "@id":
			continue

		case "@reverse":
			referencedNode := map[string]interface{}{"@id": name}
			reverseMap, _ := value.(map[string]interface{})
			for _, reverseProperty := range GetOrderedKeys(reverseMap) {
				for _, item := range Arrayify(reverseMap[reverseProperty]) {
					itemMap, isMap := item.(map[string]interface{})
					if !isMap {
						continue
					}
					itemName, _ := itemMap["@id"].(string)
					if IsBlankNodeValue(itemMap) {
						itemName = issuer.GetId(itemName)
					}
					if err := api.generateNodeMap(itemMap, nodeMap, activeGraph, issuer, itemName, nil, opts); err != nil {
						return err
					}
					AddValue(nodeMap.subject(activeGraph, itemName), reverseProperty, referencedNode, true, false, false, false)
				}
			}
			continue

		case "@graph":
			nodeMap.ensureGraph(name)
			if err := api.generateNodeMap(value, nodeMap, name, issuer, "", nil, opts); err != nil {
				return err
			}
			continue

		case "@included":
			if err := api.generateNodeMap(value, nodeMap, activeGraph, issuer, "", nil, opts); err != nil {
				return err
			}
			continue

		case "@index":
			if existing, present := subject["@index"]; present && !DeepCompare(existing, value, true) {
				if opts != nil && opts.StrictMerge {
					return NewJsonLdError(ConflictingIndexes,
						fmt.Sprintf("node %s has conflicting indexes %v and %v", name, existing, value))
				}
				// the first index wins
				continue
			}
			subject["@index"] = value
			continue
		}

		if property != "@type" && IsKeyword(property) {
			subject[property] = value
			continue
		}

		// blank node property labels are relabelled too
		if IsBlankNodeIdentifier(property) {
			property = issuer.GetId(property)
		}

		objects := Arrayify(value)
		if len(objects) == 0 {
			AddValue(subject, property, []interface{}{}, true, false, true, false)
			continue
		}

		for _, o := range objects {
			if property == "@type" {
				if typeStr, isString := o.(string); isString && strings.HasPrefix(typeStr, "_:") {
					o = issuer.GetId(typeStr)
				}
				AddValue(subject, property, o, true, false, false, false)
				continue
			}

			switch {
			case IsSubject(o) || IsSubjectReference(o):
				oMap := o.(map[string]interface{})
				if idVal, hasID := oMap["@id"]; hasID && idVal == nil {
					continue
				}
				id, _ := oMap["@id"].(string)
				if IsBlankNodeValue(oMap) {
					id = issuer.GetId(id)
				}
				AddValue(subject, property, map[string]interface{}{"@id": id}, true, false, false, false)
				if err := api.generateNodeMap(oMap, nodeMap, activeGraph, issuer, id, nil, opts); err != nil {
					return err
				}
			case IsValue(o):
				AddValue(subject, property, o, true, false, false, false)
			case IsList(o):
				nested := make([]interface{}, 0)
				listValue := o.(map[string]interface{})["@list"]
				if err := api.generateNodeMap(listValue, nodeMap, activeGraph, issuer, name, &nested, opts); err != nil {
					return err
				}
				AddValue(subject, property, map[string]interface{}{"@list": nested}, true, false, false, false)
			default:
				// a graph object or other keyword-only object
				if err := api.generateNodeMap(o, nodeMap, activeGraph, issuer, name, nil, opts); err != nil {
					return err
				}
				AddValue(subject, property, o, true, false, false, false)
			}
		}
	}

	return nil
}
