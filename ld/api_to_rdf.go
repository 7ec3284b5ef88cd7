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
	"log/slog"
	"sort"
)

// ToRDF adds RDF triples for each graph in the given node map to an RDF dataset.
// Subjects, predicates and objects that can't be represented in RDF are
// dropped with a warning.
// See https://www.w3.org/TR/json-ld11-api/#deserialize-json-ld-to-rdf-algorithm
func (api *JsonLdApi) ToRDF(nodeMap *NodeMap, opts *JsonLdOptions) (*RDFDataset, error) {
	issuer := nodeMap.issuer
	if issuer == nil {
		issuer = NewIdentifierIssuer("_:b")
	}

	conv := &rdfConverter{
		dataset: NewRDFDataset(),
		issuer:  issuer,
		opts:    opts,
		log:     opts.logger(),
	}

	graphNames := append([]string(nil), nodeMap.GraphNames()...)
	if opts.Ordered {
		sort.Strings(graphNames)
	}

	for _, graphName := range graphNames {
		if graphName != "@default" {
			if IsBlankNodeIdentifier(graphName) {
				if !opts.ProduceGeneralizedRdf {
					conv.log.Warn("dropping blank node graph", "graph", graphName)
					continue
				}
			} else if !validIRI(graphName) {
				conv.log.Warn("dropping graph with invalid name", "graph", graphName)
				continue
			}
		}
		if err := conv.graphToRDF(nodeMap, graphName); err != nil {
			return nil, err
		}
	}

	return conv.dataset, nil
}

type rdfConverter struct {
	dataset *RDFDataset
	issuer  *IdentifierIssuer
	opts    *JsonLdOptions
	log     *slog.Logger
}

// graphToRDF emits the triples of one graph of the node map.
func (conv *rdfConverter) graphToRDF(nodeMap *NodeMap, graphName string) error {
	conv.dataset.ensureGraph(graphName)

	ids := append([]string(nil), nodeMap.Subjects(graphName)...)
	if conv.opts.Ordered {
		sort.Strings(ids)
	}

	for _, id := range ids {
		if !IsBlankNodeIdentifier(id) && !validIRI(id) {
			conv.log.Warn("dropping node with relative or invalid IRI", "id", id, "graph", graphName)
			continue
		}
		subject := newResource(id)
		node := nodeMap.Node(graphName, id)

		for _, property := range GetOrderedKeys(node) {
			predicateIRI := property
			switch {
			case property == "@type":
				predicateIRI = RDFType
			case IsKeyword(property):
				continue
			case IsBlankNodeIdentifier(property):
				if !conv.opts.ProduceGeneralizedRdf {
					conv.log.Warn("dropping blank node predicate", "predicate", property, "subject", id)
					continue
				}
			case !validIRI(property):
				conv.log.Warn("dropping relative or invalid predicate", "predicate", property, "subject", id)
				continue
			}
			predicate := newResource(predicateIRI)

			for _, item := range Arrayify(node[property]) {
				if property == "@type" {
					item = map[string]interface{}{"@id": item}
				}
				object, err := conv.objectToRDF(item, graphName)
				if err != nil {
					return err
				}
				if object != nil {
					conv.emit(NewQuad(subject, predicate, object, graphName))
				}
			}
		}
	}
	return nil
}

func (conv *rdfConverter) emit(q *Quad) {
	graphName := q.GraphName()
	conv.dataset.Graphs[graphName] = append(conv.dataset.Graphs[graphName], q)
}

// objectToRDF converts a node reference, value object or list object to an
// RDF term. A nil node means the value can't be represented and is dropped.
// See https://www.w3.org/TR/json-ld11-api/#object-to-rdf-conversion
func (conv *rdfConverter) objectToRDF(item interface{}, graphName string) (Node, error) {
	itemMap, isMap := item.(map[string]interface{})
	if !isMap {
		return nil, nil
	}

	switch {
	case IsValue(itemMap):
		if lang, hasLanguage := itemMap["@language"].(string); hasLanguage && !wellFormedLanguage(lang) {
			conv.log.Warn("dropping literal with ill-formed language tag", "language", lang)
			return nil, nil
		}
		if datatype, hasType := itemMap["@type"].(string); hasType && datatype != "@json" && !validIRI(datatype) {
			return nil, NewJsonLdError(InvalidTypedValue, fmt.Sprintf("datatype %q is not an absolute IRI", datatype))
		}
		literal, err := valueToLiteral(itemMap, conv.opts.RdfDirection)
		if err != nil {
			return nil, err
		}
		return literal, nil

	case IsList(itemMap):
		list, _ := itemMap["@list"].([]interface{})
		return conv.listToRDF(list, graphName)
	}

	id, _ := itemMap["@id"].(string)
	if IsBlankNodeIdentifier(id) {
		return NewBlankNode(id), nil
	}
	if !validIRI(id) {
		conv.log.Warn("dropping reference to relative or invalid IRI", "id", id)
		return nil, nil
	}
	return NewIRI(id), nil
}

// listToRDF emits an rdf:first/rdf:rest chain for list and returns its head.
// See https://www.w3.org/TR/json-ld11-api/#list-to-rdf-conversion
func (conv *rdfConverter) listToRDF(list []interface{}, graphName string) (Node, error) {
	if len(list) == 0 {
		return nilIRI, nil
	}

	head := NewBlankNode(conv.issuer.GetId(""))
	subject := head
	for i, item := range list {
		object, err := conv.objectToRDF(item, graphName)
		if err != nil {
			return nil, err
		}
		var next Node = nilIRI
		if i < len(list)-1 {
			next = NewBlankNode(conv.issuer.GetId(""))
		}
		if object != nil {
			conv.emit(NewQuad(subject, first, object, graphName))
		}
		conv.emit(NewQuad(subject, rest, next, graphName))
		if bn, isBlank := next.(*BlankNode); isBlank {
			subject = bn
		}
	}
	return head, nil
}
