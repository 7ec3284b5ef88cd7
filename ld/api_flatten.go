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
	"sort"
)

// Flatten builds the node map of an expanded document and returns the nodes
// of the default graph, sorted by identifier. Named graphs are attached to
// their graph name's node under @graph.
// See https://www.w3.org/TR/json-ld11-api/#flattening-algorithm
func (api *JsonLdApi) Flatten(expanded interface{}, opts *JsonLdOptions) ([]interface{}, error) {
	nodeMap := NewNodeMap()
	if err := api.GenerateNodeMap(expanded, nodeMap, NewIdentifierIssuer("_:b"), opts); err != nil {
		return nil, err
	}
	return nodeMap.flattenDefaultGraph(), nil
}

// sortedNodes returns the nodes of a graph in identifier order, leaving out
// nodes that consist of an @id only.
func (nm *NodeMap) sortedNodes(graphName string) []interface{} {
	ids := append([]string(nil), nm.Subjects(graphName)...)
	sort.Strings(ids)
	nodes := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		node := nm.Node(graphName, id)
		if !IsSubjectReference(node) {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// flattenDefaultGraph merges named graphs into the default graph.
func (nm *NodeMap) flattenDefaultGraph() []interface{} {
	graphNames := make([]string, 0, len(nm.graphOrder))
	for _, name := range nm.graphOrder {
		if name != "@default" {
			graphNames = append(graphNames, name)
		}
	}
	sort.Strings(graphNames)

	for _, graphName := range graphNames {
		entry := nm.subject("@default", graphName)
		graph, _ := entry["@graph"].([]interface{})
		if graph == nil {
			graph = make([]interface{}, 0)
		}
		entry["@graph"] = append(graph, nm.sortedNodes(graphName)...)
	}

	return nm.sortedNodes("@default")
}
