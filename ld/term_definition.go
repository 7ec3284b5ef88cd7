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

// TermDefinition is the processed definition of a single term. Definitions
// are shared between context snapshots and must not be modified once they
// have been added to a context.
type TermDefinition struct {
	// ID is the IRI mapping (or keyword). An empty ID is a null mapping: the
	// term is defined but expands to nothing.
	ID      string
	Reverse bool
	// Type is the type coercion: an IRI, @id, @vocab, @json or @none.
	Type      string
	Container Container

	// HasLanguage distinguishes an explicit null language from no language.
	Language     string
	HasLanguage  bool
	Direction    string
	HasDirection bool

	Protected bool
	// Prefix is set when the term may be used as the prefix of a compact IRI.
	Prefix bool
	// Index is the property used by property-valued index maps.
	Index string
	Nest  string

	// Context is the scoped context, applied when the term is used.
	Context    interface{}
	HasContext bool
	// BaseURL is the URL against which the scoped context's IRIs resolve.
	BaseURL string

	termHasColon bool
}

// IsNull returns true if the term is explicitly mapped to null.
func (td *TermDefinition) IsNull() bool {
	return td.ID == ""
}

// equalIgnoringProtected compares two definitions field by field, treating
// the protected flag as equal.
func (td *TermDefinition) equalIgnoringProtected(o *TermDefinition) bool {
	if td == nil || o == nil {
		return td == o
	}
	return td.ID == o.ID &&
		td.Reverse == o.Reverse &&
		td.Type == o.Type &&
		td.Container == o.Container &&
		td.Language == o.Language && td.HasLanguage == o.HasLanguage &&
		td.Direction == o.Direction && td.HasDirection == o.HasDirection &&
		td.Prefix == o.Prefix &&
		td.Index == o.Index &&
		td.Nest == o.Nest &&
		td.HasContext == o.HasContext &&
		DeepCompare(td.Context, o.Context, true)
}

// maxTermLayers bounds the length of a termTable's parent chain. Lookups walk
// the chain, so deep chains are collapsed into a single layer.
const maxTermLayers = 8

// termTable maps terms to definitions. Each context snapshot owns one layer
// holding its own changes on top of the parent's table, so unchanged
// definitions are shared rather than copied. A nil entry hides the parent's
// definition of the term.
type termTable struct {
	parent *termTable
	local  map[string]*TermDefinition
	depth  int
}

func newTermTable() *termTable {
	return &termTable{local: make(map[string]*TermDefinition)}
}

// derive returns an empty layer on top of t.
func (t *termTable) derive() *termTable {
	if t.depth+1 >= maxTermLayers {
		return &termTable{local: t.flatten()}
	}
	return &termTable{
		parent: t,
		local:  make(map[string]*TermDefinition),
		depth:  t.depth + 1,
	}
}

func (t *termTable) get(term string) (*TermDefinition, bool) {
	for layer := t; layer != nil; layer = layer.parent {
		if td, found := layer.local[term]; found {
			return td, td != nil
		}
	}
	return nil, false
}

func (t *termTable) set(term string, td *TermDefinition) {
	t.local[term] = td
}

// remove hides term, whichever layer defines it.
func (t *termTable) remove(term string) {
	if t.parent == nil {
		delete(t.local, term)
		return
	}
	t.local[term] = nil
}

// flatten merges all layers into a single map.
func (t *termTable) flatten() map[string]*TermDefinition {
	layers := make([]*termTable, 0, t.depth+1)
	for layer := t; layer != nil; layer = layer.parent {
		layers = append(layers, layer)
	}
	merged := make(map[string]*TermDefinition)
	for i := len(layers) - 1; i >= 0; i-- {
		for term, td := range layers[i].local {
			if td == nil {
				delete(merged, term)
			} else {
				merged[term] = td
			}
		}
	}
	return merged
}

// terms returns the defined terms in lexicographic order.
func (t *termTable) terms() []string {
	var merged map[string]*TermDefinition
	if t.parent == nil {
		merged = t.local
	} else {
		merged = t.flatten()
	}
	rval := make([]string, 0, len(merged))
	for term, td := range merged {
		if td != nil {
			rval = append(rval, term)
		}
	}
	sort.Strings(rval)
	return rval
}
