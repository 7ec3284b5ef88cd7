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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// AlgorithmURDNA2015 is the only supported canonicalization algorithm.
const AlgorithmURDNA2015 = "URDNA2015"

// Normalize canonicalizes the dataset with URDNA2015, relabelling every
// blank node _:c14nN. The returned quads are sorted by their N-Quads form.
// The input dataset is not modified.
//
// See https://www.w3.org/TR/rdf-canon/
func (api *JsonLdApi) Normalize(ctx context.Context, dataset *RDFDataset) ([]*Quad, error) {
	c := &canonicalizer{
		ctx:             ctx,
		blankNodes:      make(map[string]*blankNodeInfo),
		canonicalIssuer: NewIdentifierIssuer("_:c14n"),
	}
	return c.canonicalize(dataset)
}

type blankNodeInfo struct {
	quads []*Quad
	hash  string
}

type canonicalizer struct {
	ctx             context.Context
	blankNodes      map[string]*blankNodeInfo
	canonicalIssuer *IdentifierIssuer
	quads           []*Quad
}

// positions of the quad components a related blank node may occupy
var positions = []string{"s", "o", "g"}

func quadComponents(q *Quad) []Node {
	return []Node{q.Subject, q.Object, q.Graph}
}

func (c *canonicalizer) canonicalize(dataset *RDFDataset) ([]*Quad, error) {
	for _, q := range dataset.AllQuads() {
		c.quads = append(c.quads, q)
		for _, component := range quadComponents(q) {
			if bn, isBlank := component.(*BlankNode); isBlank {
				info, found := c.blankNodes[bn.Attribute]
				if !found {
					info = &blankNodeInfo{}
					c.blankNodes[bn.Attribute] = info
				}
				info.quads = append(info.quads, q)
			}
		}
	}

	nonNormalized := make(map[string]bool, len(c.blankNodes))
	for id := range c.blankNodes {
		nonNormalized[id] = true
	}

	// issue canonical identifiers for blank nodes with unique first degree hashes
	var hashToBlankNodes map[string][]string
	for simple := true; simple; {
		simple = false
		hashToBlankNodes = make(map[string][]string)
		for _, id := range sortedKeys(nonNormalized) {
			h := c.hashFirstDegreeQuads(id)
			hashToBlankNodes[h] = append(hashToBlankNodes[h], id)
		}

		for _, h := range sortedKeys(hashToBlankNodes) {
			ids := hashToBlankNodes[h]
			if len(ids) > 1 {
				continue
			}
			c.canonicalIssuer.GetId(ids[0])
			delete(nonNormalized, ids[0])
			delete(hashToBlankNodes, h)
			simple = true
		}
	}

	// disambiguate the rest through n-degree hashing
	for _, h := range sortedKeys(hashToBlankNodes) {
		hashPaths := make(map[string][]*IdentifierIssuer)
		for _, id := range hashToBlankNodes[h] {
			if c.canonicalIssuer.HasId(id) {
				continue
			}
			issuer := NewIdentifierIssuer("_:b")
			issuer.GetId(id)
			pathHash, resultIssuer, err := c.hashNDegreeQuads(id, issuer)
			if err != nil {
				return nil, err
			}
			hashPaths[pathHash] = append(hashPaths[pathHash], resultIssuer)
		}

		for _, pathHash := range sortedKeys(hashPaths) {
			for _, resultIssuer := range hashPaths[pathHash] {
				for _, existing := range resultIssuer.Issued() {
					c.canonicalIssuer.GetId(existing)
				}
			}
		}
	}

	relabelled := make([]*Quad, len(c.quads))
	lines := make(map[*Quad]string, len(c.quads))
	for i, q := range c.quads {
		cq := &Quad{
			Subject:   c.relabel(q.Subject),
			Predicate: q.Predicate,
			Object:    c.relabel(q.Object),
			Graph:     c.relabel(q.Graph),
		}
		relabelled[i] = cq
		lines[cq] = toNQuad(cq)
	}
	sort.SliceStable(relabelled, func(i, j int) bool {
		return lines[relabelled[i]] < lines[relabelled[j]]
	})

	return relabelled, nil
}

func (c *canonicalizer) relabel(n Node) Node {
	if bn, isBlank := n.(*BlankNode); isBlank {
		return NewBlankNode(c.canonicalIssuer.GetId(bn.Attribute))
	}
	return n
}

// hashFirstDegreeQuads hashes the quads a blank node appears in, with the
// node itself written _:a and every other blank node _:z.
func (c *canonicalizer) hashFirstDegreeQuads(id string) string {
	info := c.blankNodes[id]
	if info.hash != "" {
		return info.hash
	}

	replace := func(n Node) Node {
		if bn, isBlank := n.(*BlankNode); isBlank {
			if bn.Attribute == id {
				return NewBlankNode("_:a")
			}
			return NewBlankNode("_:z")
		}
		return n
	}

	nquads := make([]string, 0, len(info.quads))
	for _, q := range info.quads {
		nquads = append(nquads, toNQuad(&Quad{
			Subject:   replace(q.Subject),
			Predicate: q.Predicate,
			Object:    replace(q.Object),
			Graph:     replace(q.Graph),
		}))
	}
	sort.Strings(nquads)

	md := sha256.New()
	for _, line := range nquads {
		md.Write([]byte(line))
	}
	info.hash = hex.EncodeToString(md.Sum(nil))
	return info.hash
}

func (c *canonicalizer) hashRelatedBlankNode(related string, q *Quad, issuer *IdentifierIssuer, position string) string {
	var id string
	switch {
	case c.canonicalIssuer.HasId(related):
		id = c.canonicalIssuer.GetId(related)
	case issuer.HasId(related):
		id = issuer.GetId(related)
	default:
		id = c.hashFirstDegreeQuads(related)
	}

	md := sha256.New()
	md.Write([]byte(position))
	if position != "g" {
		md.Write([]byte("<" + q.Predicate.GetValue() + ">"))
	}
	md.Write([]byte(id))
	return hex.EncodeToString(md.Sum(nil))
}

func (c *canonicalizer) createHashToRelated(id string, issuer *IdentifierIssuer) map[string][]string {
	hashToRelated := make(map[string][]string)
	for _, q := range c.blankNodes[id].quads {
		for i, component := range quadComponents(q) {
			bn, isBlank := component.(*BlankNode)
			if !isBlank || bn.Attribute == id {
				continue
			}
			h := c.hashRelatedBlankNode(bn.Attribute, q, issuer, positions[i])
			hashToRelated[h] = append(hashToRelated[h], bn.Attribute)
		}
	}
	return hashToRelated
}

// hashNDegreeQuads hashes a blank node together with the paths to its
// related blank nodes, choosing the lexicographically least path for
// every group of related nodes.
func (c *canonicalizer) hashNDegreeQuads(id string, issuer *IdentifierIssuer) (string, *IdentifierIssuer, error) {
	if err := c.ctx.Err(); err != nil {
		return "", nil, err
	}

	hashToRelated := c.createHashToRelated(id, issuer)
	md := sha256.New()

	for _, relatedHash := range sortedKeys(hashToRelated) {
		md.Write([]byte(relatedHash))

		chosenPath := ""
		var chosenIssuer *IdentifierIssuer

		permutator := newPermutator(hashToRelated[relatedHash])
	permutations:
		for permutator.hasNext() {
			permutation := permutator.next()
			issuerCopy := issuer.Clone()
			var path strings.Builder
			recursionList := make([]string, 0)

			for _, related := range permutation {
				if c.canonicalIssuer.HasId(related) {
					path.WriteString(c.canonicalIssuer.GetId(related))
				} else {
					if !issuerCopy.HasId(related) {
						recursionList = append(recursionList, related)
					}
					path.WriteString(issuerCopy.GetId(related))
				}
				if longerPath(path.String(), chosenPath) {
					continue permutations
				}
			}

			for _, related := range recursionList {
				resultHash, resultIssuer, err := c.hashNDegreeQuads(related, issuerCopy)
				if err != nil {
					return "", nil, err
				}
				path.WriteString(issuerCopy.GetId(related))
				path.WriteString("<" + resultHash + ">")
				issuerCopy = resultIssuer
				if longerPath(path.String(), chosenPath) {
					continue permutations
				}
			}

			if chosenPath == "" || path.String() < chosenPath {
				chosenPath = path.String()
				chosenIssuer = issuerCopy
			}
		}

		md.Write([]byte(chosenPath))
		issuer = chosenIssuer
	}

	return hex.EncodeToString(md.Sum(nil)), issuer, nil
}

// longerPath reports whether path can no longer beat chosen.
func longerPath(path, chosen string) bool {
	return chosen != "" && len(path) >= len(chosen) && path > chosen
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// permutator generates all permutations of a list of strings using the
// Steinhaus-Johnson-Trotter algorithm, starting from sorted order.
type permutator struct {
	list []string
	done bool
	left map[string]bool
}

func newPermutator(list []string) *permutator {
	p := &permutator{
		list: append([]string(nil), list...),
		left: make(map[string]bool, len(list)),
	}
	sort.Strings(p.list)
	for _, s := range p.list {
		p.left[s] = true
	}
	return p
}

func (p *permutator) hasNext() bool {
	return !p.done
}

func (p *permutator) next() []string {
	rval := append([]string(nil), p.list...)

	// find the largest mobile element k
	k := ""
	pos := 0
	length := len(p.list)
	for i, element := range p.list {
		left := p.left[element]
		if (k == "" || element > k) &&
			((left && i > 0 && element > p.list[i-1]) || (!left && i < length-1 && element > p.list[i+1])) {
			k = element
			pos = i
		}
	}

	if k == "" {
		p.done = true
		return rval
	}

	swap := pos + 1
	if p.left[k] {
		swap = pos - 1
	}
	p.list[pos], p.list[swap] = p.list[swap], k

	for _, element := range p.list {
		if element > k {
			p.left[element] = !p.left[element]
		}
	}
	return rval
}
