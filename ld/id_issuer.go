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
	"strconv"
)

// IdentifierIssuer issues blank node identifiers (prefix + counter) and
// remembers which identifier was issued for each old one. An issuer is
// scoped to a single conversion run and is not safe for concurrent use.
type IdentifierIssuer struct {
	prefix   string
	counter  int
	existing map[string]string
	// old identifiers in issue order
	existingOrder []string
}

// NewIdentifierIssuer creates and returns a new IdentifierIssuer.
func NewIdentifierIssuer(prefix string) *IdentifierIssuer {
	return &IdentifierIssuer{
		prefix:   prefix,
		existing: make(map[string]string),
	}
}

// Clone copies this IdentifierIssuer.
func (ii *IdentifierIssuer) Clone() *IdentifierIssuer {
	c := &IdentifierIssuer{
		prefix:        ii.prefix,
		counter:       ii.counter,
		existing:      make(map[string]string, len(ii.existing)),
		existingOrder: append([]string(nil), ii.existingOrder...),
	}
	for k, v := range ii.existing {
		c.existing[k] = v
	}
	return c
}

// GetId returns the identifier issued for oldId, issuing a new one if
// needed. An empty oldId always yields a fresh identifier.
func (ii *IdentifierIssuer) GetId(oldId string) string { //nolint:stylecheck
	if oldId != "" {
		if ex, present := ii.existing[oldId]; present {
			return ex
		}
	}

	id := ii.prefix + strconv.Itoa(ii.counter)
	ii.counter++

	if oldId != "" {
		ii.existing[oldId] = id
		ii.existingOrder = append(ii.existingOrder, oldId)
	}

	return id
}

// HasId returns true if oldId has already been assigned a new identifier.
func (ii *IdentifierIssuer) HasId(oldId string) bool { //nolint:stylecheck
	_, hasKey := ii.existing[oldId]
	return hasKey
}

// Issued returns the old identifiers in the order they were relabelled.
func (ii *IdentifierIssuer) Issued() []string {
	return ii.existingOrder
}
