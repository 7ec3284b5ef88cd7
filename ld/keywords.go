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
	"regexp"
	"strings"
)

// Keyword enumerates the JSON-LD keywords recognised by the processor.
type Keyword int

const (
	NotKeyword Keyword = iota
	KwBase
	KwContainer
	KwContext
	KwDefault
	KwDirection
	KwGraph
	KwID
	KwImport
	KwIncluded
	KwIndex
	KwJSON
	KwLanguage
	KwList
	KwNest
	KwNone
	KwPrefix
	KwPropagate
	KwProtected
	KwReverse
	KwSet
	KwType
	KwValue
	KwVersion
	KwVocab
)

var keywordNames = [...]string{
	NotKeyword:  "",
	KwBase:      "@base",
	KwContainer: "@container",
	KwContext:   "@context",
	KwDefault:   "@default",
	KwDirection: "@direction",
	KwGraph:     "@graph",
	KwID:        "@id",
	KwImport:    "@import",
	KwIncluded:  "@included",
	KwIndex:     "@index",
	KwJSON:      "@json",
	KwLanguage:  "@language",
	KwList:      "@list",
	KwNest:      "@nest",
	KwNone:      "@none",
	KwPrefix:    "@prefix",
	KwPropagate: "@propagate",
	KwProtected: "@protected",
	KwReverse:   "@reverse",
	KwSet:       "@set",
	KwType:      "@type",
	KwValue:     "@value",
	KwVersion:   "@version",
	KwVocab:     "@vocab",
}

var keywordsByName = func() map[string]Keyword {
	m := make(map[string]Keyword, len(keywordNames))
	for kw, name := range keywordNames {
		if name != "" {
			m[name] = Keyword(kw)
		}
	}
	return m
}()

// String returns the keyword's JSON-LD spelling.
func (k Keyword) String() string {
	if k < 0 || int(k) >= len(keywordNames) {
		return ""
	}
	return keywordNames[k]
}

// LookupKeyword returns the Keyword for s, or NotKeyword.
func LookupKeyword(s string) Keyword {
	return keywordsByName[s]
}

// IsKeyword returns whether or not the given value is a keyword.
func IsKeyword(key interface{}) bool {
	s, isString := key.(string)
	if !isString {
		return false
	}
	return keywordsByName[s] != NotKeyword
}

var keywordLike = regexp.MustCompile(`^@[a-zA-Z]+$`)

// hasKeywordForm returns true for strings shaped like a keyword ("@" followed
// by letters only). Such terms are reserved and ignored with a warning.
func hasKeywordForm(s string) bool {
	return keywordLike.MatchString(s)
}

// Container is a set of container mappings declared by a term definition.
type Container uint8

const (
	ContainerList Container = 1 << iota
	ContainerSet
	ContainerLanguage
	ContainerIndex
	ContainerID
	ContainerGraph
	ContainerType
)

// ContainerNone is the empty container set.
const ContainerNone Container = 0

var containerByKeyword = map[string]Container{
	"@list":     ContainerList,
	"@set":      ContainerSet,
	"@language": ContainerLanguage,
	"@index":    ContainerIndex,
	"@id":       ContainerID,
	"@graph":    ContainerGraph,
	"@type":     ContainerType,
}

// containerOrder fixes the order used for serialisation and inverse context keys.
var containerOrder = []Container{
	ContainerGraph, ContainerID, ContainerIndex, ContainerLanguage, ContainerList, ContainerSet, ContainerType,
}

var containerNames = map[Container]string{
	ContainerList:     "@list",
	ContainerSet:      "@set",
	ContainerLanguage: "@language",
	ContainerIndex:    "@index",
	ContainerID:       "@id",
	ContainerGraph:    "@graph",
	ContainerType:     "@type",
}

// Has returns true if every flag of o is present in c.
func (c Container) Has(o Container) bool {
	return o != 0 && c&o == o
}

// Without returns c with the flags of o cleared.
func (c Container) Without(o Container) Container {
	return c &^ o
}

// Keywords returns the container mapping as a sorted list of keywords.
func (c Container) Keywords() []string {
	rval := make([]string, 0, 2)
	for _, flag := range containerOrder {
		if c&flag != 0 {
			rval = append(rval, containerNames[flag])
		}
	}
	return rval
}

// Key returns the inverse-context key for the container set: the
// concatenation of its keywords, or "@none" when empty.
func (c Container) Key() string {
	if c == ContainerNone {
		return "@none"
	}
	return strings.Join(c.Keywords(), "")
}

// ParseContainer converts a @container value into a Container set.
// In json-ld-1.0 mode only a single string among @list, @set, @index
// and @language is accepted.
func ParseContainer(value interface{}, processingMode string) (Container, error) {
	var entries []interface{}
	switch v := value.(type) {
	case string:
		entries = []interface{}{v}
	case []interface{}:
		if processingMode == JsonLd_1_0 {
			return 0, NewJsonLdError(InvalidContainerMapping, "@container must be a string in json-ld-1.0 mode")
		}
		entries = v
	default:
		return 0, NewJsonLdError(InvalidContainerMapping, "@container must be a string or an array of strings")
	}

	var c Container
	for _, e := range entries {
		s, isString := e.(string)
		if !isString {
			return 0, NewJsonLdError(InvalidContainerMapping, "@container entries must be strings")
		}
		flag, known := containerByKeyword[s]
		if !known {
			return 0, NewJsonLdError(InvalidContainerMapping, "unknown container mapping: "+s)
		}
		if processingMode == JsonLd_1_0 && (flag == ContainerID || flag == ContainerGraph || flag == ContainerType) {
			return 0, NewJsonLdError(InvalidContainerMapping, s+" container requires json-ld-1.1")
		}
		c |= flag
	}

	if !validContainer(c, len(entries)) {
		return 0, NewJsonLdError(InvalidContainerMapping, "invalid combination of container mappings")
	}
	return c, nil
}

func validContainer(c Container, n int) bool {
	if n == 1 {
		return true
	}
	switch {
	case c.Has(ContainerList):
		return false
	case c.Has(ContainerGraph):
		// @graph may be combined with @id or @index, plus an optional @set
		rest := c.Without(ContainerGraph | ContainerSet)
		return rest == ContainerNone || rest == ContainerID || rest == ContainerIndex
	case c.Has(ContainerSet):
		rest := c.Without(ContainerSet)
		return rest == ContainerIndex || rest == ContainerID || rest == ContainerType || rest == ContainerLanguage
	}
	return false
}
