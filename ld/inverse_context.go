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
	"strings"
)

// inverseEntry maps type/language preference values to the preferred term.
type inverseEntry struct {
	language map[string]string
	typ      map[string]string
	any      map[string]string
}

func newInverseEntry() *inverseEntry {
	return &inverseEntry{
		language: make(map[string]string),
		typ:      make(map[string]string),
		any:      make(map[string]string),
	}
}

func (e *inverseEntry) get(typeOrLanguage string) map[string]string {
	switch typeOrLanguage {
	case "@type":
		return e.typ
	case "@any":
		return e.any
	default:
		return e.language
	}
}

// inverseContext maps IRI -> container key -> preference entries.
type inverseContext struct {
	entries map[string]map[string]*inverseEntry
}

// addPreferredTerm keeps the first term registered for a value; terms are
// visited shortest first, then lexicographically.
func addPreferredTerm(term string, entry map[string]string, value string) {
	if _, found := entry[value]; !found {
		entry[value] = term
	}
}

// getInverse returns the inverse context, generating it on first use.
// See https://www.w3.org/TR/json-ld11-api/#inverse-context-creation
func (c *Context) getInverse() *inverseContext {
	c.inverseOnce.Do(func() {
		c.inverse = c.createInverse()
	})
	return c.inverse
}

func (c *Context) createInverse() *inverseContext {
	inverse := &inverseContext{entries: make(map[string]map[string]*inverseEntry)}

	defaultLanguage := c.defaultLanguage
	if defaultLanguage == "" {
		defaultLanguage = "@none"
	}

	terms := c.Terms()
	sort.Sort(ShortestLeast(terms))

	for _, term := range terms {
		td := c.GetTermDefinition(term)
		if td == nil || td.IsNull() {
			continue
		}
		container := td.Container.Key()

		containerMap, found := inverse.entries[td.ID]
		if !found {
			containerMap = make(map[string]*inverseEntry)
			inverse.entries[td.ID] = containerMap
		}
		entry, found := containerMap[container]
		if !found {
			entry = newInverseEntry()
			containerMap[container] = entry
		}

		addPreferredTerm(term, entry.any, "@none")

		switch {
		case td.Reverse:
			addPreferredTerm(term, entry.typ, "@reverse")
		case td.Type == "@none":
			addPreferredTerm(term, entry.any, "@none")
			addPreferredTerm(term, entry.language, "@none")
			addPreferredTerm(term, entry.typ, "@none")
		case td.Type != "":
			addPreferredTerm(term, entry.typ, td.Type)
		case td.HasLanguage && td.HasDirection:
			switch {
			case td.Language != "" && td.Direction != "":
				addPreferredTerm(term, entry.language, td.Language+"_"+td.Direction)
			case td.Language != "":
				addPreferredTerm(term, entry.language, td.Language)
			case td.Direction != "":
				addPreferredTerm(term, entry.language, "_"+td.Direction)
			default:
				addPreferredTerm(term, entry.language, "@null")
			}
		case td.HasLanguage:
			if td.Language == "" {
				addPreferredTerm(term, entry.language, "@null")
			} else {
				addPreferredTerm(term, entry.language, td.Language)
			}
		case td.HasDirection:
			if td.Direction == "" {
				addPreferredTerm(term, entry.language, "@none")
			} else {
				addPreferredTerm(term, entry.language, "_"+td.Direction)
			}
		case c.defaultDirection != "":
			addPreferredTerm(term, entry.language, "_"+c.defaultDirection)
			addPreferredTerm(term, entry.language, "@none")
			addPreferredTerm(term, entry.typ, "@none")
		default:
			addPreferredTerm(term, entry.language, defaultLanguage)
			addPreferredTerm(term, entry.language, "@none")
			addPreferredTerm(term, entry.typ, "@none")
		}
	}

	return inverse
}

// selectTerm picks the best term for iri among the given containers,
// trying each preferred value in order.
// See https://www.w3.org/TR/json-ld11-api/#term-selection
func (c *Context) selectTerm(iri string, value interface{}, containers []string, typeOrLanguage string,
	typeOrLanguageValue string) string {

	if typeOrLanguageValue == "" {
		typeOrLanguageValue = "@null"
	}

	prefs := make([]string, 0, 4)
	valueMap, isMap := value.(map[string]interface{})
	id, hasID := valueMap["@id"].(string)
	if (typeOrLanguageValue == "@id" || typeOrLanguageValue == "@reverse") && isMap && hasID {
		if typeOrLanguageValue == "@reverse" {
			prefs = append(prefs, "@reverse")
		}
		result := c.CompactIri(id, nil, true, false)
		if td := c.GetTermDefinition(result); td != nil && td.ID == id {
			prefs = append(prefs, "@vocab", "@id")
		} else {
			prefs = append(prefs, "@id", "@vocab")
		}
	} else {
		prefs = append(prefs, typeOrLanguageValue)
		if i := strings.Index(typeOrLanguageValue, "_"); i >= 0 && typeOrLanguageValue[0] != '@' {
			// fall back to the direction alone
			prefs = append(prefs, typeOrLanguageValue[i:])
		}
	}
	prefs = append(prefs, "@none")

	containerMap := c.getInverse().entries[iri]
	for _, container := range containers {
		entry, found := containerMap[container]
		if !found {
			continue
		}
		valueMap := entry.get(typeOrLanguage)
		for _, pref := range prefs {
			if term, found := valueMap[pref]; found {
				return term
			}
		}
	}
	return ""
}

// CompactIri compacts an IRI or keyword into a term or compact IRI, if it
// can be. If value is given, it is used to choose the most appropriate term.
// relativeToVocab selects vocabulary-relative compaction (for properties and
// types) rather than base-relative compaction (for @id values).
// See https://www.w3.org/TR/json-ld11-api/#iri-compaction
func (c *Context) CompactIri(iri string, value interface{}, relativeToVocab bool, reverse bool) string {
	rval, _ := c.compactIri(iri, value, relativeToVocab, reverse)
	return rval
}

func (c *Context) compactIri(iri string, value interface{}, relativeToVocab bool, reverse bool) (string, error) {
	if iri == "" {
		return "", nil
	}

	inverse := c.getInverse()

	// a keyword may be compacted to a simple alias
	if IsKeyword(iri) {
		if entry, found := inverse.entries[iri]["@none"]; found {
			if alias, found := entry.typ["@none"]; found {
				return alias, nil
			}
		}
	}

	if _, found := inverse.entries[iri]; relativeToVocab && found {
		if term := c.selectTermFor(iri, value, reverse); term != "" {
			return term, nil
		}
	}

	if relativeToVocab && c.vocab != "" {
		if strings.HasPrefix(iri, c.vocab) && iri != c.vocab {
			suffix := iri[len(c.vocab):]
			if _, found := c.terms.get(suffix); !found {
				return suffix, nil
			}
		}
	}

	// compact IRI: the shortest, then lexicographically least, usable prefix
	choice := ""
	for _, term := range c.Terms() {
		td := c.GetTermDefinition(term)
		if td.IsNull() || td.ID == iri || !strings.HasPrefix(iri, td.ID) || td.termHasColon || !td.Prefix {
			continue
		}
		curie := term + ":" + iri[len(td.ID):]
		ctd, curieDefined := c.terms.get(curie)
		usable := !curieDefined || (value == nil && ctd.ID == iri)
		if usable && (choice == "" || CompareShortestLeast(curie, choice)) {
			choice = curie
		}
	}
	if choice != "" {
		return choice, nil
	}

	// an absolute IRI whose scheme is a prefix term would read back as a compact IRI
	if colon := strings.Index(iri, ":"); colon > 0 && !strings.HasPrefix(iri[colon+1:], "//") {
		if td, found := c.terms.get(iri[:colon]); found && td.Prefix {
			return iri, NewJsonLdError(IRIConfusedWithPrefix, iri)
		}
	}

	if !relativeToVocab && c.options.CompactToRelative && c.base != "" {
		rel := RemoveBase(c.base, iri)
		if hasKeywordForm(rel) {
			return "./" + rel, nil
		}
		return rel, nil
	}

	return iri, nil
}

// selectTermFor computes the container and type/language preferences for
// value and selects a term.
func (c *Context) selectTermFor(iri string, value interface{}, reverse bool) string {
	defaultLanguage := c.defaultLanguage
	if defaultLanguage == "" {
		defaultLanguage = "@none"
	}

	valueMap, isMap := value.(map[string]interface{})
	_, hasIndex := valueMap["@index"]
	_, hasGraph := valueMap["@graph"]

	containers := make([]string, 0, 16)
	if isMap && hasIndex && !hasGraph {
		containers = append(containers, "@index", "@index@set")
	}

	typeOrLanguage := "@language"
	typeOrLanguageValue := "@null"

	switch {
	case reverse:
		typeOrLanguage = "@type"
		typeOrLanguageValue = "@reverse"
		containers = append(containers, "@set")
	case IsList(value):
		if !hasIndex {
			containers = append(containers, "@list")
		}
		list, _ := valueMap["@list"].([]interface{})
		if len(list) == 0 {
			typeOrLanguage = "@any"
			typeOrLanguageValue = "@none"
			break
		}
		commonLanguage, commonType := "", ""
		for _, item := range list {
			itemLanguage, itemType := "@none", "@none"
			if IsValue(item) {
				itemMap := item.(map[string]interface{})
				if dir, hasDir := itemMap["@direction"].(string); hasDir {
					itemLanguage = strings.ToLower(stringValue(itemMap["@language"])) + "_" + dir
				} else if lang, hasLang := itemMap["@language"].(string); hasLang {
					itemLanguage = strings.ToLower(lang)
				} else if typ, hasType := itemMap["@type"].(string); hasType {
					itemType = typ
				} else {
					itemLanguage = "@null"
				}
			} else {
				itemType = "@id"
			}
			if commonLanguage == "" {
				commonLanguage = itemLanguage
			} else if itemLanguage != commonLanguage && IsValue(item) {
				commonLanguage = "@none"
			}
			if commonType == "" {
				commonType = itemType
			} else if itemType != commonType {
				commonType = "@none"
			}
			if commonLanguage == "@none" && commonType == "@none" {
				break
			}
		}
		if commonType != "@none" {
			typeOrLanguage = "@type"
			typeOrLanguageValue = commonType
		} else {
			typeOrLanguageValue = commonLanguage
		}
	default:
		if IsGraph(value) {
			_, hasID := valueMap["@id"]
			if hasIndex {
				containers = append(containers, "@graph@index", "@graph@index@set", "@index", "@index@set")
			}
			if hasID {
				containers = append(containers, "@graph@id", "@graph@id@set")
			}
			containers = append(containers, "@graph", "@graph@set", "@set")
			if !hasIndex {
				containers = append(containers, "@graph@index", "@graph@index@set", "@index", "@index@set")
			}
			if !hasID {
				containers = append(containers, "@graph@id", "@graph@id@set")
			}
		} else if isMap && !IsValue(value) {
			containers = append(containers, "@id", "@id@set", "@type", "@set@type")
		}

		if IsValue(value) {
			lang, hasLang := valueMap["@language"].(string)
			dir, hasDir := valueMap["@direction"].(string)
			typ, hasType := valueMap["@type"].(string)
			switch {
			case hasLang && !hasIndex:
				containers = append(containers, "@language", "@language@set")
				typeOrLanguageValue = strings.ToLower(lang)
				if hasDir {
					typeOrLanguageValue += "_" + dir
				}
			case hasDir && !hasIndex:
				typeOrLanguageValue = "_" + dir
			case hasType:
				typeOrLanguage = "@type"
				typeOrLanguageValue = typ
			}
		} else {
			typeOrLanguage = "@type"
			typeOrLanguageValue = "@id"
		}
		containers = append(containers, "@set")
	}

	containers = append(containers, "@none")
	if isMap && !hasIndex {
		// an unindexed value may still compact into an index map
		containers = append(containers, "@index", "@index@set")
	}
	if IsValue(value) && len(valueMap) == 1 {
		containers = append(containers, "@language", "@language@set")
	}

	return c.selectTerm(iri, value, containers, typeOrLanguage, typeOrLanguageValue)
}
