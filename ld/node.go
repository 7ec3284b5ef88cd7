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
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Node is the value of a subject, predicate or object
// i.e. a IRI reference, blank node or literal.
type Node interface {
	// GetValue returns the node's value.
	GetValue() string

	// Equal returns true id this node is equal to the given node.
	Equal(n Node) bool
}

// Literal represents a literal value. Datatype is never empty: plain
// literals carry xsd:string and language-tagged ones rdf:langString.
type Literal struct {
	Value    string
	Datatype string
	Language string
}

// NewLiteral creates a new instance of Literal.
func NewLiteral(value string, datatype string, lang string) *Literal {
	if datatype == "" {
		if lang != "" {
			datatype = RDFLangString
		} else {
			datatype = XSDString
		}
	}
	return &Literal{
		Value:    value,
		Datatype: datatype,
		Language: lang,
	}
}

// GetValue returns the node's value.
func (l *Literal) GetValue() string {
	return l.Value
}

// Equal returns true id this node is equal to the given node.
func (l *Literal) Equal(n Node) bool {
	ol, ok := n.(*Literal)
	return ok && l.Value == ol.Value && l.Datatype == ol.Datatype && strings.EqualFold(l.Language, ol.Language)
}

// IRI represents an IRI value.
type IRI struct {
	Value string
}

// NewIRI creates a new instance of IRI.
func NewIRI(iri string) *IRI {
	return &IRI{Value: iri}
}

// GetValue returns the node's value.
func (iri *IRI) GetValue() string {
	return iri.Value
}

// Equal returns true id this node is equal to the given node.
func (iri *IRI) Equal(n Node) bool {
	oiri, ok := n.(*IRI)
	return ok && iri.Value == oiri.Value
}

// BlankNode represents a blank node value.
type BlankNode struct {
	Attribute string
}

// NewBlankNode creates a new instance of BlankNode.
func NewBlankNode(attribute string) *BlankNode {
	return &BlankNode{Attribute: attribute}
}

// GetValue returns the node's value.
func (bn *BlankNode) GetValue() string {
	return bn.Attribute
}

// Equal returns true id this node is equal to the given node.
func (bn *BlankNode) Equal(n Node) bool {
	obn, ok := n.(*BlankNode)
	return ok && bn.Attribute == obn.Attribute
}

// IsBlankNode returns true if the given node is a blank node
func IsBlankNode(node Node) bool {
	_, isBlankNode := node.(*BlankNode)
	return isBlankNode
}

// IsIRI returns true if the given node is an IRI node
func IsIRI(node Node) bool {
	_, isIRI := node.(*IRI)
	return isIRI
}

// IsLiteral returns true if the given node is a literal node
func IsLiteral(node Node) bool {
	_, isLiteral := node.(*Literal)
	return isLiteral
}

// newResource returns a blank node for _: identifiers and an IRI otherwise.
func newResource(id string) Node {
	if IsBlankNodeIdentifier(id) {
		return NewBlankNode(id)
	}
	return NewIRI(id)
}

// wellFormedLanguage reports whether tag is a syntactically valid BCP 47
// language tag. Tags with unknown but well-formed subtags are accepted.
func wellFormedLanguage(tag string) bool {
	if tag == "" {
		return false
	}
	if _, err := language.Parse(tag); err != nil {
		var valueErr language.ValueError
		return errors.As(err, &valueErr)
	}
	return true
}

var (
	patternInteger = regexp.MustCompile(`^[\-+]?\d+$`)
	patternDouble  = regexp.MustCompile(`^(\+|-)?(\d+(\.\d*)?|\.\d+)([Ee](\+|-)?\d+)?$`)

	canonicalDoubleRegEx = regexp.MustCompile(`(\d)0*E\+?0*(\d)`)
)

// GetCanonicalDouble returns a canonical string representation of a float64 number.
func GetCanonicalDouble(v float64) string {
	return canonicalDoubleRegEx.ReplaceAllString(fmt.Sprintf("%1.15E", v), "${1}E${2}")
}

// maxSafeInteger is the largest integer a float64 holds exactly.
const maxSafeInteger = 1<<53 - 1

// RdfToObject converts an RDF triple object to a JSON-LD value object or
// node reference.
// See https://www.w3.org/TR/json-ld11-api/#rdf-to-object-conversion
func RdfToObject(n Node, useNativeTypes bool, rdfDirection string) (map[string]interface{}, error) {
	literal, isLiteral := n.(*Literal)
	if !isLiteral {
		return map[string]interface{}{"@id": n.GetValue()}, nil
	}

	rval := map[string]interface{}{"@value": literal.Value}
	datatype := literal.Datatype

	switch {
	case literal.Language != "":
		rval["@language"] = literal.Language

	case datatype == RDFJSONLiteral:
		value, err := parseJSONLiteral(literal.Value)
		if err != nil {
			return nil, NewJsonLdError(InvalidTypedValue, fmt.Sprintf("invalid JSON literal %q: %v", literal.Value, err))
		}
		rval["@value"] = value
		rval["@type"] = "@json"

	case rdfDirection == RdfDirectionI18NDatatype && strings.HasPrefix(datatype, I18NNS):
		lang, dir, _ := strings.Cut(datatype[len(I18NNS):], "_")
		if lang != "" {
			if !wellFormedLanguage(lang) {
				return nil, NewJsonLdError(InvalidLanguageTaggedString,
					fmt.Sprintf("invalid language %q in datatype %s", lang, datatype))
			}
			rval["@language"] = lang
		}
		if dir != "" {
			rval["@direction"] = dir
		}

	case useNativeTypes && datatype == XSDString:
		// plain string

	case useNativeTypes && datatype == XSDBoolean:
		switch literal.Value {
		case "true":
			rval["@value"] = true
		case "false":
			rval["@value"] = false
		default:
			rval["@type"] = datatype
		}

	case useNativeTypes && datatype == XSDInteger:
		if v, ok := nativeInteger(literal.Value); ok {
			rval["@value"] = v
		} else {
			rval["@type"] = datatype
		}

	case useNativeTypes && datatype == XSDDouble:
		if v, ok := nativeDouble(literal.Value); ok {
			rval["@value"] = v
		} else {
			rval["@type"] = datatype
		}

	case datatype != XSDString:
		rval["@type"] = datatype
	}

	return rval, nil
}

// nativeInteger converts the lexical form of an xsd:integer to a number if it
// survives the round trip unchanged.
func nativeInteger(lexical string) (float64, bool) {
	if !patternInteger.MatchString(lexical) {
		return 0, false
	}
	i, err := strconv.ParseInt(lexical, 10, 64)
	if err != nil || i > maxSafeInteger || i < -maxSafeInteger || strconv.FormatInt(i, 10) != lexical {
		return 0, false
	}
	return float64(i), true
}

func nativeDouble(lexical string) (float64, bool) {
	if !patternDouble.MatchString(lexical) {
		return 0, false
	}
	d, err := strconv.ParseFloat(lexical, 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	return d, true
}

// valueToLiteral converts a JSON-LD value object to an RDF literal.
// See https://www.w3.org/TR/json-ld11-api/#object-to-rdf-conversion
func valueToLiteral(item map[string]interface{}, rdfDirection string) (*Literal, error) {
	value := item["@value"]
	datatype, _ := item["@type"].(string)

	if datatype == "@json" {
		lexical, err := canonicalJSON(value)
		if err != nil {
			return nil, NewJsonLdError(InvalidTypedValue, err)
		}
		return NewLiteral(lexical, RDFJSONLiteral, ""), nil
	}

	switch v := nativeNumbers(value).(type) {
	case bool:
		if datatype == "" {
			datatype = XSDBoolean
		}
		return NewLiteral(strconv.FormatBool(v), datatype, ""), nil

	case float64:
		isInteger := v == math.Trunc(v) && math.Abs(v) < 1e21
		if !isInteger || datatype == XSDDouble {
			if datatype == "" {
				datatype = XSDDouble
			}
			return NewLiteral(GetCanonicalDouble(v), datatype, ""), nil
		}
		if datatype == "" {
			datatype = XSDInteger
		}
		if v == 0 {
			// negative zero has no integer lexical form of its own
			v = 0
		}
		return NewLiteral(strconv.FormatFloat(v, 'f', -1, 64), datatype, ""), nil

	case string:
		lang, hasLanguage := item["@language"].(string)
		dir, hasDirection := item["@direction"].(string)
		if hasDirection && rdfDirection == RdfDirectionI18NDatatype {
			return NewLiteral(v, I18NNS+strings.ToLower(lang)+"_"+dir, ""), nil
		}
		if hasLanguage {
			return NewLiteral(v, RDFLangString, lang), nil
		}
		return NewLiteral(v, datatype, ""), nil

	default:
		return nil, NewJsonLdError(InvalidTypedValue, fmt.Sprintf("invalid @value %v", value))
	}
}
