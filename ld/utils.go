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
	"encoding/json"
	"sort"
)

// DeepCompare returns true if v1 equals v2. Numbers compare by value
// regardless of their Go representation.
func DeepCompare(v1 interface{}, v2 interface{}, listOrderMatters bool) bool {
	if v1 == nil || v2 == nil {
		return v1 == nil && v2 == nil
	}

	switch t1 := v1.(type) {
	case map[string]interface{}:
		t2, isMap := v2.(map[string]interface{})
		if !isMap || len(t1) != len(t2) {
			return false
		}
		for key, val1 := range t1 {
			if val2, present := t2[key]; !present || !DeepCompare(val1, val2, listOrderMatters) {
				return false
			}
		}
		return true
	case []interface{}:
		t2, isList := v2.([]interface{})
		if !isList || len(t1) != len(t2) {
			return false
		}
		if listOrderMatters {
			for i := range t1 {
				if !DeepCompare(t1[i], t2[i], listOrderMatters) {
					return false
				}
			}
			return true
		}
		// members of t2 already matched, so duplicates are counted correctly
		alreadyMatched := make([]bool, len(t2))
		for _, o1 := range t1 {
			gotMatch := false
			for j, o2 := range t2 {
				if !alreadyMatched[j] && DeepCompare(o1, o2, listOrderMatters) {
					alreadyMatched[j] = true
					gotMatch = true
					break
				}
			}
			if !gotMatch {
				return false
			}
		}
		return true
	}

	if n1, isNum1 := numberValue(v1); isNum1 {
		n2, isNum2 := numberValue(v2)
		return isNum2 && n1 == n2
	}
	switch v2.(type) {
	case map[string]interface{}, []interface{}:
		return false
	}
	return v1 == v2
}

// numberValue returns the float64 value of any numeric representation a
// caller may put in a document, including json.Number from UseNumber decoders.
func numberValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func isNumber(v interface{}) bool {
	_, isNum := numberValue(v)
	return isNum
}

// isScalar returns true for the JSON scalar types: strings, numbers and booleans.
func isScalar(v interface{}) bool {
	switch v.(type) {
	case string, bool:
		return true
	}
	return isNumber(v)
}

// IsSubject returns true if the given value is a subject with properties.
//
// Note: A value is a subject if all of these hold true:
// 1. It is an Object.
// 2. It is not a @value, @set, or @list.
// 3. It has more than 1 key OR any existing key is not @id.
func IsSubject(v interface{}) bool {
	vMap, isMap := v.(map[string]interface{})
	if !isMap {
		return false
	}
	_, containsValue := vMap["@value"]
	_, containsSet := vMap["@set"]
	_, containsList := vMap["@list"]
	if containsValue || containsSet || containsList {
		return false
	}
	_, containsID := vMap["@id"]
	return len(vMap) > 1 || !containsID
}

// IsSubjectReference returns true if the given value is a subject reference:
// an object with the single key @id.
func IsSubjectReference(v interface{}) bool {
	vMap, isMap := v.(map[string]interface{})
	_, containsID := vMap["@id"]
	return isMap && len(vMap) == 1 && containsID
}

// IsValue returns true if the given value is a JSON-LD value object.
func IsValue(v interface{}) bool {
	vMap, isMap := v.(map[string]interface{})
	_, containsValue := vMap["@value"]
	return isMap && containsValue
}

// IsList returns true if the given value is a @list.
func IsList(v interface{}) bool {
	vMap, isMap := v.(map[string]interface{})
	_, hasList := vMap["@list"]
	return isMap && hasList
}

// IsGraph returns true if the given value is a graph object: an object
// with @graph and optionally @id and @index, and nothing else.
func IsGraph(v interface{}) bool {
	vMap, isMap := v.(map[string]interface{})
	if !isMap {
		return false
	}
	if _, containsGraph := vMap["@graph"]; !containsGraph {
		return false
	}
	for k := range vMap {
		if k != "@id" && k != "@index" && k != "@graph" {
			return false
		}
	}
	return true
}

// IsSimpleGraph returns true if the given value is a graph object without @id.
func IsSimpleGraph(v interface{}) bool {
	vMap, _ := v.(map[string]interface{})
	_, containsID := vMap["@id"]
	return IsGraph(v) && !containsID
}

// IsBlankNodeValue returns true if the given value is a blank node.
//
// Note: A value is a blank node if all of these hold true:
// 1. It is an Object.
// 2. If it has an @id key its value begins with '_:'.
// 3. It has no keys OR is not a @value, @set, or @list.
func IsBlankNodeValue(v interface{}) bool {
	vMap, isMap := v.(map[string]interface{})
	if !isMap {
		return false
	}
	if id, containsID := vMap["@id"]; containsID {
		idStr, isString := id.(string)
		return isString && IsBlankNodeIdentifier(idStr)
	}
	_, containsValue := vMap["@value"]
	_, containsSet := vMap["@set"]
	_, containsList := vMap["@list"]
	return len(vMap) == 0 || !(containsValue || containsSet || containsList)
}

func isEmptyObject(v interface{}) bool {
	vMap, isMap := v.(map[string]interface{})
	return isMap && len(vMap) == 0
}

// Arrayify returns v, if v is an array, otherwise returns an array
// containing v as the only element.
func Arrayify(v interface{}) []interface{} {
	if av, isArray := v.([]interface{}); isArray {
		return av
	}
	return []interface{}{v}
}

// CompareShortestLeast compares two strings first based on length and then lexicographically.
func CompareShortestLeast(a string, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// ShortestLeast is a struct which allows sorting using CompareShortestLeast function.
type ShortestLeast []string

func (s ShortestLeast) Len() int {
	return len(s)
}
func (s ShortestLeast) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}
func (s ShortestLeast) Less(i, j int) bool {
	return CompareShortestLeast(s[i], s[j])
}

// HasValue determines if the given value is a property of the given subject.
func HasValue(subject interface{}, property string, value interface{}) bool {
	subjMap, isMap := subject.(map[string]interface{})
	if !isMap {
		return false
	}
	val, found := subjMap[property]
	if !found {
		return false
	}
	if IsList(val) {
		val = val.(map[string]interface{})["@list"]
	}
	if valArray, isArray := val.([]interface{}); isArray {
		for _, v := range valArray {
			if CompareValues(value, v) {
				return true
			}
		}
		return false
	}
	// avoid matching the set of values with an array value parameter
	if _, isArray := value.([]interface{}); isArray {
		return false
	}
	return CompareValues(value, val)
}

// AddValue adds a value to a subject. If the value is an array, all values
// in the array will be added.
//
// propertyIsArray forces the property to hold an array, valueAsArray stores
// value as is, allowDuplicate skips the duplicate check (a shallow
// comparison of @id or @value) and prependValue adds values at the front.
func AddValue(subject interface{}, property string, value interface{}, propertyIsArray, valueAsArray, allowDuplicate,
	prependValue bool) {

	subjMap := subject.(map[string]interface{})
	if valueAsArray {
		subjMap[property] = value
		return
	}

	if values, isArray := value.([]interface{}); isArray {
		if _, found := subjMap[property]; !found && len(values) == 0 && propertyIsArray {
			subjMap[property] = make([]interface{}, 0)
		}
		if prependValue {
			// prepend one at a time from the back to keep the values in order
			for i := len(values) - 1; i >= 0; i-- {
				AddValue(subject, property, values[i], propertyIsArray, false, allowDuplicate, true)
			}
			return
		}
		for _, v := range values {
			AddValue(subject, property, v, propertyIsArray, false, allowDuplicate, false)
		}
		return
	}

	existing, found := subjMap[property]
	if !found {
		if propertyIsArray {
			subjMap[property] = []interface{}{value}
		} else {
			subjMap[property] = value
		}
		return
	}

	if !allowDuplicate && HasValue(subject, property, value) {
		if _, isArray := existing.([]interface{}); propertyIsArray && !isArray {
			subjMap[property] = []interface{}{existing}
		}
		return
	}

	values := Arrayify(existing)
	if prependValue {
		subjMap[property] = append([]interface{}{value}, values...)
	} else {
		subjMap[property] = append(values, value)
	}
}

// CompareValues compares two JSON-LD values for equality.
// Two JSON-LD values will be considered equal if:
//
// 1. They are both primitives of the same type and value.
// 2. They are both @values with the same @value, @type, @language, @direction and @index, OR
// 3. They both have @ids they are the same.
func CompareValues(v1 interface{}, v2 interface{}) bool {
	v1Map, isv1Map := v1.(map[string]interface{})
	v2Map, isv2Map := v2.(map[string]interface{})

	if !isv1Map && !isv2Map {
		return isScalar(v1) && isScalar(v2) && DeepCompare(v1, v2, true)
	}

	if IsValue(v1) && IsValue(v2) {
		return DeepCompare(v1Map["@value"], v2Map["@value"], true) &&
			v1Map["@type"] == v2Map["@type"] &&
			v1Map["@language"] == v2Map["@language"] &&
			v1Map["@direction"] == v2Map["@direction"] &&
			v1Map["@index"] == v2Map["@index"]
	}

	id1, v1containsID := v1Map["@id"]
	id2, v2containsID := v2Map["@id"]
	return isv1Map && isv2Map && v1containsID && v2containsID && id1 == id2
}

// CloneDocument returns a deep copy of the given document. Scalars are shared.
func CloneDocument(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		mClone := make(map[string]interface{}, len(v))
		for k, val := range v {
			mClone[k] = CloneDocument(val)
		}
		return mClone
	case []interface{}:
		lClone := make([]interface{}, len(v))
		for i, val := range v {
			lClone[i] = CloneDocument(val)
		}
		return lClone
	default:
		return value
	}
}

// GetKeys returns all keys in the given object
func GetKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}

// GetOrderedKeys returns all keys in the given object as a sorted list
func GetOrderedKeys(m map[string]interface{}) []string {
	keys := GetKeys(m)
	sort.Strings(keys)
	return keys
}

// stringValue returns v as a string, or "" if v is not a string.
func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}
