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
	"fmt"
	"sort"
	"strings"
)

// expandState carries the flags of one recursive expansion step.
type expandState struct {
	insideList  bool
	insideIndex bool
	// typeScopedContext is the context used to expand @type values
	typeScopedContext *Context
}

// Expand operation expands the given input according to the steps in the Expansion algorithm:
//
// https://www.w3.org/TR/json-ld11-api/#expansion-algorithm
//
// Returns the expanded JSON-LD object.
// Returns an error if there was an error during expansion.
func (api *JsonLdApi) Expand(ctx context.Context, activeCtx *Context, activeProperty string, element interface{},
	opts *JsonLdOptions) (interface{}, error) {
	return api.expand(ctx, activeCtx, activeProperty, element, opts, expandState{})
}

func (api *JsonLdApi) expand(ctx context.Context, activeCtx *Context, activeProperty string, element interface{},
	opts *JsonLdOptions, state expandState) (interface{}, error) {

	if element == nil {
		return nil, nil
	}

	switch elem := element.(type) {
	case []interface{}:
		insideList := state.insideList || activeCtx.GetContainer(activeProperty).Has(ContainerList)
		resultList := make([]interface{}, 0, len(elem))
		for _, item := range elem {
			v, err := api.expand(ctx, activeCtx, activeProperty, item, opts, expandState{
				insideList:        insideList,
				insideIndex:       state.insideIndex,
				typeScopedContext: state.typeScopedContext,
			})
			if err != nil {
				return nil, err
			}
			if insideList {
				vList, isList := v.([]interface{})
				if activeCtx.processingMode == JsonLd_1_0 && (isList || IsList(v)) {
					return nil, NewJsonLdError(ListOfLists, "lists of lists are not permitted in json-ld-1.0 mode")
				}
				if isList {
					v = map[string]interface{}{"@list": vList}
				}
			}
			if v == nil {
				continue
			}
			if vList, isList := v.([]interface{}); isList {
				resultList = append(resultList, vList...)
			} else {
				resultList = append(resultList, v)
			}
		}
		return resultList, nil

	case map[string]interface{}:
		return api.expandMap(ctx, activeCtx, activeProperty, elem, opts, state)

	default:
		// free-floating scalars are dropped unless they are in a list
		if !state.insideList {
			if activeProperty == "" {
				return nil, nil
			}
			if expanded, _ := activeCtx.ExpandIri(activeProperty, false, true); expanded == "@graph" {
				return nil, nil
			}
		}
		return activeCtx.expandValue(activeProperty, element)
	}
}

func (api *JsonLdApi) expandMap(ctx context.Context, activeCtx *Context, activeProperty string,
	elem map[string]interface{}, opts *JsonLdOptions, state expandState) (interface{}, error) {

	expandedActiveProperty, _ := activeCtx.ExpandIri(activeProperty, false, true)
	propertyTD := activeCtx.GetTermDefinition(activeProperty)

	typeScopedContext := state.typeScopedContext
	if typeScopedContext == nil && activeCtx.previous != nil {
		typeScopedContext = activeCtx
	}

	keys := GetOrderedKeys(elem)

	// a non-propagated context reverts unless this is a value object or a
	// lone node reference
	mustRevert := !state.insideIndex
	if mustRevert && typeScopedContext != nil && len(keys) <= 2 {
		if _, hasContext := elem["@context"]; !hasContext {
			for _, key := range keys {
				expandedProperty, _ := typeScopedContext.ExpandIri(key, false, true)
				if expandedProperty == "@value" {
					mustRevert = false
					activeCtx = typeScopedContext
					break
				}
				if expandedProperty == "@id" && len(keys) == 1 {
					mustRevert = false
					break
				}
			}
		}
	}
	if mustRevert {
		activeCtx = activeCtx.revertToPrevious()
	}

	var err error
	if propertyTD != nil && propertyTD.HasContext {
		if activeCtx, err = activeCtx.parseScoped(ctx, propertyTD, true); err != nil {
			return nil, err
		}
	}

	if localCtx, hasContext := elem["@context"]; hasContext {
		if activeCtx, err = activeCtx.Parse(ctx, localCtx); err != nil {
			return nil, err
		}
	}

	typeScopedContext = activeCtx

	// apply type-scoped contexts in lexicographic order of the types
	typeKey := ""
	for _, key := range keys {
		if expandedProperty, _ := activeCtx.ExpandIri(key, false, true); expandedProperty != "@type" {
			continue
		}
		if typeKey == "" {
			typeKey = key
		}
		types := make([]string, 0)
		for _, t := range Arrayify(elem[key]) {
			if ts, isString := t.(string); isString {
				types = append(types, ts)
			}
		}
		sort.Strings(types)
		for _, t := range types {
			if td := typeScopedContext.GetTermDefinition(t); td != nil && td.HasContext {
				if activeCtx, err = activeCtx.parseScoped(ctx, td, false); err != nil {
					return nil, err
				}
			}
		}
	}

	result := make(map[string]interface{})
	err = api.expandObject(ctx, activeCtx, activeProperty, expandedActiveProperty, elem, result, opts, state.insideList,
		typeKey, typeScopedContext)
	if err != nil {
		return nil, err
	}

	var rval interface{} = result
	count := len(result)

	if value, hasValue := result["@value"]; hasValue {
		_, hasType := result["@type"]
		_, hasLanguage := result["@language"]
		_, hasDirection := result["@direction"]
		_, hasIndex := result["@index"]
		if hasType && (hasLanguage || hasDirection) {
			return nil, NewJsonLdError(InvalidValueObject,
				"an element containing @value may not have both @type and either @language or @direction")
		}
		validCount := count - 1
		for _, present := range []bool{hasType, hasLanguage, hasDirection, hasIndex} {
			if present {
				validCount--
			}
		}
		if validCount != 0 {
			return nil, NewJsonLdError(InvalidValueObject,
				"an element containing @value may only have @direction, @index, @language or @type")
		}

		typeVal := result["@type"]
		switch {
		case typeVal == "@json" && activeCtx.processingMode != JsonLd_1_0:
			// any JSON value is allowed
		case value == nil:
			rval = nil
		case hasLanguage:
			if _, isString := value.(string); !isString {
				return nil, NewJsonLdError(InvalidLanguageTaggedValue,
					"only strings may be language-tagged")
			}
		case hasType:
			typeStr, isString := typeVal.(string)
			if !isString || !IsAbsoluteIri(typeStr) || IsBlankNodeIdentifier(typeStr) {
				return nil, NewJsonLdError(InvalidTypedValue,
					fmt.Sprintf("an element containing @value and @type must have an absolute IRI for the value of @type, got %v", typeVal))
			}
		}
	} else if typeVal, hasType := result["@type"]; hasType {
		if _, isArray := typeVal.([]interface{}); !isArray {
			result["@type"] = []interface{}{typeVal}
		}
	} else if _, hasSet := result["@set"]; hasSet || IsList(result) {
		_, hasIndex := result["@index"]
		if count > 2 || (count == 2 && !hasIndex) {
			return nil, NewJsonLdError(InvalidSetOrListObject,
				"@set or @list may only contain @index")
		}
		if hasSet {
			// @set is unwrapped; its value may be an array or nil
			return result["@set"], nil
		}
	} else if _, hasLanguage := result["@language"]; hasLanguage && count == 1 {
		rval = nil
	}

	// drop certain top-level objects that do not occur in lists
	if resultMap, isMap := rval.(map[string]interface{}); isMap && !state.insideList &&
		(activeProperty == "" || expandedActiveProperty == "@graph" || activeCtx.GetContainer(activeProperty).Has(ContainerGraph)) {
		_, hasValue := resultMap["@value"]
		_, hasID := resultMap["@id"]
		if len(resultMap) == 0 || hasValue || IsList(resultMap) || (len(resultMap) == 1 && hasID) {
			rval = nil
		}
	}

	return rval, nil
}

// expandObject expands the entries of elem into expandedParent.
func (api *JsonLdApi) expandObject(ctx context.Context, activeCtx *Context, activeProperty string,
	expandedActiveProperty string, elem map[string]interface{}, expandedParent map[string]interface{},
	opts *JsonLdOptions, insideList bool, typeKey string, typeScopedContext *Context) error {

	mode10 := activeCtx.processingMode == JsonLd_1_0
	nests := make([]string, 0)
	var unexpandedValue interface{}

	isJSONType := false
	if typeKey != "" {
		if types := Arrayify(elem[typeKey]); len(types) > 0 {
			if t, isString := types[0].(string); isString {
				expanded, _ := activeCtx.ExpandIri(t, true, true)
				isJSONType = expanded == "@json"
			}
		}
	}

	for _, key := range GetOrderedKeys(elem) {
		value := elem[key]

		if key == "@context" {
			continue
		}

		expandedProperty, ok := activeCtx.ExpandIri(key, false, true)
		if !ok || !(IsAbsoluteIri(expandedProperty) || IsKeyword(expandedProperty)) {
			// drop non-absolute IRI keys that aren't keywords
			continue
		}

		kw := LookupKeyword(expandedProperty)
		if kw != NotKeyword {
			if expandedActiveProperty == "@reverse" {
				return NewJsonLdError(InvalidReversePropertyMap,
					"a keyword cannot be used as a @reverse property")
			}
			if _, present := expandedParent[expandedProperty]; present && kw != KwIncluded && kw != KwType {
				return NewJsonLdError(CollidingKeywords, expandedProperty+" already exists in result")
			}
		}

		var expandedValue interface{}
		var err error

		switch kw {
		case KwID:
			idStr, isString := value.(string)
			if !isString {
				return NewJsonLdError(InvalidIDValue, "value of @id must be a string")
			}
			if expanded, ok := activeCtx.ExpandIri(idStr, true, false); ok {
				expandedParent["@id"] = expanded
			}
			continue

		case KwType:
			types := make([]interface{}, 0)
			switch v := value.(type) {
			case string:
				types = append(types, v)
			case []interface{}:
				for _, t := range v {
					if _, isString := t.(string); !isString {
						return NewJsonLdError(InvalidTypeValue, "@type value must be a string or array of strings")
					}
				}
				types = v
			default:
				return NewJsonLdError(InvalidTypeValue, "@type value must be a string or array of strings")
			}
			expandedTypes := make([]interface{}, 0, len(types))
			for _, t := range types {
				if expanded, ok := typeScopedContext.ExpandIri(t.(string), true, true); ok {
					expandedTypes = append(expandedTypes, expanded)
				}
			}
			if _, isArray := value.([]interface{}); isArray {
				AddValue(expandedParent, "@type", expandedTypes, true, false, true, false)
			} else {
				AddValue(expandedParent, "@type", expandedTypes, false, false, true, false)
			}
			continue

		case KwIncluded:
			if mode10 {
				continue
			}
			included, err := api.expand(ctx, activeCtx, activeProperty, value, opts, expandState{})
			if err != nil {
				return err
			}
			includedList := Arrayify(included)
			for _, v := range includedList {
				if !IsSubject(v) && !IsSubjectReference(v) {
					return NewJsonLdError(InvalidIncludedValue, "values of @included must expand to node objects")
				}
			}
			AddValue(expandedParent, "@included", includedList, true, false, true, false)
			continue

		case KwValue:
			unexpandedValue = value
			if isJSONType && !mode10 {
				expandedParent["@value"] = value
			} else {
				AddValue(expandedParent, "@value", value, false, false, true, false)
			}
			continue

		case KwLanguage:
			lang, isString := value.(string)
			if !isString {
				return NewJsonLdError(InvalidLanguageTaggedString, "@language value must be a string")
			}
			if !wellFormedLanguage(lang) {
				opts.logger().Warn("ill-formed language tag", "language", lang)
			}
			expandedParent["@language"] = strings.ToLower(lang)
			continue

		case KwDirection:
			if mode10 {
				continue
			}
			dir, isString := value.(string)
			if !isString || (dir != "ltr" && dir != "rtl") {
				return NewJsonLdError(InvalidBaseDirection, value)
			}
			expandedParent["@direction"] = dir
			continue

		case KwIndex:
			if _, isString := value.(string); !isString {
				return NewJsonLdError(InvalidIndexValue, "@index value must be a string")
			}
			expandedParent["@index"] = value
			continue

		case KwReverse:
			if _, isMap := value.(map[string]interface{}); !isMap {
				return NewJsonLdError(InvalidReverseValue, "@reverse value must be an object")
			}
			expandedValue, err = api.expand(ctx, activeCtx, "@reverse", value, opts, expandState{})
			if err != nil {
				return err
			}
			if err := mergeReverse(expandedParent, expandedValue); err != nil {
				return err
			}
			continue

		case KwNest:
			nests = append(nests, key)
			continue
		}

		// use a potential scoped context for key
		termCtx := activeCtx
		td := activeCtx.GetTermDefinition(key)
		if td != nil && td.HasContext {
			if termCtx, err = activeCtx.parseScoped(ctx, td, true); err != nil {
				return err
			}
		}

		container := termCtx.GetContainer(key)
		valueMap, isMap := value.(map[string]interface{})

		switch {
		case container.Has(ContainerLanguage) && isMap:
			expandedValue, err = expandLanguageMap(termCtx, valueMap, termCtx.GetDirectionMapping(key), opts)
		case container.Has(ContainerIndex) && isMap:
			indexKey := "@index"
			propertyIndex := ""
			if ktd := termCtx.GetTermDefinition(key); ktd != nil && ktd.Index != "" {
				indexKey = ktd.Index
				propertyIndex, _ = activeCtx.ExpandIri(indexKey, false, true)
			}
			expandedValue, err = api.expandIndexMap(ctx, termCtx, key, valueMap, indexKey, propertyIndex,
				container.Has(ContainerGraph), opts)
		case container.Has(ContainerID) && isMap:
			expandedValue, err = api.expandIndexMap(ctx, termCtx, key, valueMap, "@id", "",
				container.Has(ContainerGraph), opts)
		case container.Has(ContainerType) && isMap:
			// type maps are expanded without the type-scoped context
			expandedValue, err = api.expandIndexMap(ctx, termCtx.revertToPrevious(), key, valueMap, "@type", "",
				false, opts)
		case kw == KwList || kw == KwSet:
			nextActiveProperty := activeProperty
			if kw == KwList && expandedActiveProperty == "@graph" {
				nextActiveProperty = ""
			}
			expandedValue, err = api.expand(ctx, termCtx, nextActiveProperty, value, opts,
				expandState{insideList: kw == KwList})
			if err == nil && kw == KwList && mode10 {
				for _, item := range Arrayify(expandedValue) {
					if IsList(item) {
						return NewJsonLdError(ListOfLists, "lists of lists are not permitted in json-ld-1.0 mode")
					}
				}
			}
		case activeCtx.GetTypeMapping(key) == "@json":
			expandedValue = map[string]interface{}{"@type": "@json", "@value": value}
		default:
			expandedValue, err = api.expand(ctx, termCtx, key, value, opts, expandState{})
		}
		if err != nil {
			return err
		}

		// drop null values if property is not @value
		if expandedValue == nil && kw != KwValue {
			continue
		}

		if kw == KwList {
			// @list values always end up in an array
			expandedParent["@list"] = Arrayify(expandedValue)
			continue
		}

		if !IsList(expandedValue) && container.Has(ContainerList) {
			expandedValue = map[string]interface{}{"@list": Arrayify(expandedValue)}
		}

		if container.Has(ContainerGraph) && !container.Has(ContainerID) && !container.Has(ContainerIndex) {
			graphs := make([]interface{}, 0)
			for _, v := range Arrayify(expandedValue) {
				graphs = append(graphs, map[string]interface{}{"@graph": Arrayify(v)})
			}
			expandedValue = graphs
		}

		if termCtx.IsReverseProperty(key) {
			reverseMap, _ := expandedParent["@reverse"].(map[string]interface{})
			if reverseMap == nil {
				reverseMap = make(map[string]interface{})
				expandedParent["@reverse"] = reverseMap
			}
			for _, item := range Arrayify(expandedValue) {
				if IsValue(item) || IsList(item) {
					return NewJsonLdError(InvalidReversePropertyValue, "a reverse property may not hold values or lists")
				}
				AddValue(reverseMap, expandedProperty, item, true, false, true, false)
			}
			continue
		}

		AddValue(expandedParent, expandedProperty, expandedValue, true, false, true, false)
	}

	if _, hasValue := expandedParent["@value"]; hasValue {
		if !(expandedParent["@type"] == "@json" && !mode10) {
			switch unexpandedValue.(type) {
			case map[string]interface{}, []interface{}:
				return NewJsonLdError(InvalidValueObjectValue, "@value may not be an object or an array")
			}
		}
	}

	// expand each nested key
	for _, key := range nests {
		for _, nv := range Arrayify(elem[key]) {
			nvMap, isMap := nv.(map[string]interface{})
			if !isMap {
				return NewJsonLdError(InvalidNestValue, "nested value must be a node object")
			}
			for k := range nvMap {
				if expanded, _ := activeCtx.ExpandIri(k, false, true); expanded == "@value" {
					return NewJsonLdError(InvalidNestValue, "nested value must be a node object")
				}
			}
			err := api.expandObject(ctx, activeCtx, activeProperty, expandedActiveProperty, nvMap, expandedParent,
				opts, insideList, typeKey, typeScopedContext)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// mergeReverse merges the expanded value of a @reverse entry into expandedParent.
// Properties reversed twice become ordinary properties.
func mergeReverse(expandedParent map[string]interface{}, expandedValue interface{}) error {
	valueMap, _ := expandedValue.(map[string]interface{})
	if doubleReversed, hasReverse := valueMap["@reverse"].(map[string]interface{}); hasReverse {
		for _, property := range GetOrderedKeys(doubleReversed) {
			AddValue(expandedParent, property, doubleReversed[property], true, false, true, false)
		}
	}

	var reverseMap map[string]interface{}
	for _, property := range GetOrderedKeys(valueMap) {
		if property == "@reverse" {
			continue
		}
		if reverseMap == nil {
			reverseMap, _ = expandedParent["@reverse"].(map[string]interface{})
			if reverseMap == nil {
				reverseMap = make(map[string]interface{})
				expandedParent["@reverse"] = reverseMap
			}
		}
		AddValue(reverseMap, property, []interface{}{}, true, false, true, false)
		for _, item := range Arrayify(valueMap[property]) {
			if IsValue(item) || IsList(item) {
				return NewJsonLdError(InvalidReversePropertyValue, "a reverse property may not hold values or lists")
			}
			AddValue(reverseMap, property, item, true, false, true, false)
		}
	}
	return nil
}

func expandLanguageMap(activeCtx *Context, languageMap map[string]interface{}, direction string,
	opts *JsonLdOptions) ([]interface{}, error) {

	rval := make([]interface{}, 0)
	for _, key := range GetOrderedKeys(languageMap) {
		expandedKey, _ := activeCtx.ExpandIri(key, false, true)
		for _, item := range Arrayify(languageMap[key]) {
			if item == nil {
				continue
			}
			itemStr, isString := item.(string)
			if !isString {
				return nil, NewJsonLdError(InvalidLanguageMapValue, item)
			}
			val := map[string]interface{}{"@value": itemStr}
			if expandedKey != "@none" {
				if !wellFormedLanguage(key) {
					opts.logger().Warn("ill-formed language map key", "language", key)
				}
				val["@language"] = strings.ToLower(key)
			}
			if direction != "" {
				val["@direction"] = direction
			}
			rval = append(rval, val)
		}
	}
	return rval, nil
}

// expandIndexMap expands index, id and type maps. propertyIndex is the
// expanded property of a property-valued index map.
func (api *JsonLdApi) expandIndexMap(ctx context.Context, activeCtx *Context, activeProperty string,
	value map[string]interface{}, indexKey string, propertyIndex string, asGraph bool,
	opts *JsonLdOptions) ([]interface{}, error) {

	rval := make([]interface{}, 0)
	isTypeIndex := indexKey == "@type"

	for _, key := range GetOrderedKeys(value) {
		keyCtx := activeCtx
		if isTypeIndex {
			if td := activeCtx.GetTermDefinition(key); td != nil && td.HasContext {
				var err error
				if keyCtx, err = activeCtx.parseScoped(ctx, td, false); err != nil {
					return nil, err
				}
			}
		}

		expandedItems, err := api.expand(ctx, keyCtx, activeProperty, Arrayify(value[key]), opts,
			expandState{insideIndex: true})
		if err != nil {
			return nil, err
		}

		var expandedKey interface{}
		if propertyIndex != "" {
			if key == "@none" {
				expandedKey = "@none"
			} else if expandedKey, err = keyCtx.expandValue(indexKey, key); err != nil {
				return nil, err
			}
		} else {
			expandedKey, _ = keyCtx.ExpandIri(key, false, true)
		}

		indexValue := key
		switch indexKey {
		case "@id":
			indexValue, _ = keyCtx.ExpandIri(key, true, false)
		case "@type":
			indexValue, _ = expandedKey.(string)
		}

		for _, item := range Arrayify(expandedItems) {
			if asGraph && !IsGraph(item) {
				item = map[string]interface{}{"@graph": Arrayify(item)}
			}
			itemMap, isMap := item.(map[string]interface{})
			if !isMap {
				continue
			}
			switch {
			case isTypeIndex:
				if expandedKey != "@none" {
					types := []interface{}{indexValue}
					if existing, hasType := itemMap["@type"]; hasType {
						types = append(types, Arrayify(existing)...)
					}
					itemMap["@type"] = types
				}
			case IsValue(itemMap) && indexKey != "@language" && indexKey != "@index":
				return nil, NewJsonLdError(InvalidValueObject,
					fmt.Sprintf("attempt to add illegal key %s to value object", indexKey))
			case propertyIndex != "":
				if expandedKey != "@none" {
					AddValue(itemMap, propertyIndex, expandedKey, true, false, true, true)
				}
			default:
				if _, present := itemMap[indexKey]; expandedKey != "@none" && !present {
					itemMap[indexKey] = indexValue
				}
			}
			rval = append(rval, itemMap)
		}
	}
	return rval, nil
}

// expandValue expands a scalar value for activeProperty into a value object
// or node reference.
// See https://www.w3.org/TR/json-ld11-api/#value-expansion
func (c *Context) expandValue(activeProperty string, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	expandedProperty, _ := c.ExpandIri(activeProperty, false, true)
	strValue, isString := value.(string)

	switch expandedProperty {
	case "@id":
		if !isString {
			return value, nil
		}
		if expanded, ok := c.ExpandIri(strValue, true, false); ok {
			return expanded, nil
		}
		return nil, nil
	case "@type":
		if !isString {
			return value, nil
		}
		if expanded, ok := c.ExpandIri(strValue, true, true); ok {
			return expanded, nil
		}
		return nil, nil
	}

	typeMapping := c.GetTypeMapping(activeProperty)

	if isString && (typeMapping == "@id" || expandedProperty == "@graph") {
		if expanded, ok := c.ExpandIri(strValue, true, false); ok {
			return map[string]interface{}{"@id": expanded}, nil
		}
		return nil, nil
	}
	if isString && typeMapping == "@vocab" {
		if expanded, ok := c.ExpandIri(strValue, true, true); ok {
			return map[string]interface{}{"@id": expanded}, nil
		}
		return nil, nil
	}

	if IsKeyword(expandedProperty) {
		return value, nil
	}

	rval := make(map[string]interface{})
	if typeMapping != "" && typeMapping != "@id" && typeMapping != "@vocab" && typeMapping != "@none" {
		rval["@type"] = typeMapping
	} else if isString {
		if lang := c.GetLanguageMapping(activeProperty); lang != "" {
			rval["@language"] = lang
		}
		if dir := c.GetDirectionMapping(activeProperty); dir != "" {
			rval["@direction"] = dir
		}
	}

	switch value.(type) {
	case string, bool:
	default:
		if !isNumber(value) {
			value = fmt.Sprintf("%v", value)
		}
	}
	rval["@value"] = value
	return rval, nil
}
