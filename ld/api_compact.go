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
	"sort"
)

// Compact operation compacts the given input using the context
// according to the steps in the Compaction Algorithm:
//
// https://www.w3.org/TR/json-ld11-api/#compaction-algorithm
//
// Returns the compacted JSON-LD object.
// Returns an error if there was an error during compaction.
func (api *JsonLdApi) Compact(ctx context.Context, activeCtx *Context, activeProperty string, element interface{},
	compactArrays bool) (interface{}, error) {

	if elementList, isList := element.([]interface{}); isList {
		result := make([]interface{}, 0, len(elementList))
		for _, item := range elementList {
			compactedItem, err := api.Compact(ctx, activeCtx, activeProperty, item, compactArrays)
			if err != nil {
				return nil, err
			}
			if compactedItem != nil {
				result = append(result, compactedItem)
			}
		}

		if compactArrays && len(result) == 1 && activeCtx.GetContainer(activeProperty) == ContainerNone {
			return result[0], nil
		}

		return result, nil
	}

	elem, isMap := element.(map[string]interface{})
	if !isMap {
		return element, nil
	}

	// original context before applying property-scoped and local contexts
	inputCtx := activeCtx
	propertyTD := inputCtx.GetTermDefinition(activeProperty)

	// do value compaction on @values and subject references
	if IsValue(elem) || IsSubjectReference(elem) {
		if propertyTD != nil && propertyTD.HasContext {
			var err error
			if activeCtx, err = activeCtx.parseScoped(ctx, propertyTD, true); err != nil {
				return nil, err
			}
		}
		return activeCtx.CompactValue(activeProperty, elem)
	}

	// if expanded property is @list and we're contained within a list container,
	// recursively compact this item to an array
	if list, containsList := elem["@list"]; containsList && activeCtx.GetContainer(activeProperty).Has(ContainerList) {
		return api.Compact(ctx, activeCtx, activeProperty, list, compactArrays)
	}

	insideReverse := activeProperty == "@reverse"

	result := make(map[string]interface{})

	// revert to previous context, if there is one
	activeCtx = activeCtx.revertToPrevious()

	// apply property-scoped context after reverting term-scoped context
	var err error
	if propertyTD != nil && propertyTD.HasContext {
		if activeCtx, err = activeCtx.parseScoped(ctx, propertyTD, true); err != nil {
			return nil, err
		}
	}

	// apply contexts scoped to the compacted types, in lexicographical order
	if typeVal, hasType := elem["@type"]; hasType {
		types := make([]string, 0)
		for _, t := range Arrayify(typeVal) {
			if typeStr, isString := t.(string); isString {
				compactedType, err := activeCtx.compactIri(typeStr, nil, true, false)
				if err != nil {
					return nil, err
				}
				types = append(types, compactedType)
			}
		}
		sort.Strings(types)
		for _, tt := range types {
			if td := inputCtx.GetTermDefinition(tt); td != nil && td.HasContext {
				if activeCtx, err = activeCtx.parseScoped(ctx, td, false); err != nil {
					return nil, err
				}
			}
		}
	}

	// recursively process element keys in order
	for _, expandedProperty := range GetOrderedKeys(elem) {
		expandedValue := elem[expandedProperty]

		switch expandedProperty {
		case "@id":
			compactedValue, err := activeCtx.compactIri(stringValue(expandedValue), nil, false, false)
			if err != nil {
				return nil, err
			}
			result[activeCtx.keywordAlias("@id")] = compactedValue
			continue

		case "@type":
			alias := activeCtx.keywordAlias("@type")
			compactedValues := make([]interface{}, 0)
			for _, v := range Arrayify(expandedValue) {
				cv, err := inputCtx.compactIri(stringValue(v), nil, true, false)
				if err != nil {
					return nil, err
				}
				compactedValues = append(compactedValues, cv)
			}

			typeAsSet := activeCtx.GetContainer(alias).Has(ContainerSet) && activeCtx.processingMode != JsonLd_1_0
			var compactedValue interface{} = compactedValues
			if len(compactedValues) == 1 && !typeAsSet {
				compactedValue = compactedValues[0]
			}
			AddValue(result, alias, compactedValue, typeAsSet || len(compactedValues) == 0, false, true, false)
			continue

		case "@reverse":
			compacted, err := api.Compact(ctx, activeCtx, "@reverse", expandedValue, compactArrays)
			if err != nil {
				return nil, err
			}
			compactedValue, _ := compacted.(map[string]interface{})
			for _, property := range GetOrderedKeys(compactedValue) {
				if activeCtx.IsReverseProperty(property) {
					useArray := activeCtx.GetContainer(property).Has(ContainerSet) || !compactArrays
					AddValue(result, property, compactedValue[property], useArray, false, true, false)
					delete(compactedValue, property)
				}
			}
			if len(compactedValue) > 0 {
				AddValue(result, activeCtx.keywordAlias("@reverse"), compactedValue, false, false, true, false)
			}
			continue

		case "@index":
			if activeCtx.GetContainer(activeProperty).Has(ContainerIndex) {
				continue
			}
			result[activeCtx.keywordAlias("@index")] = expandedValue
			continue

		case "@value", "@language", "@direction":
			result[activeCtx.keywordAlias(expandedProperty)] = expandedValue
			continue
		}

		// skip array processing for keywords that aren't @graph, @list or @included
		if expandedProperty != "@graph" && expandedProperty != "@list" && expandedProperty != "@included" &&
			IsKeyword(expandedProperty) {
			AddValue(result, activeCtx.keywordAlias(expandedProperty), expandedValue, false, false, true, false)
			continue
		}

		expandedValueList := Arrayify(expandedValue)

		// preserve empty arrays
		if len(expandedValueList) == 0 {
			itemActiveProperty, err := activeCtx.compactIri(expandedProperty, expandedValue, true, insideReverse)
			if err != nil {
				return nil, err
			}
			nestResult, err := api.nestResult(activeCtx, result, itemActiveProperty)
			if err != nil {
				return nil, err
			}
			AddValue(nestResult, itemActiveProperty, make([]interface{}, 0), true, false, true, false)
		}

		for _, expandedItem := range expandedValueList {
			if err := api.compactItem(ctx, activeCtx, expandedProperty, expandedItem, result, insideReverse,
				compactArrays); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

// compactItem compacts a single value of expandedProperty into result.
func (api *JsonLdApi) compactItem(ctx context.Context, activeCtx *Context, expandedProperty string,
	expandedItem interface{}, result map[string]interface{}, insideReverse bool, compactArrays bool) error {

	itemActiveProperty, err := activeCtx.compactIri(expandedProperty, expandedItem, true, insideReverse)
	if err != nil {
		return err
	}
	container := activeCtx.GetContainer(itemActiveProperty)
	isSetContainer := container.Has(ContainerSet)

	// if itemActiveProperty is a @nest property, add values to nestResult, otherwise result
	nestResult, err := api.nestResult(activeCtx, result, itemActiveProperty)
	if err != nil {
		return err
	}

	expandedItemMap, _ := expandedItem.(map[string]interface{})
	isList := IsList(expandedItem)
	isGraph := IsGraph(expandedItem)

	elementToCompact := expandedItem
	if isList {
		elementToCompact = expandedItemMap["@list"]
	} else if isGraph {
		elementToCompact = expandedItemMap["@graph"]
	}

	compactedItem, err := api.Compact(ctx, activeCtx, itemActiveProperty, elementToCompact, compactArrays)
	if err != nil {
		return err
	}

	if isList {
		compactedItem = Arrayify(compactedItem)
		if container.Has(ContainerList) {
			AddValue(nestResult, itemActiveProperty, compactedItem, true, true, true, false)
			return nil
		}
		wrapper := map[string]interface{}{activeCtx.keywordAlias("@list"): compactedItem}
		if indexVal, containsIndex := expandedItemMap["@index"]; containsIndex {
			wrapper[activeCtx.keywordAlias("@index")] = indexVal
		}
		compactedItem = wrapper
	}

	switch {
	case isGraph:
		api.compactGraphItem(activeCtx, container, itemActiveProperty, expandedItemMap, compactedItem, nestResult,
			compactArrays)

	case container.Has(ContainerLanguage) || container.Has(ContainerIndex) || container.Has(ContainerID) ||
		container.Has(ContainerType):

		mapObject, isMap := nestResult[itemActiveProperty].(map[string]interface{})
		if !isMap {
			mapObject = make(map[string]interface{})
			nestResult[itemActiveProperty] = mapObject
		}

		mapKey := ""
		compactedItemMap, _ := compactedItem.(map[string]interface{})

		switch {
		case container.Has(ContainerLanguage):
			if v, containsValue := compactedItemMap["@value"]; containsValue {
				compactedItem = v
			}
			mapKey, _ = expandedItemMap["@language"].(string)

		case container.Has(ContainerIndex):
			indexKey := "@index"
			if td := activeCtx.GetTermDefinition(itemActiveProperty); td != nil && td.Index != "" {
				indexKey = td.Index
			}
			if indexKey == "@index" {
				mapKey, _ = expandedItemMap["@index"].(string)
				if compactedItemMap != nil {
					delete(compactedItemMap, activeCtx.keywordAlias("@index"))
				}
			} else if compactedItemMap != nil {
				containerKey, err := activeCtx.compactIri(indexKey, nil, true, false)
				if err != nil {
					return err
				}
				props := Arrayify(compactedItemMap[containerKey])
				if _, found := compactedItemMap[containerKey]; !found {
					props = nil
				}
				if len(props) > 0 {
					if key, isString := props[0].(string); isString {
						mapKey = key
						switch others := props[1:]; len(others) {
						case 0:
							delete(compactedItemMap, containerKey)
						case 1:
							compactedItemMap[containerKey] = others[0]
						default:
							compactedItemMap[containerKey] = others
						}
					}
				}
			}

		case container.Has(ContainerID):
			idKey := activeCtx.keywordAlias("@id")
			if compactedItemMap != nil {
				if v, containsID := compactedItemMap[idKey]; containsID {
					mapKey, _ = v.(string)
					delete(compactedItemMap, idKey)
				}
			}

		case container.Has(ContainerType):
			typeKey := activeCtx.keywordAlias("@type")
			if compactedItemMap != nil {
				if v, containsType := compactedItemMap[typeKey]; containsType {
					types := Arrayify(v)
					if len(types) > 0 {
						mapKey, _ = types[0].(string)
						types = types[1:]
					}
					switch len(types) {
					case 0:
						delete(compactedItemMap, typeKey)
					case 1:
						compactedItemMap[typeKey] = types[0]
					default:
						compactedItemMap[typeKey] = types
					}
				}
				// a lone node reference is re-compacted without its type
				if idVal, hasID := expandedItemMap["@id"]; hasID && len(compactedItemMap) == 1 {
					compactedItem, err = api.Compact(ctx, activeCtx, itemActiveProperty,
						map[string]interface{}{"@id": idVal}, compactArrays)
					if err != nil {
						return err
					}
				}
			}
		}

		if mapKey == "" {
			mapKey = activeCtx.keywordAlias("@none")
		}

		AddValue(mapObject, mapKey, compactedItem, isSetContainer, false, true, false)

	default:
		compactedItemArray, isArray := compactedItem.([]interface{})
		asArray := !compactArrays || isSetContainer || container.Has(ContainerList) ||
			(isArray && len(compactedItemArray) == 0) || expandedProperty == "@list" || expandedProperty == "@graph"
		AddValue(nestResult, itemActiveProperty, compactedItem, asArray, false, true, false)
	}

	return nil
}

// compactGraphItem adds a compacted graph object to nestResult, using a graph
// container if the term has one.
func (api *JsonLdApi) compactGraphItem(activeCtx *Context, container Container, itemActiveProperty string,
	expandedItemMap map[string]interface{}, compactedItem interface{}, nestResult map[string]interface{},
	compactArrays bool) {

	asArray := !compactArrays || container.Has(ContainerSet)
	isGraphContainer := container.Has(ContainerGraph)

	switch {
	case isGraphContainer && (container.Has(ContainerID) || container.Has(ContainerIndex) && IsSimpleGraph(expandedItemMap)):
		mapObject, isMap := nestResult[itemActiveProperty].(map[string]interface{})
		if !isMap {
			mapObject = make(map[string]interface{})
			nestResult[itemActiveProperty] = mapObject
		}

		// index on @id or @index or alias of @none
		var mapKey string
		if container.Has(ContainerID) {
			if id, hasID := expandedItemMap["@id"].(string); hasID {
				mapKey = activeCtx.CompactIri(id, nil, false, false)
			}
		} else {
			mapKey, _ = expandedItemMap["@index"].(string)
		}
		if mapKey == "" {
			mapKey = activeCtx.keywordAlias("@none")
		}
		AddValue(mapObject, mapKey, compactedItem, asArray, false, true, false)

	case isGraphContainer && IsSimpleGraph(expandedItemMap):
		// multiple objects in the same graph can't be represented directly,
		// as they would be interpreted as two different graphs
		if compactedItemArray, isArray := compactedItem.([]interface{}); isArray && len(compactedItemArray) > 1 {
			compactedItem = map[string]interface{}{activeCtx.keywordAlias("@included"): compactedItem}
		}
		AddValue(nestResult, itemActiveProperty, compactedItem, asArray, false, true, false)

	default:
		// wrap using @graph alias, remove array if only one item and compactArrays not set
		if compactedItemArray, isArray := compactedItem.([]interface{}); isArray && len(compactedItemArray) == 1 && compactArrays {
			compactedItem = compactedItemArray[0]
		}
		compactedItemMap := map[string]interface{}{activeCtx.keywordAlias("@graph"): compactedItem}

		if id, hasID := expandedItemMap["@id"].(string); hasID {
			compactedItemMap[activeCtx.keywordAlias("@id")] = activeCtx.CompactIri(id, nil, false, false)
		}
		if val, hasIndex := expandedItemMap["@index"]; hasIndex {
			compactedItemMap[activeCtx.keywordAlias("@index")] = val
		}

		AddValue(nestResult, itemActiveProperty, compactedItemMap, asArray, false, true, false)
	}
}

// nestResult returns the object that values of property are added to: the
// nest object named by the term's @nest, or result itself.
func (api *JsonLdApi) nestResult(activeCtx *Context, result map[string]interface{},
	property string) (map[string]interface{}, error) {

	td := activeCtx.GetTermDefinition(property)
	if td == nil || td.Nest == "" {
		return result, nil
	}
	if expanded, _ := activeCtx.ExpandIri(td.Nest, false, true); expanded != "@nest" {
		return nil, NewJsonLdError(InvalidNestValue, "nested property must have an @nest value resolving to @nest")
	}
	nested, isMap := result[td.Nest].(map[string]interface{})
	if !isMap {
		nested = make(map[string]interface{})
		result[td.Nest] = nested
	}
	return nested, nil
}

// keywordAlias returns the term aliasing kw, or kw itself.
func (c *Context) keywordAlias(kw string) string {
	return c.CompactIri(kw, nil, true, false)
}

// CompactValue performs value compaction on a value object or node reference.
// See https://www.w3.org/TR/json-ld11-api/#value-compaction
func (c *Context) CompactValue(activeProperty string, value map[string]interface{}) (interface{}, error) {
	typeMapping := c.GetTypeMapping(activeProperty)

	if !IsValue(value) {
		// a node reference
		idStr := stringValue(value["@id"])
		compacted, err := c.compactIri(idStr, nil, typeMapping == "@vocab", false)
		if err != nil {
			return nil, err
		}
		expandedProperty, _ := c.ExpandIri(activeProperty, false, true)
		if typeMapping == "@id" || typeMapping == "@vocab" || expandedProperty == "@graph" {
			return compacted, nil
		}
		return map[string]interface{}{c.keywordAlias("@id"): compacted}, nil
	}

	languageMapping := c.GetLanguageMapping(activeProperty)
	directionMapping := c.GetDirectionMapping(activeProperty)
	_, hasIndex := value["@index"]
	preserveIndex := hasIndex && !c.GetContainer(activeProperty).Has(ContainerIndex)

	valueType, hasType := value["@type"]
	lang, hasLanguage := value["@language"].(string)
	dir, hasDirection := value["@direction"].(string)

	if !preserveIndex && typeMapping != "@none" {
		// matching @type or @language/@direction specified in context, compact value
		if hasType && valueType == typeMapping {
			return value["@value"], nil
		}
		if (hasLanguage || hasDirection) && !hasType &&
			lang == languageMapping && dir == directionMapping {
			return value["@value"], nil
		}
	}

	// return just the value of @value if re-expanding it yields the same value object
	keyCount := len(value)
	isValueOnlyKey := keyCount == 1 || (keyCount == 2 && hasIndex && !preserveIndex)
	_, isValueString := value["@value"].(string)
	if isValueOnlyKey && typeMapping != "@none" &&
		(!isValueString || (languageMapping == "" && directionMapping == "")) {
		return value["@value"], nil
	}

	rval := make(map[string]interface{})
	if preserveIndex {
		rval[c.keywordAlias("@index")] = value["@index"]
	}
	if hasType {
		compactedType, err := c.compactIri(stringValue(valueType), nil, true, false)
		if err != nil {
			return nil, err
		}
		rval[c.keywordAlias("@type")] = compactedType
	} else if hasLanguage {
		rval[c.keywordAlias("@language")] = lang
	}
	if hasDirection {
		rval[c.keywordAlias("@direction")] = dir
	}
	rval[c.keywordAlias("@value")] = value["@value"]
	return rval, nil
}
