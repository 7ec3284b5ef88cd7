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
	"bytes"
	stdjson "encoding/json"
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// DocumentFromReader returns a document containing the contents of the JSON resource,
// streamed from the given Reader. Objects decode to map[string]interface{},
// arrays to []interface{} and numbers to float64.
func DocumentFromReader(r io.Reader) (interface{}, error) {
	var document interface{}
	if err := json.UnmarshalRead(r, &document); err != nil {
		return nil, NewJsonLdError(LoadingDocumentFailed, err)
	}
	return document, nil
}

// ParseDocument decodes a JSON document held in memory.
func ParseDocument(b []byte) (interface{}, error) {
	return DocumentFromReader(bytes.NewReader(b))
}

// MarshalDocument encodes a document with object keys in sorted order, so the
// output is stable across runs. An indent of "" produces compact output.
func MarshalDocument(document interface{}, indent string) ([]byte, error) {
	opts := []json.Options{json.Deterministic(true)}
	if indent != "" {
		opts = append(opts, jsontext.WithIndent(indent))
	}
	return json.Marshal(nativeNumbers(document), opts...)
}

// canonicalJSON serialises a @json literal value using the JSON
// Canonicalization Scheme (RFC 8785).
func canonicalJSON(value interface{}) (string, error) {
	b, err := json.Marshal(nativeNumbers(value))
	if err != nil {
		return "", err
	}
	v := jsontext.Value(b)
	if err := v.Canonicalize(); err != nil {
		return "", err
	}
	return string(v), nil
}

// parseJSONLiteral is the inverse of canonicalJSON.
func parseJSONLiteral(lexical string) (interface{}, error) {
	var value interface{}
	if err := json.Unmarshal([]byte(lexical), &value); err != nil {
		return nil, err
	}
	return value, nil
}

// nativeNumbers replaces json.Number values produced by UseNumber decoders
// with float64. Containers are copied only when they hold one.
func nativeNumbers(value interface{}) interface{} {
	v, _ := convertNumbers(value)
	return v
}

func convertNumbers(value interface{}) (interface{}, bool) {
	switch v := value.(type) {
	case stdjson.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
		return v.String(), true
	case map[string]interface{}:
		var clone map[string]interface{}
		for k, val := range v {
			n, changed := convertNumbers(val)
			if !changed {
				continue
			}
			if clone == nil {
				clone = make(map[string]interface{}, len(v))
				for k2, val2 := range v {
					clone[k2] = val2
				}
			}
			clone[k] = n
		}
		if clone != nil {
			return clone, true
		}
	case []interface{}:
		var clone []interface{}
		for i, val := range v {
			n, changed := convertNumbers(val)
			if !changed {
				continue
			}
			if clone == nil {
				clone = append([]interface{}(nil), v...)
			}
			clone[i] = n
		}
		if clone != nil {
			return clone, true
		}
	}
	return value, false
}
