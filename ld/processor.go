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
	"strings"
	"sync"
)

// JsonLdProcessor implements the JsonLdProcessor interface, see
// https://www.w3.org/TR/json-ld11-api/#the-jsonldprocessor-interface
//
// Every operation copies the options it is given, so a single options
// value may be shared between concurrent calls.
type JsonLdProcessor struct { //nolint:stylecheck
}

// NewJsonLdProcessor creates an instance of JsonLdProcessor.
func NewJsonLdProcessor() *JsonLdProcessor { //nolint:stylecheck
	return &JsonLdProcessor{}
}

// prepareOptions copies opts and scopes its document loader to one call.
func prepareOptions(opts *JsonLdOptions) *JsonLdOptions {
	if opts == nil {
		opts = NewJsonLdOptions("")
	} else {
		opts = opts.Copy()
	}
	opts.DocumentLoader = newCallScopedLoader(opts.DocumentLoader)
	return opts
}

// unwrapContext returns the value of @context if ctxDoc is a document
// carrying one, and ctxDoc itself otherwise.
func unwrapContext(ctxDoc interface{}) interface{} {
	if ctxMap, isMap := ctxDoc.(map[string]interface{}); isMap {
		if inner, hasCtx := ctxMap["@context"]; hasCtx {
			return inner
		}
	}
	return ctxDoc
}

// isEmptyContext reports whether a context would contribute nothing
// to a compacted document.
func isEmptyContext(ctxDoc interface{}) bool {
	switch v := ctxDoc.(type) {
	case nil:
		return true
	case map[string]interface{}:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	default:
		return false
	}
}

// attachContext adds the context to a compacted document, collapsing a
// single-element context array when compactArrays is set.
func attachContext(compacted map[string]interface{}, ctxDoc interface{}, compactArrays bool) {
	if isEmptyContext(ctxDoc) {
		return
	}
	if ctxList, isList := ctxDoc.([]interface{}); isList && len(ctxList) == 1 && compactArrays {
		ctxDoc = ctxList[0]
	}
	compacted["@context"] = ctxDoc
}

// Compact operation compacts the given input using the context according to the steps
// in the Compaction algorithm: https://www.w3.org/TR/json-ld11-api/#compaction-algorithm
//
// The context is included under @context only when opts.EmbedContext is set.
func (jldp *JsonLdProcessor) Compact(ctx context.Context, input interface{}, localContext interface{},
	opts *JsonLdOptions) (map[string]interface{}, error) {

	opts = prepareOptions(opts)

	expanded, err := jldp.expand(ctx, input, opts)
	if err != nil {
		return nil, err
	}

	localContext = unwrapContext(CloneDocument(localContext))
	activeCtx, err := NewContext(opts).Parse(ctx, localContext)
	if err != nil {
		return nil, NewJsonLdError(InvalidContextForCompaction, err)
	}

	api := NewJsonLdApi()
	compacted, err := api.Compact(ctx, activeCtx, "", expanded, opts.CompactArrays)
	if err != nil {
		return nil, err
	}

	rval := wrapGraph(activeCtx, compacted, opts.OmitGraph)
	if opts.EmbedContext {
		attachContext(rval, localContext, opts.CompactArrays)
	}
	return rval, nil
}

// wrapGraph turns a compacted array into a document keyed by the @graph
// alias. An empty array becomes an empty document.
func wrapGraph(activeCtx *Context, compacted interface{}, omitGraph bool) map[string]interface{} {
	switch v := compacted.(type) {
	case map[string]interface{}:
		return v
	case []interface{}:
		if len(v) == 0 {
			return make(map[string]interface{})
		}
		if single, isMap := v[0].(map[string]interface{}); isMap && len(v) == 1 && omitGraph {
			return single
		}
		return map[string]interface{}{activeCtx.keywordAlias("@graph"): v}
	default:
		return make(map[string]interface{})
	}
}

// Expand operation expands the given input according to the steps in the Expansion algorithm:
// https://www.w3.org/TR/json-ld11-api/#expansion-algorithm
func (jldp *JsonLdProcessor) Expand(ctx context.Context, input interface{}, opts *JsonLdOptions) ([]interface{}, error) {
	return jldp.expand(ctx, input, prepareOptions(opts))
}

// loadInput dereferences input when it is an IRI or a remote document.
// It returns the document and the IRI of a context linked from it.
func (jldp *JsonLdProcessor) loadInput(ctx context.Context, input interface{}, opts *JsonLdOptions) (interface{}, string, error) {
	var rd *RemoteDocument
	documentURL := ""
	switch v := input.(type) {
	case *RemoteDocument:
		rd = v
		documentURL = v.DocumentURL
	case string:
		if !strings.Contains(v, ":") {
			return input, "", nil
		}
		if opts.DocumentLoader == nil {
			return nil, "", NewJsonLdError(LoadingDocumentFailed, "no document loader configured for "+v)
		}
		var err error
		if rd, err = opts.DocumentLoader.LoadDocument(ctx, v); err != nil {
			if ErrorCodeOf(err) == "" {
				return nil, "", newLoadError(LoadingDocumentFailed, err)
			}
			return nil, "", err
		}
		// loaded documents may be shared cache entries and are never modified
		documentURL = rd.DocumentURL
		if documentURL == "" {
			documentURL = v
		}
	default:
		return input, "", nil
	}

	switch rd.Document.(type) {
	case map[string]interface{}, []interface{}:
	default:
		return nil, "", NewJsonLdError(LoadingDocumentFailed, "not a JSON-LD document: "+documentURL)
	}

	// a base set in options overrides the document's own IRI
	if opts.Base == "" {
		opts.Base = documentURL
	}
	return rd.Document, rd.ContextURL, nil
}

func (jldp *JsonLdProcessor) expand(ctx context.Context, input interface{}, opts *JsonLdOptions) ([]interface{}, error) {
	document, remoteContext, err := jldp.loadInput(ctx, input, opts)
	if err != nil {
		return nil, err
	}

	activeCtx := NewContext(opts)

	if opts.ExpandContext != nil {
		exCtx := unwrapContext(CloneDocument(opts.ExpandContext))
		if activeCtx, err = activeCtx.Parse(ctx, exCtx); err != nil {
			return nil, err
		}
	}

	// a linked context applies before the document's own @context
	if remoteContext != "" {
		if activeCtx, err = activeCtx.Parse(ctx, remoteContext); err != nil {
			return nil, err
		}
	}

	api := NewJsonLdApi()
	expanded, err := api.Expand(ctx, activeCtx, "", document, opts)
	if err != nil {
		return nil, err
	}

	// final step of Expansion Algorithm
	switch v := expanded.(type) {
	case nil:
		return make([]interface{}, 0), nil
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		if len(v) == 0 {
			return make([]interface{}, 0), nil
		}
		if graph, hasGraph := v["@graph"]; hasGraph && len(v) == 1 {
			return Arrayify(graph), nil
		}
	}
	return []interface{}{expanded}, nil
}

// Flatten operation flattens the given input and compacts it using the passed context
// according to the steps in the Flattening algorithm:
// https://www.w3.org/TR/json-ld11-api/#flattening-algorithm
//
// With a nil context the result is the flattened []interface{}; otherwise it is a
// compacted document with the nodes under @graph.
func (jldp *JsonLdProcessor) Flatten(ctx context.Context, input interface{}, localContext interface{},
	opts *JsonLdOptions) (interface{}, error) {

	opts = prepareOptions(opts)

	expanded, err := jldp.expand(ctx, input, opts)
	if err != nil {
		return nil, err
	}

	api := NewJsonLdApi()
	flattened, err := api.Flatten(expanded, opts)
	if err != nil {
		return nil, err
	}

	if localContext == nil {
		return flattened, nil
	}

	localContext = unwrapContext(CloneDocument(localContext))
	activeCtx, err := NewContext(opts).Parse(ctx, localContext)
	if err != nil {
		return nil, NewJsonLdError(InvalidContextForCompaction, err)
	}

	compacted, err := api.Compact(ctx, activeCtx, "", flattened, opts.CompactArrays)
	if err != nil {
		return nil, err
	}
	if _, isList := compacted.([]interface{}); !isList {
		compacted = []interface{}{compacted}
	}

	var rval map[string]interface{}
	if compactedList := compacted.([]interface{}); len(compactedList) == 0 {
		rval = map[string]interface{}{activeCtx.keywordAlias("@graph"): compactedList}
	} else {
		rval = wrapGraph(activeCtx, compactedList, opts.OmitGraph)
	}
	if opts.EmbedContext {
		attachContext(rval, localContext, opts.CompactArrays)
	}
	return rval, nil
}

var (
	serializersMu  sync.RWMutex
	rdfSerializers = map[string]RDFSerializer{
		ApplicationNQuadsType: &NQuadRDFSerializer{},
		"application/nquads":  &NQuadRDFSerializer{}, // keep this option for backward compatibility
		FormatCayleyNQuads:    &CayleyNQuadRDFSerializer{},
	}
)

// FormatCayleyNQuads selects N-Quads read and written by the Cayley codec.
const FormatCayleyNQuads = "application/x-cayley-nquads"

// RegisterRDFSerializer makes a serializer available under the given format name.
func RegisterRDFSerializer(format string, serializer RDFSerializer) {
	serializersMu.Lock()
	defer serializersMu.Unlock()
	rdfSerializers[format] = serializer
}

func serializerFor(format string) (RDFSerializer, error) {
	serializersMu.RLock()
	defer serializersMu.RUnlock()
	serializer, found := rdfSerializers[format]
	if !found {
		return nil, NewJsonLdError(UnknownFormat, format)
	}
	return serializer, nil
}

// FromRDF converts an RDF dataset to JSON-LD.
//
// dataset: an *RDFDataset, or RDF text (string, []byte or io.Reader) in the format
// given by opts.Format, N-Quads by default.
//
// Returns the expanded JSON-LD as []interface{}.
func (jldp *JsonLdProcessor) FromRDF(ctx context.Context, dataset interface{}, opts *JsonLdOptions) (interface{}, error) {
	opts = prepareOptions(opts)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, isDataset := dataset.(*RDFDataset)
	if !isDataset {
		format := opts.Format
		if format == "" {
			format = ApplicationNQuadsType
		}
		serializer, err := serializerFor(format)
		if err != nil {
			return nil, err
		}
		if ds, err = serializer.Parse(dataset); err != nil {
			return nil, err
		}
	}

	api := NewJsonLdApi()
	return api.FromRDF(ds, opts)
}

// ToRDF outputs the RDF dataset found in the given JSON-LD object.
//
// The result is an *RDFDataset, or a string when opts.Format names a
// registered serializer.
func (jldp *JsonLdProcessor) ToRDF(ctx context.Context, input interface{}, opts *JsonLdOptions) (interface{}, error) {
	opts = prepareOptions(opts)

	dataset, err := jldp.toRDF(ctx, input, opts)
	if err != nil {
		return nil, err
	}

	if opts.Format != "" {
		serializer, err := serializerFor(opts.Format)
		if err != nil {
			return nil, err
		}
		return serializer.Serialize(dataset)
	}
	return dataset, nil
}

func (jldp *JsonLdProcessor) toRDF(ctx context.Context, input interface{}, opts *JsonLdOptions) (*RDFDataset, error) {
	expanded, err := jldp.expand(ctx, input, opts)
	if err != nil {
		return nil, err
	}

	api := NewJsonLdApi()
	nodeMap := NewNodeMap()
	if err := api.GenerateNodeMap(expanded, nodeMap, NewIdentifierIssuer("_:b"), opts); err != nil {
		return nil, err
	}
	return api.ToRDF(nodeMap, opts)
}

// Normalize performs RDF dataset canonicalization (URDNA2015) on the given
// input, which is JSON-LD or an *RDFDataset. The output is an *RDFDataset
// with canonical blank node labels, or the sorted canonical N-Quads as a
// string when opts.Format is set.
func (jldp *JsonLdProcessor) Normalize(ctx context.Context, input interface{}, opts *JsonLdOptions) (interface{}, error) {
	opts = prepareOptions(opts)

	dataset, isDataset := input.(*RDFDataset)
	if !isDataset {
		var err error
		if dataset, err = jldp.toRDF(ctx, input, opts); err != nil {
			return nil, err
		}
	}

	api := NewJsonLdApi()
	quads, err := api.Normalize(ctx, dataset)
	if err != nil {
		return nil, err
	}

	normalized := NewRDFDataset()
	for _, q := range quads {
		normalized.AddQuad(q)
	}

	if opts.Format == "" {
		return normalized, nil
	}
	serializer, err := serializerFor(opts.Format)
	if err != nil {
		return nil, err
	}
	if _, isNQuads := serializer.(*NQuadRDFSerializer); isNQuads {
		// canonical N-Quads are sorted across graphs
		var sb strings.Builder
		for _, q := range quads {
			sb.WriteString(toNQuad(q))
		}
		return sb.String(), nil
	}
	return serializer.Serialize(normalized)
}
