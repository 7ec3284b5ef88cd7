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
	"log/slog"
)

const (
	JsonLd_1_0 = "json-ld-1.0" //nolint:stylecheck
	JsonLd_1_1 = "json-ld-1.1" //nolint:stylecheck

	// RdfDirectionI18NDatatype encodes @direction in the literal datatype IRI.
	RdfDirectionI18NDatatype = "i18n-datatype"

	// DefaultMaxContextDepth bounds the number of nested context processing
	// steps (array entries, remote contexts, imports, scoped contexts).
	DefaultMaxContextDepth = 256
)

// JsonLdOptions type as specified in the JSON-LD-API specification:
// http://www.w3.org/TR/json-ld-api/#the-jsonldoptions-type
type JsonLdOptions struct { //nolint:stylecheck

	// Base options: http://www.w3.org/TR/json-ld-api/#idl-def-JsonLdOptions

	// http://www.w3.org/TR/json-ld-api/#widl-JsonLdOptions-base
	Base string
	// http://www.w3.org/TR/json-ld-api/#widl-JsonLdOptions-compactArrays
	CompactArrays bool
	// CompactToRelative controls whether IRIs are compacted relative to the base.
	CompactToRelative bool
	// http://www.w3.org/TR/json-ld-api/#widl-JsonLdOptions-expandContext
	ExpandContext interface{}
	// http://www.w3.org/TR/json-ld-api/#widl-JsonLdOptions-processingMode
	ProcessingMode string
	// http://www.w3.org/TR/json-ld-api/#widl-JsonLdOptions-documentLoader
	DocumentLoader DocumentLoader
	// Ordered requests lexicographic ordering wherever the algorithms
	// would otherwise follow input order (RDF subjects and graphs).
	Ordered bool
	// OmitGraph drops the top-level @graph wrapper for single-node results.
	OmitGraph bool
	// EmbedContext attaches the supplied context under @context in Compact
	// and Flatten results. By default only the compacted body is returned.
	EmbedContext bool

	// RDF conversion options: http://www.w3.org/TR/json-ld-api/#serialize-rdf-as-json-ld-algorithm

	UseRdfType            bool
	UseNativeTypes        bool
	ProduceGeneralizedRdf bool
	RdfDirection          string

	// The following properties are processor extensions

	// Format selects the RDF serialisation used by ToRDF output and
	// FromRDF/Normalize string input, e.g. "application/n-quads".
	Format string
	// StrictMerge makes node map generation fail on conflicting @index
	// values for the same node instead of keeping the first one.
	StrictMerge bool
	// StrictLists makes FromRDF fail on malformed rdf:first/rdf:rest chains
	// instead of leaving them as ordinary nodes.
	StrictLists bool
	// MaxContextDepth bounds context processing; zero means DefaultMaxContextDepth.
	MaxContextDepth int
	// Logger receives warnings about dropped data. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewJsonLdOptions creates and returns new instance of JsonLdOptions with the given base.
func NewJsonLdOptions(base string) *JsonLdOptions { //nolint:stylecheck
	return &JsonLdOptions{
		Base:                  base,
		CompactArrays:         true,
		CompactToRelative:     true,
		ProcessingMode:        JsonLd_1_1,
		DocumentLoader:        NewDefaultDocumentLoader(nil),
		Ordered:               false,
		OmitGraph:             false,
		EmbedContext:          false,
		UseRdfType:            false,
		UseNativeTypes:        false,
		ProduceGeneralizedRdf: false,
		Format:                "",
		StrictMerge:           false,
		StrictLists:           false,
		MaxContextDepth:       DefaultMaxContextDepth,
	}
}

// Copy creates a deep copy of JsonLdOptions object.
func (opt *JsonLdOptions) Copy() *JsonLdOptions {
	return &JsonLdOptions{
		Base:                  opt.Base,
		CompactArrays:         opt.CompactArrays,
		CompactToRelative:     opt.CompactToRelative,
		ExpandContext:         opt.ExpandContext,
		ProcessingMode:        opt.ProcessingMode,
		DocumentLoader:        opt.DocumentLoader,
		Ordered:               opt.Ordered,
		OmitGraph:             opt.OmitGraph,
		EmbedContext:          opt.EmbedContext,
		UseRdfType:            opt.UseRdfType,
		UseNativeTypes:        opt.UseNativeTypes,
		ProduceGeneralizedRdf: opt.ProduceGeneralizedRdf,
		RdfDirection:          opt.RdfDirection,
		Format:                opt.Format,
		StrictMerge:           opt.StrictMerge,
		StrictLists:           opt.StrictLists,
		MaxContextDepth:       opt.MaxContextDepth,
		Logger:                opt.Logger,
	}
}

func (opt *JsonLdOptions) logger() *slog.Logger {
	if opt == nil || opt.Logger == nil {
		return slog.Default()
	}
	return opt.Logger
}

func (opt *JsonLdOptions) maxContextDepth() int {
	if opt == nil || opt.MaxContextDepth <= 0 {
		return DefaultMaxContextDepth
	}
	return opt.MaxContextDepth
}
