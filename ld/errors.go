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
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is a JSON-LD error code as defined by the JSON-LD 1.1 API.
type ErrorCode string

// JsonLdError is a JSON-LD processing error.
// See the allowed values and error messages below.
type JsonLdError struct { //nolint:stylecheck
	Code    ErrorCode
	Details interface{}
}

const (
	LoadingDocumentFailed       ErrorCode = "loading document failed"
	LoadingDocumentTimeout      ErrorCode = "loading document timeout"
	InvalidIndexValue           ErrorCode = "invalid @index value"
	ConflictingIndexes          ErrorCode = "conflicting indexes"
	InvalidIDValue              ErrorCode = "invalid @id value"
	InvalidLocalContext         ErrorCode = "invalid local context"
	MultipleContextLinkHeaders  ErrorCode = "multiple context link headers"
	LoadingRemoteContextFailed  ErrorCode = "loading remote context failed"
	InvalidRemoteContext        ErrorCode = "invalid remote context"
	ContextOverflow             ErrorCode = "context overflow"
	InvalidBaseIRI              ErrorCode = "invalid base IRI"
	InvalidVocabMapping         ErrorCode = "invalid vocab mapping"
	InvalidDefaultLanguage      ErrorCode = "invalid default language"
	KeywordRedefinition         ErrorCode = "keyword redefinition"
	InvalidTermDefinition       ErrorCode = "invalid term definition"
	InvalidReverseProperty      ErrorCode = "invalid reverse property"
	InvalidIRIMapping           ErrorCode = "invalid IRI mapping"
	CyclicIRIMapping            ErrorCode = "cyclic IRI mapping"
	InvalidKeywordAlias         ErrorCode = "invalid keyword alias"
	InvalidTypeMapping          ErrorCode = "invalid type mapping"
	InvalidLanguageMapping      ErrorCode = "invalid language mapping"
	CollidingKeywords           ErrorCode = "colliding keywords"
	InvalidContainerMapping     ErrorCode = "invalid container mapping"
	InvalidTypeValue            ErrorCode = "invalid type value"
	InvalidValueObject          ErrorCode = "invalid value object"
	InvalidValueObjectValue     ErrorCode = "invalid value object value"
	InvalidLanguageTaggedString ErrorCode = "invalid language-tagged string"
	InvalidLanguageTaggedValue  ErrorCode = "invalid language-tagged value"
	InvalidTypedValue           ErrorCode = "invalid typed value"
	InvalidSetOrListObject      ErrorCode = "invalid set or list object"
	InvalidLanguageMapValue     ErrorCode = "invalid language map value"
	InvalidReversePropertyMap   ErrorCode = "invalid reverse property map"
	InvalidReverseValue         ErrorCode = "invalid @reverse value"
	InvalidReversePropertyValue ErrorCode = "invalid reverse property value"
	InvalidVersionValue         ErrorCode = "invalid @version value"
	ProcessingModeConflict      ErrorCode = "processing mode conflict"
	InvalidPrefixValue          ErrorCode = "invalid @prefix value"
	InvalidNestValue            ErrorCode = "invalid @nest value"
	InvalidContextNullification ErrorCode = "invalid context nullification"
	ProtectedTermRedefinition   ErrorCode = "protected term redefinition"
	InvalidContextEntry         ErrorCode = "invalid context entry"
	InvalidPropagateValue       ErrorCode = "invalid @propagate value"
	InvalidBaseDirection        ErrorCode = "invalid base direction"
	InvalidIncludedValue        ErrorCode = "invalid @included value"
	InvalidImportValue          ErrorCode = "invalid @import value"
	InvalidScopedContext        ErrorCode = "invalid scoped context"
	InvalidProtectedValue       ErrorCode = "invalid @protected value"
	IRIConfusedWithPrefix       ErrorCode = "IRI confused with prefix"
	ListOfLists                 ErrorCode = "list of lists"
	InvalidContextForCompaction ErrorCode = "invalid context for compaction"
	InvalidRDFList              ErrorCode = "invalid RDF list"

	// processor-specific errors
	SyntaxError     ErrorCode = "syntax error"
	NotImplemented  ErrorCode = "not implemented"
	UnknownFormat   ErrorCode = "unknown format"
	InvalidInput    ErrorCode = "invalid input"
	ParseError      ErrorCode = "parse error"
	IOError         ErrorCode = "io error"
	InvalidProperty ErrorCode = "invalid property"
	UnknownError    ErrorCode = "unknown error"
)

// ErrorKind groups error codes by the processing stage that raises them.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindContext
	KindExpansion
	KindFlattening
	KindCompaction
	KindRDF
	KindLoad
	KindSyntax
)

var errorKindNames = map[ErrorKind]string{
	KindUnknown:    "unknown",
	KindContext:    "context",
	KindExpansion:  "expansion",
	KindFlattening: "flattening",
	KindCompaction: "compaction",
	KindRDF:        "rdf",
	KindLoad:       "load",
	KindSyntax:     "syntax",
}

func (k ErrorKind) String() string {
	return errorKindNames[k]
}

var errorKinds = map[ErrorCode]ErrorKind{
	LoadingDocumentFailed:      KindLoad,
	LoadingDocumentTimeout:     KindLoad,
	LoadingRemoteContextFailed: KindLoad,
	MultipleContextLinkHeaders: KindLoad,
	IOError:                    KindLoad,

	InvalidLocalContext:         KindContext,
	InvalidRemoteContext:        KindContext,
	ContextOverflow:             KindContext,
	InvalidBaseIRI:              KindContext,
	InvalidVocabMapping:         KindContext,
	InvalidDefaultLanguage:      KindContext,
	KeywordRedefinition:         KindContext,
	InvalidTermDefinition:       KindContext,
	InvalidReverseProperty:      KindContext,
	InvalidIRIMapping:           KindContext,
	CyclicIRIMapping:            KindContext,
	InvalidKeywordAlias:         KindContext,
	InvalidTypeMapping:          KindContext,
	InvalidLanguageMapping:      KindContext,
	InvalidContainerMapping:     KindContext,
	InvalidVersionValue:         KindContext,
	ProcessingModeConflict:      KindContext,
	InvalidPrefixValue:          KindContext,
	InvalidNestValue:            KindContext,
	InvalidContextNullification: KindContext,
	ProtectedTermRedefinition:   KindContext,
	InvalidContextEntry:         KindContext,
	InvalidPropagateValue:       KindContext,
	InvalidBaseDirection:        KindContext,
	InvalidImportValue:          KindContext,
	InvalidScopedContext:        KindContext,
	InvalidProtectedValue:       KindContext,
	IRIConfusedWithPrefix:       KindContext,

	CollidingKeywords:           KindExpansion,
	InvalidTypeValue:            KindExpansion,
	InvalidValueObject:          KindExpansion,
	InvalidValueObjectValue:     KindExpansion,
	InvalidLanguageTaggedString: KindExpansion,
	InvalidLanguageTaggedValue:  KindExpansion,
	InvalidSetOrListObject:      KindExpansion,
	InvalidLanguageMapValue:     KindExpansion,
	InvalidReversePropertyMap:   KindExpansion,
	InvalidReverseValue:         KindExpansion,
	InvalidReversePropertyValue: KindExpansion,
	InvalidIndexValue:           KindExpansion,
	InvalidIncludedValue:        KindExpansion,
	ListOfLists:                 KindExpansion,

	ConflictingIndexes: KindFlattening,
	InvalidIDValue:     KindFlattening,

	InvalidContextForCompaction: KindCompaction,

	InvalidTypedValue: KindRDF,
	InvalidRDFList:    KindRDF,
	UnknownFormat:     KindRDF,

	SyntaxError: KindSyntax,
	ParseError:  KindSyntax,
}

// Kind returns the processing stage the error code belongs to.
func (c ErrorCode) Kind() ErrorKind {
	return errorKinds[c]
}

func (e JsonLdError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%v: %v", e.Code, e.Details)
	}
	return fmt.Sprintf("%v", e.Code)
}

// Unwrap returns JsonLdError.Details if it is an error, otherwise nil.
func (e JsonLdError) Unwrap() error {
	cause, _ := e.Details.(error)
	return cause
}

// NewJsonLdError creates a new instance of JsonLdError.
func NewJsonLdError(code ErrorCode, details interface{}) *JsonLdError { //nolint:stylecheck
	return &JsonLdError{Code: code, Details: details}
}

// HTTPStatusError reports a non-success response from a remote server.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("bad response status code %d for %s", e.StatusCode, e.URL)
}

// ErrorCodeOf returns the code of the outermost JsonLdError in the chain,
// or an empty code if err carries none.
func ErrorCodeOf(err error) ErrorCode {
	var jsonLdErr *JsonLdError
	if errors.As(err, &jsonLdErr) {
		return jsonLdErr.Code
	}
	return ""
}

// IsLoadError returns true if err was raised while loading a document or
// remote context, as opposed to processing a malformed document.
func IsLoadError(err error) bool {
	return ErrorCodeOf(err).Kind() == KindLoad
}

// IsRetryable returns true if repeating the failed operation may succeed.
// Only load errors are retryable; client-side HTTP failures and caller
// cancellation are not.
func IsRetryable(err error) bool {
	if err == nil || !IsLoadError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}
	var jsonLdErr *JsonLdError
	for errors.As(err, &jsonLdErr) {
		if jsonLdErr.Code == MultipleContextLinkHeaders {
			return false
		}
		next := jsonLdErr.Unwrap()
		if next == nil {
			break
		}
		err = next
	}
	return true
}

// newLoadError wraps a loader failure, reporting deadline expiry as a timeout.
func newLoadError(code ErrorCode, err error) *JsonLdError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewJsonLdError(LoadingDocumentTimeout, err)
	}
	return NewJsonLdError(code, err)
}
