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

const (
	RDFSyntaxNS string = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSDNS       string = "http://www.w3.org/2001/XMLSchema#"
	I18NNS      string = "https://www.w3.org/ns/i18n#"

	XSDBoolean string = XSDNS + "boolean"
	XSDDouble  string = XSDNS + "double"
	XSDInteger string = XSDNS + "integer"
	XSDString  string = XSDNS + "string"

	RDFType        string = RDFSyntaxNS + "type"
	RDFFirst       string = RDFSyntaxNS + "first"
	RDFRest        string = RDFSyntaxNS + "rest"
	RDFNil         string = RDFSyntaxNS + "nil"
	RDFJSONLiteral string = RDFSyntaxNS + "JSON"
	RDFLangString  string = RDFSyntaxNS + "langString"
	RDFList        string = RDFSyntaxNS + "List"

	// JSON-LD media types and link relations
	ApplicationJSONLDType = "application/ld+json"
	ApplicationJSONType   = "application/json"
	ApplicationNQuadsType = "application/n-quads"
	TextHTMLType          = "text/html"

	LinkHeaderRel = "http://www.w3.org/ns/json-ld#context"
)
