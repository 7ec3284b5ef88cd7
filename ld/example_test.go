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

package ld_test

import (
	"context"
	"fmt"
	"log"

	"github.com/piprate/jsonld-engine/ld"
)

func printDocument(doc interface{}) {
	b, err := ld.MarshalDocument(doc, "")
	if err != nil {
		log.Println("Error when serialising JSON-LD document:", err)
		return
	}
	fmt.Println(string(b))
}

func ExampleJsonLdProcessor_Expand() {
	proc := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")

	doc := map[string]interface{}{
		"@context": map[string]interface{}{
			"@vocab": "http://schema.org/",
			"url":    map[string]interface{}{"@type": "@id"},
		},
		"@type":    "Person",
		"name":     "Jane Doe",
		"jobTitle": "Professor",
		"url":      "http://www.janedoe.com",
	}

	expanded, err := proc.Expand(context.Background(), doc, options)
	if err != nil {
		log.Println("Error when expanding JSON-LD document:", err)
		return
	}

	printDocument(expanded)

	// Output:
	// [{"@type":["http://schema.org/Person"],"http://schema.org/jobTitle":[{"@value":"Professor"}],"http://schema.org/name":[{"@value":"Jane Doe"}],"http://schema.org/url":[{"@id":"http://www.janedoe.com"}]}]
}

func ExampleJsonLdProcessor_Compact() {
	proc := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")

	doc := map[string]interface{}{
		"@id": "http://example.org/test#book",
		"http://example.org/vocab#contains": map[string]interface{}{
			"@id": "http://example.org/test#chapter",
		},
		"http://purl.org/dc/elements/1.1/title": "Title",
	}

	ctxDoc := map[string]interface{}{
		"@context": map[string]interface{}{
			"dc": "http://purl.org/dc/elements/1.1/",
			"ex": "http://example.org/vocab#",
			"ex:contains": map[string]interface{}{
				"@type": "@id",
			},
		},
	}

	options.EmbedContext = true

	compactedDoc, err := proc.Compact(context.Background(), doc, ctxDoc, options)
	if err != nil {
		log.Println("Error when compacting JSON-LD document:", err)
		return
	}

	printDocument(compactedDoc)

	// Output:
	// {"@context":{"dc":"http://purl.org/dc/elements/1.1/","ex":"http://example.org/vocab#","ex:contains":{"@type":"@id"}},"@id":"http://example.org/test#book","dc:title":"Title","ex:contains":"http://example.org/test#chapter"}
}

func ExampleJsonLdProcessor_Flatten() {
	proc := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")

	doc := map[string]interface{}{
		"@context": []interface{}{
			map[string]interface{}{
				"name": "http://xmlns.com/foaf/0.1/name",
				"homepage": map[string]interface{}{
					"@id":   "http://xmlns.com/foaf/0.1/homepage",
					"@type": "@id",
				},
			},
			map[string]interface{}{
				"ical": "http://www.w3.org/2002/12/cal/ical#",
			},
		},
		"@id":           "http://example.com/speakers#Alice",
		"name":          "Alice",
		"homepage":      "http://xkcd.com/177/",
		"ical:summary":  "Alice Talk",
		"ical:location": "Lyon Convention Centre, Lyon, France",
	}

	flattenedDoc, err := proc.Flatten(context.Background(), doc, nil, options)
	if err != nil {
		log.Println("Error when flattening JSON-LD document:", err)
		return
	}

	printDocument(flattenedDoc)

	// Output:
	// [{"@id":"http://example.com/speakers#Alice","http://www.w3.org/2002/12/cal/ical#location":[{"@value":"Lyon Convention Centre, Lyon, France"}],"http://www.w3.org/2002/12/cal/ical#summary":[{"@value":"Alice Talk"}],"http://xmlns.com/foaf/0.1/homepage":[{"@id":"http://xkcd.com/177/"}],"http://xmlns.com/foaf/0.1/name":[{"@value":"Alice"}]}]
}

func ExampleJsonLdProcessor_ToRDF() {
	proc := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")
	options.Format = "application/n-quads"
	options.Ordered = true

	doc := map[string]interface{}{
		"@context": map[string]interface{}{"@vocab": "http://schema.org/"},
		"@id":      "http://example.org/jane",
		"@type":    "Person",
		"name":     "Jane Doe",
		"jobTitle": "Professor",
	}

	triples, err := proc.ToRDF(context.Background(), doc, options)
	if err != nil {
		log.Println("Error running ToRDF:", err)
		return
	}

	fmt.Print(triples)

	// Output:
	// <http://example.org/jane> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://schema.org/Person> .
	// <http://example.org/jane> <http://schema.org/jobTitle> "Professor" .
	// <http://example.org/jane> <http://schema.org/name> "Jane Doe" .
}

func ExampleJsonLdProcessor_FromRDF() {
	proc := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")

	triples := `
		<http://example.com/Subj1> <http://example.com/prop1> <http://example.com/Obj1> .
		<http://example.com/Subj1> <http://example.com/prop2> "Plain" .
		<http://example.com/Subj1> <http://example.com/prop3> "English"@en .
	`

	doc, err := proc.FromRDF(context.Background(), triples, options)
	if err != nil {
		log.Println("Error running FromRDF:", err)
		return
	}

	printDocument(doc)

	// Output:
	// [{"@id":"http://example.com/Subj1","http://example.com/prop1":[{"@id":"http://example.com/Obj1"}],"http://example.com/prop2":[{"@value":"Plain"}],"http://example.com/prop3":[{"@language":"en","@value":"English"}]}]
}

func ExampleJsonLdProcessor_Normalize() {
	proc := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")
	options.Format = "application/n-quads"

	doc := map[string]interface{}{
		"@context": map[string]interface{}{
			"ex": "http://example.org/vocab#",
		},
		"@id":   "http://example.org/test#example",
		"@type": "ex:Foo",
		"ex:embed": map[string]interface{}{
			"@type": "ex:Bar",
		},
	}

	normalizedTriples, err := proc.Normalize(context.Background(), doc, options)
	if err != nil {
		log.Println("Error running Normalize:", err)
		return
	}

	fmt.Print(normalizedTriples)

	// Output:
	// <http://example.org/test#example> <http://example.org/vocab#embed> _:c14n0 .
	// <http://example.org/test#example> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/vocab#Foo> .
	// _:c14n0 <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/vocab#Bar> .
}

func ExampleCachingDocumentLoader() {
	loader := ld.NewCachingDocumentLoader(ld.NewDefaultDocumentLoader(nil))
	loader.AddDocument("http://example.org/person.jsonld", map[string]interface{}{
		"@context": map[string]interface{}{"name": "http://schema.org/name"},
	})

	options := ld.NewJsonLdOptions("")
	options.DocumentLoader = loader

	doc := map[string]interface{}{
		"@context": "http://example.org/person.jsonld",
		"name":     "Manu",
	}

	expanded, err := ld.NewJsonLdProcessor().Expand(context.Background(), doc, options)
	if err != nil {
		log.Println("Error when expanding JSON-LD document:", err)
		return
	}

	printDocument(expanded)

	// Output:
	// [{"http://schema.org/name":[{"@value":"Manu"}]}]
}
