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
	"regexp"
	"strings"
)

// ParsedIRI is an IRI reference split into its RFC 3986 components.
// The Has* flags distinguish an empty component from an absent one.
type ParsedIRI struct {
	Href      string
	Scheme    string
	Authority string
	Path      string
	Query     string
	Fragment  string

	HasScheme    bool
	HasAuthority bool
	HasQuery     bool
	HasFragment  bool
}

// RFC 3986, appendix B
var iriParser = regexp.MustCompile(`^(?:([^:/?#]+):)?(?://([^/?#]*))?([^?#]*)(?:\?([^#]*))?(?:#(.*))?$`)

var absoluteIRI = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+\-.]*|_):[^\s]*$`)

// ParseIRI parses an IRI reference. Every string matches the grammar, so
// parsing never fails.
func ParseIRI(iri string) *ParsedIRI {
	rval := &ParsedIRI{Href: iri}

	idx := iriParser.FindStringSubmatchIndex(iri)
	if idx == nil {
		rval.Path = iri
		return rval
	}
	group := func(n int) (string, bool) {
		start, end := idx[2*n], idx[2*n+1]
		if start < 0 {
			return "", false
		}
		return iri[start:end], true
	}

	rval.Scheme, rval.HasScheme = group(1)
	rval.Authority, rval.HasAuthority = group(2)
	rval.Path, _ = group(3)
	rval.Query, rval.HasQuery = group(4)
	rval.Fragment, rval.HasFragment = group(5)

	return rval
}

// NormalizedPath returns the path with dot segments removed.
func (p *ParsedIRI) NormalizedPath() string {
	return removeDotSegments(p.Path)
}

// String recomposes the IRI reference.
func (p *ParsedIRI) String() string {
	var sb strings.Builder
	if p.HasScheme {
		sb.WriteString(p.Scheme)
		sb.WriteByte(':')
	}
	if p.HasAuthority {
		sb.WriteString("//")
		sb.WriteString(p.Authority)
	}
	sb.WriteString(p.Path)
	if p.HasQuery {
		sb.WriteByte('?')
		sb.WriteString(p.Query)
	}
	if p.HasFragment {
		sb.WriteByte('#')
		sb.WriteString(p.Fragment)
	}
	return sb.String()
}

// removeDotSegments implements RFC 3986 5.2.4.
func removeDotSegments(path string) string {
	if path == "" {
		return ""
	}

	input := strings.Split(path, "/")
	output := make([]string, 0, len(input))
	for i, next := range input {
		done := i == len(input)-1
		switch next {
		case ".":
			if done {
				output = append(output, "")
			}
			continue
		case "..":
			if len(output) > 0 {
				output = output[:len(output)-1]
			}
			if done {
				output = append(output, "")
			}
			continue
		}
		output = append(output, next)
	}

	// keep the leading slash of absolute paths
	if strings.HasPrefix(path, "/") && len(output) > 0 && output[0] != "" {
		output = append([]string{""}, output...)
	}
	if len(output) == 1 && output[0] == "" {
		return "/"
	}
	return strings.Join(output, "/")
}

// Resolve the given IRI reference against the given base IRI (RFC 3986 5.2.2).
// Absolute IRIs and blank node identifiers are returned unchanged.
func Resolve(baseURI string, pathToResolve string) string {
	if IsAbsoluteIri(pathToResolve) {
		return pathToResolve
	}
	if baseURI == "" {
		return pathToResolve
	}

	base := ParseIRI(baseURI)
	rel := ParseIRI(pathToResolve)

	target := &ParsedIRI{
		Scheme:    base.Scheme,
		HasScheme: base.HasScheme,
	}

	if rel.HasAuthority {
		target.Authority, target.HasAuthority = rel.Authority, true
		target.Path = rel.Path
		target.Query, target.HasQuery = rel.Query, rel.HasQuery
	} else {
		target.Authority, target.HasAuthority = base.Authority, base.HasAuthority
		switch {
		case rel.Path == "":
			target.Path = base.Path
			if rel.HasQuery {
				target.Query, target.HasQuery = rel.Query, true
			} else {
				target.Query, target.HasQuery = base.Query, base.HasQuery
			}
		case strings.HasPrefix(rel.Path, "/"):
			target.Path = rel.Path
			target.Query, target.HasQuery = rel.Query, rel.HasQuery
		default:
			// merge paths
			path := base.Path[:strings.LastIndex(base.Path, "/")+1]
			if (len(path) > 0 || base.HasAuthority) && !strings.HasSuffix(path, "/") {
				path += "/"
			}
			target.Path = path + rel.Path
			target.Query, target.HasQuery = rel.Query, rel.HasQuery
		}
	}

	if rel.Path != "" {
		target.Path = removeDotSegments(target.Path)
	}
	target.Fragment, target.HasFragment = rel.Fragment, rel.HasFragment

	rval := target.String()
	if rval == "" {
		rval = "./"
	}
	return rval
}

// RemoveBase returns iri relative to base, or iri itself when it does
// not share the base's scheme and authority.
func RemoveBase(baseURI string, iri string) string {
	if baseURI == "" {
		return iri
	}
	base := ParseIRI(baseURI)

	// establish base root
	root := ""
	if base.Href != "" {
		if base.HasScheme {
			root += base.Scheme + ":"
		}
		root += "//" + base.Authority
	} else if !strings.HasPrefix(iri, "//") {
		// support network-path reference with empty base
		root += "//"
	}

	// IRI not relative to base
	if !strings.HasPrefix(iri, root) {
		return iri
	}

	// remove root from IRI and parse remainder
	rel := ParseIRI(iri[len(root):])

	// remove path segments that match (the last segment is kept unless
	// there is a query or fragment)
	baseSegments := strings.Split(base.NormalizedPath(), "/")
	iriSegments := strings.Split(rel.NormalizedPath(), "/")
	last := 1
	if rel.HasFragment || rel.HasQuery {
		last = 0
	}
	for len(baseSegments) > 0 && len(iriSegments) > last && baseSegments[0] == iriSegments[0] {
		baseSegments = baseSegments[1:]
		iriSegments = iriSegments[1:]
	}

	// use '../' for each non-matching base segment
	var sb strings.Builder
	if len(baseSegments) > 0 {
		// the last base segment is either empty or a file name
		for i := 0; i < len(baseSegments)-1; i++ {
			sb.WriteString("../")
		}
	}

	// prepend remaining segments
	sb.WriteString(strings.Join(iriSegments, "/"))

	if rel.HasQuery {
		sb.WriteString("?" + rel.Query)
	}
	if rel.HasFragment {
		sb.WriteString("#" + rel.Fragment)
	}

	rval := sb.String()
	if rval == "" {
		rval = "./"
	}
	return rval
}

// IsAbsoluteIri returns true if the given value is an absolute IRI or a
// blank node identifier, false if not.
func IsAbsoluteIri(value string) bool {
	return absoluteIRI.MatchString(value)
}

// IsRelativeIri returns true if the given value is a relative IRI, false if not.
func IsRelativeIri(value string) bool {
	return !(IsKeyword(value) || IsAbsoluteIri(value))
}

// IsBlankNodeIdentifier returns true if s is a blank node identifier (_:label).
func IsBlankNodeIdentifier(s string) bool {
	return strings.HasPrefix(s, "_:")
}
