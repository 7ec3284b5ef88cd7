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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// NQuadRDFSerializer parses and serializes N-Quads.
type NQuadRDFSerializer struct {
}

// Parse N-Quads from a string, []byte or io.Reader into an RDFDataset.
func (s *NQuadRDFSerializer) Parse(input interface{}) (*RDFDataset, error) {
	return ParseNQuadsFrom(input)
}

// SerializeTo writes RDFDataset as N-Quads into a writer, default graph
// first and named graphs in dataset order.
func (s *NQuadRDFSerializer) SerializeTo(w io.Writer, dataset *RDFDataset) error {
	bw := bufio.NewWriter(w)
	for _, graphName := range dataset.GraphNames() {
		for _, quad := range dataset.Graphs[graphName] {
			if _, err := bw.WriteString(toNQuad(quad)); err != nil {
				return NewJsonLdError(IOError, err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return NewJsonLdError(IOError, err)
	}
	return nil
}

// Serialize an RDFDataset into N-Quad string.
func (s *NQuadRDFSerializer) Serialize(dataset *RDFDataset) (interface{}, error) {
	buf := bytes.NewBuffer(nil)
	if err := s.SerializeTo(buf, dataset); err != nil {
		return nil, err
	}
	return buf.String(), nil
}

// toNQuad renders a single quad as an N-Quads statement, including the
// trailing newline.
func toNQuad(q *Quad) string {
	var sb strings.Builder
	writeTerm(&sb, q.Subject)
	sb.WriteByte(' ')
	writeTerm(&sb, q.Predicate)
	sb.WriteByte(' ')
	writeTerm(&sb, q.Object)
	if q.Graph != nil {
		sb.WriteByte(' ')
		writeTerm(&sb, q.Graph)
	}
	sb.WriteString(" .\n")
	return sb.String()
}

func writeTerm(sb *strings.Builder, n Node) {
	switch v := n.(type) {
	case *IRI:
		sb.WriteByte('<')
		sb.WriteString(escapeIRI(v.Value))
		sb.WriteByte('>')
	case *BlankNode:
		sb.WriteString(v.Attribute)
	case *Literal:
		sb.WriteByte('"')
		sb.WriteString(escape(v.Value))
		sb.WriteByte('"')
		if v.Datatype == RDFLangString {
			sb.WriteByte('@')
			sb.WriteString(v.Language)
		} else if v.Datatype != XSDString {
			sb.WriteString("^^<")
			sb.WriteString(escapeIRI(v.Datatype))
			sb.WriteByte('>')
		}
	}
}

// escape applies the N-Quads ECHAR escapes to a literal's lexical form and
// writes other control characters as UCHAR.
func escape(str string) string {
	var sb strings.Builder
	for _, r := range str {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7F {
				fmt.Fprintf(&sb, `\u%04X`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}

// escapeIRI writes characters not allowed in an IRIREF as UCHAR.
func escapeIRI(iri string) string {
	if !strings.ContainsAny(iri, "<>\"{}|^`\\") && !hasControl(iri) {
		return iri
	}
	var sb strings.Builder
	for _, r := range iri {
		if r <= 0x20 || strings.ContainsRune("<>\"{}|^`\\", r) {
			fmt.Fprintf(&sb, `\u%04X`, r)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func hasControl(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] <= 0x20 {
			return true
		}
	}
	return false
}

// unescape reverses ECHAR and UCHAR escapes.
func unescape(str string) (string, error) {
	if !strings.ContainsRune(str, '\\') {
		return str, nil
	}
	var sb strings.Builder
	for i := 0; i < len(str); i++ {
		c := str[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		if i+1 >= len(str) {
			return "", fmt.Errorf("dangling escape in %q", str)
		}
		i++
		switch str[i] {
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 'f':
			sb.WriteByte('\f')
		case '"', '\'', '\\':
			sb.WriteByte(str[i])
		case 'u', 'U':
			size := 4
			if str[i] == 'U' {
				size = 8
			}
			if i+size >= len(str) {
				return "", fmt.Errorf("truncated escape in %q", str)
			}
			code, err := strconv.ParseUint(str[i+1:i+1+size], 16, 32)
			if err != nil || !utf8.ValidRune(rune(code)) {
				return "", fmt.Errorf("invalid escape in %q", str)
			}
			sb.WriteRune(rune(code))
			i += size
		default:
			return "", fmt.Errorf("invalid escape \\%c in %q", str[i], str)
		}
	}
	return sb.String(), nil
}

const (
	wso = "[ \\t]*"
	iri = "(?:<([^:]+:[^>]*)>)"

	// https://www.w3.org/TR/n-quads/#grammar-production-BLANK_NODE_LABEL

	pnCharsBase = "A-Z" + "a-z" +
		"\u00C0-\u00D6" +
		"\u00D8-\u00F6" +
		"\u00F8-\u02FF" +
		"\u0370-\u037D" +
		"\u037F-\u1FFF" +
		"\u200C-\u200D" +
		"\u2070-\u218F" +
		"\u2C00-\u2FEF" +
		"\u3001-\uD7FF" +
		"\uF900-\uFDCF" +
		"\uFDF0-\uFFFD" +
		"\U00010000-\U000EFFFF"

	pnCharsU = pnCharsBase + "_"

	pnChars = pnCharsU +
		"0-9" +
		"-" +
		"\u00B7" +
		"\u0300-\u036F" +
		"\u203F-\u2040"

	bnode = "(_:" +
		"(?:[" + pnCharsU + "0-9])" +
		"(?:(?:[" + pnChars + ".])*(?:[" + pnChars + "]))?" +
		")"

	plain    = "\"([^\"\\\\]*(?:\\\\.[^\"\\\\]*)*)\""
	datatype = "(?:\\^\\^" + iri + ")"
	langTag  = "(?:@([a-zA-Z]+(?:-[a-zA-Z0-9]+)*))"
	literal  = "(?:" + plain + "(?:" + datatype + "|" + langTag + ")?)"
	ws       = "[ \\t]+"

	subject  = "(?:" + iri + "|" + bnode + ")" + ws
	property = iri + ws
	object   = "(?:" + iri + "|" + bnode + "|" + literal + ")" + wso
	graph    = "(?:\\.|(?:(?:" + iri + "|" + bnode + ")" + wso + "\\.))"
	comment  = "(?:#.*)?"
)

var (
	regexEmpty = regexp.MustCompile("^" + wso + comment + "$")
	regexQuad  = regexp.MustCompile("^" + wso + subject + property + object + graph + wso + comment + "$")
)

func newScannerFor(o interface{}) (*bufio.Scanner, error) {
	var r io.Reader
	switch inp := o.(type) {
	case []byte:
		r = bytes.NewReader(inp)
	case string:
		r = strings.NewReader(inp)
	case io.Reader:
		r = inp
	default:
		return nil, NewJsonLdError(InvalidInput, "expected []byte, string or io.Reader")
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return scanner, nil
}

// ParseNQuadsFrom parses RDF in the form of N-Quads from io.Reader, []byte or string.
// Duplicate statements within a graph are dropped.
func ParseNQuadsFrom(o interface{}) (*RDFDataset, error) {
	dataset := NewRDFDataset()

	scanner, err := newScannerFor(o)
	if err != nil {
		return nil, err
	}

	lineNumber := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineNumber++

		if regexEmpty.MatchString(line) {
			continue
		}

		match := regexQuad.FindStringSubmatch(line)
		if match == nil {
			return nil, NewJsonLdError(SyntaxError, fmt.Sprintf("invalid N-Quads statement on line %d", lineNumber))
		}

		quad, err := quadFromMatch(match)
		if err != nil {
			return nil, NewJsonLdError(SyntaxError, fmt.Sprintf("line %d: %v", lineNumber, err))
		}
		dataset.AddQuad(quad)
	}
	if err := scanner.Err(); err != nil {
		return nil, NewJsonLdError(IOError, err)
	}

	return dataset, nil
}

func quadFromMatch(match []string) (*Quad, error) {
	var firstErr error
	unesc := func(s string) string {
		u, err := unescape(s)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return u
	}

	var subject Node
	if match[1] != "" {
		subject = NewIRI(unesc(match[1]))
	} else {
		subject = NewBlankNode(match[2])
	}

	predicate := NewIRI(unesc(match[3]))

	var object Node
	switch {
	case match[4] != "":
		object = NewIRI(unesc(match[4]))
	case match[5] != "":
		object = NewBlankNode(match[5])
	default:
		datatype := XSDString
		if match[7] != "" {
			datatype = unesc(match[7])
		} else if match[8] != "" {
			datatype = RDFLangString
		}
		object = NewLiteral(unesc(match[6]), datatype, match[8])
	}

	name := "@default"
	if match[9] != "" {
		name = unesc(match[9])
	} else if match[10] != "" {
		name = match[10]
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return NewQuad(subject, predicate, object, name), nil
}

// ParseNQuads parses RDF in the form of N-Quads.
func ParseNQuads(input string) (*RDFDataset, error) {
	return ParseNQuadsFrom(input)
}
