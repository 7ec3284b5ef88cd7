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
	"regexp"
	"strings"
	"sync"

	"bitbucket.org/creachadair/stringset"
)

// Context is an active context: an immutable snapshot of the term
// definitions and defaults in effect at some point of a document.
// Parse never modifies its receiver, so a Context may be shared freely
// between goroutines.
type Context struct {
	options        *JsonLdOptions
	processingMode string

	// base is the resolved base IRI, "" when there is none
	base             string
	vocab            string
	defaultLanguage  string
	defaultDirection string

	terms     *termTable
	protected stringset.Set
	// previous is the context to revert to when leaving a node object
	// processed under a non-propagated (type-scoped) context
	previous *Context

	ownsTerms     bool
	ownsProtected bool

	inverseOnce sync.Once
	inverse     *inverseContext
}

// NewContext creates and returns a new, empty active context.
func NewContext(options *JsonLdOptions) *Context {
	if options == nil {
		options = NewJsonLdOptions("")
	}
	mode := options.ProcessingMode
	if mode == "" {
		mode = JsonLd_1_1
	}
	return &Context{
		options:        options,
		processingMode: mode,
		base:           options.Base,
		terms:          newTermTable(),
		protected:      stringset.New(),
		ownsTerms:      true,
		ownsProtected:  true,
	}
}

// clone returns a shallow copy of c sharing its term table and protected
// set; both are copied on first write.
func (c *Context) clone() *Context {
	return &Context{
		options:          c.options,
		processingMode:   c.processingMode,
		base:             c.base,
		vocab:            c.vocab,
		defaultLanguage:  c.defaultLanguage,
		defaultDirection: c.defaultDirection,
		terms:            c.terms,
		protected:        c.protected,
		previous:         c.previous,
	}
}

func (c *Context) setTerm(term string, td *TermDefinition) {
	if !c.ownsTerms {
		c.terms = c.terms.derive()
		c.ownsTerms = true
	}
	c.terms.set(term, td)
}

func (c *Context) removeTerm(term string) {
	if _, found := c.terms.get(term); !found {
		return
	}
	if !c.ownsTerms {
		c.terms = c.terms.derive()
		c.ownsTerms = true
	}
	c.terms.remove(term)
}

func (c *Context) setProtected(term string, protected bool) {
	if c.protected.Contains(term) == protected {
		return
	}
	if !c.ownsProtected {
		c.protected = c.protected.Clone()
		c.ownsProtected = true
	}
	if protected {
		c.protected.Add(term)
	} else {
		c.protected.Discard(term)
	}
}

// Base returns the base IRI of the context.
func (c *Context) Base() string { return c.base }

// Vocab returns the vocabulary mapping, or "" if none is set.
func (c *Context) Vocab() string { return c.vocab }

// DefaultLanguage returns the lower-cased default language, or "".
func (c *Context) DefaultLanguage() string { return c.defaultLanguage }

// DefaultDirection returns the default base direction, or "".
func (c *Context) DefaultDirection() string { return c.defaultDirection }

// ProcessingMode returns json-ld-1.0 or json-ld-1.1.
func (c *Context) ProcessingMode() string { return c.processingMode }

// Previous returns the context a non-propagated context reverts to, or nil.
func (c *Context) Previous() *Context { return c.previous }

// Options returns the options the context was created with.
func (c *Context) Options() *JsonLdOptions { return c.options }

// ProtectedTerms returns the protected terms in lexicographic order.
func (c *Context) ProtectedTerms() []string {
	return c.protected.Elements()
}

// Terms returns all defined terms in lexicographic order.
func (c *Context) Terms() []string {
	return c.terms.terms()
}

// GetTermDefinition returns the definition of term, or nil.
func (c *Context) GetTermDefinition(term string) *TermDefinition {
	td, _ := c.terms.get(term)
	return td
}

// revertToPrevious drops a non-propagated context.
func (c *Context) revertToPrevious() *Context {
	if c.previous == nil {
		return c
	}
	return c.previous
}

type parseParams struct {
	// remoteContexts holds the remote contexts dereferenced in the current
	// chain; each nesting level gets its own copy
	remoteContexts stringset.Set
	// validated holds scoped context IRIs already checked in this call
	validated         stringset.Set
	baseURL           string
	overrideProtected bool
	propagate         bool
	validateScoped    bool
	depth             *int
}

func (c *Context) newParseParams(baseURL string) parseParams {
	if baseURL == "" {
		baseURL = c.options.Base
	}
	return parseParams{
		remoteContexts: stringset.New(),
		validated:      stringset.New(),
		baseURL:        baseURL,
		propagate:      true,
		validateScoped: true,
		depth:          new(int),
	}
}

func (p parseParams) enter(max int) error {
	*p.depth++
	if *p.depth > max {
		return NewJsonLdError(ContextOverflow, fmt.Sprintf("context processing exceeded %d levels", max))
	}
	return nil
}

func (p parseParams) leave() {
	*p.depth--
}

// Parse processes a local context, retrieving any URLs as necessary, and
// returns a new active context.
// Refer to http://www.w3.org/TR/json-ld11-api/#context-processing-algorithm for details
func (c *Context) Parse(ctx context.Context, localContext interface{}) (*Context, error) {
	return c.parse(ctx, localContext, c.newParseParams(""))
}

// parseScoped applies the scoped context of td. Scoped contexts may
// override protected terms; type-scoped ones are not propagated.
func (c *Context) parseScoped(ctx context.Context, td *TermDefinition, propagate bool) (*Context, error) {
	p := c.newParseParams(td.BaseURL)
	p.overrideProtected = true
	p.propagate = propagate
	return c.parse(ctx, td.Context, p)
}

func (c *Context) parse(ctx context.Context, localContext interface{}, p parseParams) (*Context, error) {
	if m, isMap := localContext.(map[string]interface{}); isMap {
		if inner, hasContext := m["@context"]; hasContext && len(m) == 1 {
			localContext = inner
		}
	}
	contexts := Arrayify(localContext)
	if len(contexts) == 0 {
		return c, nil
	}

	// @propagate on the first context overrides the caller's choice
	if first, isMap := contexts[0].(map[string]interface{}); isMap {
		if propagate, hasPropagate := first["@propagate"].(bool); hasPropagate {
			p.propagate = propagate
		}
	}

	result := c
	if !p.propagate && result.previous == nil {
		result = result.clone()
		result.previous = c
	}

	for _, local := range contexts {
		if err := p.enter(c.options.maxContextDepth()); err != nil {
			return nil, err
		}
		next, err := result.parseOne(ctx, local, c, p)
		p.leave()
		if err != nil {
			return nil, err
		}
		result = next
	}
	return result, nil
}

func (c *Context) parseOne(ctx context.Context, local interface{}, original *Context, p parseParams) (*Context, error) {
	switch v := local.(type) {
	case nil:
		if !p.overrideProtected && c.protected.Len() > 0 {
			return nil, NewJsonLdError(InvalidContextNullification,
				"tried to nullify a context with protected terms outside of a term definition")
		}
		result := NewContext(c.options)
		result.processingMode = c.processingMode
		if !p.propagate {
			result.previous = original
		}
		return result, nil
	case *Context:
		return v, nil
	case string:
		return c.parseRemote(ctx, v, p)
	case map[string]interface{}:
		return c.processContextMap(ctx, v, p)
	default:
		return nil, NewJsonLdError(InvalidLocalContext, local)
	}
}

// loadContextDocument dereferences a remote context or import and returns
// its @context member.
func (c *Context) loadContextDocument(ctx context.Context, uri string) (interface{}, string, error) {
	loader := c.options.DocumentLoader
	if loader == nil {
		return nil, "", NewJsonLdError(LoadingRemoteContextFailed, "no document loader configured for "+uri)
	}
	rd, err := loader.LoadDocument(ctx, uri)
	if err != nil {
		return nil, "", newLoadError(LoadingRemoteContextFailed, fmt.Errorf("dereferencing context %s: %w", uri, err))
	}
	docMap, isMap := rd.Document.(map[string]interface{})
	if !isMap {
		return nil, "", NewJsonLdError(InvalidRemoteContext, uri+" is not a JSON object")
	}
	remote, hasContext := docMap["@context"]
	if !hasContext {
		return nil, "", NewJsonLdError(InvalidRemoteContext, uri+" has no @context member")
	}
	documentURL := rd.DocumentURL
	if documentURL == "" {
		documentURL = uri
	}
	return remote, documentURL, nil
}

func (c *Context) parseRemote(ctx context.Context, ref string, p parseParams) (*Context, error) {
	uri := Resolve(p.baseURL, ref)
	if p.remoteContexts.Contains(uri) {
		return nil, NewJsonLdError(CyclicIRIMapping, "recursive inclusion of remote context "+uri)
	}
	remote, documentURL, err := c.loadContextDocument(ctx, uri)
	if err != nil {
		return nil, err
	}

	chain := p.remoteContexts.Clone()
	chain.Add(uri)
	np := p
	np.remoteContexts = chain
	np.baseURL = documentURL
	return c.parse(ctx, remote, np)
}

// termIRIForm matches terms that look like compact IRIs or IRIs.
var termIRIForm = regexp.MustCompile(`(?::[^:])|/`)

func (c *Context) processContextMap(ctx context.Context, local map[string]interface{}, p parseParams) (*Context, error) {
	result := c.clone()
	mode10 := c.processingMode == JsonLd_1_0

	// @version
	if v, has := local["@version"]; has {
		if n, isNum := numberValue(v); !isNum || n != 1.1 {
			return nil, NewJsonLdError(InvalidVersionValue, v)
		}
		if mode10 {
			return nil, NewJsonLdError(ProcessingModeConflict, "@version 1.1 in json-ld-1.0 mode")
		}
		result.processingMode = JsonLd_1_1
	}

	// @import merges a remote context map under the local entries
	if v, has := local["@import"]; has {
		if mode10 {
			return nil, NewJsonLdError(InvalidContextEntry, "@import requires json-ld-1.1")
		}
		ref, isString := v.(string)
		if !isString {
			return nil, NewJsonLdError(InvalidImportValue, v)
		}
		if err := p.enter(c.options.maxContextDepth()); err != nil {
			return nil, err
		}
		imported, err := c.loadImport(ctx, Resolve(p.baseURL, ref))
		p.leave()
		if err != nil {
			return nil, err
		}
		merged := make(map[string]interface{}, len(imported)+len(local))
		for k, val := range imported {
			merged[k] = val
		}
		for k, val := range local {
			if k != "@import" {
				merged[k] = val
			}
		}
		local = merged
	}

	// @base is only honoured outside remote contexts
	if v, has := local["@base"]; has && p.remoteContexts.Len() == 0 {
		switch base := v.(type) {
		case nil:
			result.base = ""
		case string:
			switch {
			case IsAbsoluteIri(base):
				result.base = base
			case result.base != "":
				result.base = Resolve(result.base, base)
			default:
				return nil, NewJsonLdError(InvalidBaseIRI, "relative @base without a base IRI: "+base)
			}
		default:
			return nil, NewJsonLdError(InvalidBaseIRI, "@base must be a string or null")
		}
	}

	// @vocab
	if v, has := local["@vocab"]; has {
		switch vocab := v.(type) {
		case nil:
			result.vocab = ""
		case string:
			if mode10 && !IsAbsoluteIri(vocab) {
				return nil, NewJsonLdError(InvalidVocabMapping, "@vocab must be an absolute IRI in json-ld-1.0 mode")
			}
			expanded, ok, err := result.expandIri(vocab, true, true, nil)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, NewJsonLdError(InvalidVocabMapping, vocab)
			}
			result.vocab = expanded
		default:
			return nil, NewJsonLdError(InvalidVocabMapping, "@vocab must be a string or null")
		}
	}

	// @language
	if v, has := local["@language"]; has {
		switch lang := v.(type) {
		case nil:
			result.defaultLanguage = ""
		case string:
			if !wellFormedLanguage(lang) {
				c.options.logger().Warn("ill-formed default language", "language", lang)
			}
			result.defaultLanguage = strings.ToLower(lang)
		default:
			return nil, NewJsonLdError(InvalidDefaultLanguage, v)
		}
	}

	// @direction
	if v, has := local["@direction"]; has {
		if mode10 {
			return nil, NewJsonLdError(InvalidContextEntry, "@direction requires json-ld-1.1")
		}
		switch dir := v.(type) {
		case nil:
			result.defaultDirection = ""
		case string:
			if dir != "ltr" && dir != "rtl" {
				return nil, NewJsonLdError(InvalidBaseDirection, dir)
			}
			result.defaultDirection = dir
		default:
			return nil, NewJsonLdError(InvalidBaseDirection, v)
		}
	}

	// @propagate was applied by parse; only validate here
	if v, has := local["@propagate"]; has {
		if mode10 {
			return nil, NewJsonLdError(InvalidContextEntry, "@propagate requires json-ld-1.1")
		}
		if _, isBool := v.(bool); !isBool {
			return nil, NewJsonLdError(InvalidPropagateValue, v)
		}
	}

	protectedDefault := false
	if v, has := local["@protected"]; has {
		b, isBool := v.(bool)
		if !isBool {
			return nil, NewJsonLdError(InvalidProtectedValue, v)
		}
		protectedDefault = b
	}

	d := &termDefiner{
		active:            result,
		local:             local,
		defined:           make(map[string]bool),
		protectedDefault:  protectedDefault,
		overrideProtected: p.overrideProtected,
		baseURL:           p.baseURL,
	}

	for _, term := range GetOrderedKeys(local) {
		switch term {
		case "@base", "@direction", "@import", "@language", "@propagate", "@protected", "@version", "@vocab":
			continue
		}
		if err := d.define(term); err != nil {
			return nil, err
		}
		if !p.validateScoped {
			continue
		}
		if td, found := result.terms.get(term); found && td.HasContext {
			if err := result.validateScopedContext(ctx, td, p); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

func (c *Context) loadImport(ctx context.Context, uri string) (map[string]interface{}, error) {
	remote, _, err := c.loadContextDocument(ctx, uri)
	if err != nil {
		return nil, err
	}
	imported, isMap := remote.(map[string]interface{})
	if !isMap {
		return nil, NewJsonLdError(InvalidRemoteContext, "imported context "+uri+" must be a single JSON object")
	}
	if _, nested := imported["@import"]; nested {
		return nil, NewJsonLdError(InvalidContextEntry, "imported context "+uri+" contains @import")
	}
	return imported, nil
}

// validateScopedContext processes a scoped context once at definition time
// so that errors surface with the enclosing context.
func (c *Context) validateScopedContext(ctx context.Context, td *TermDefinition, p parseParams) error {
	if ref, isString := td.Context.(string); isString {
		uri := Resolve(td.BaseURL, ref)
		if p.validated.Contains(uri) {
			return nil
		}
		p.validated.Add(uri)
	}
	np := p
	np.overrideProtected = true
	np.propagate = true
	np.baseURL = td.BaseURL
	if _, err := c.parse(ctx, td.Context, np); err != nil {
		if ErrorCodeOf(err).Kind() == KindLoad {
			return err
		}
		return NewJsonLdError(InvalidScopedContext, err)
	}
	return nil
}

// termDefiner creates the term definitions of one local context map.
type termDefiner struct {
	active            *Context
	local             map[string]interface{}
	defined           map[string]bool
	protectedDefault  bool
	overrideProtected bool
	baseURL           string
}

func (d *termDefiner) warn(msg, term string) {
	d.active.options.logger().Warn(msg, "term", term)
	d.defined[term] = true
}

// define creates the term definition for term as described in
// https://www.w3.org/TR/json-ld11-api/#create-term-definition
func (d *termDefiner) define(term string) error {
	if done, seen := d.defined[term]; seen {
		if done {
			return nil
		}
		return NewJsonLdError(CyclicIRIMapping, term)
	}
	d.defined[term] = false

	active := d.active
	mode10 := active.processingMode == JsonLd_1_0
	value := d.local[term]
	valueMap, isMap := value.(map[string]interface{})

	switch {
	case term == "@type" && isMap && !mode10:
		if len(valueMap) == 0 {
			return NewJsonLdError(KeywordRedefinition, "@type must not be redefined with an empty definition")
		}
		for k, v := range valueMap {
			switch k {
			case "@container":
				if v != "@set" {
					return NewJsonLdError(KeywordRedefinition, "@type may only be redefined as a @set container")
				}
			case "@protected":
			default:
				return NewJsonLdError(KeywordRedefinition, "invalid @type redefinition key: "+k)
			}
		}
	case IsKeyword(term):
		return NewJsonLdError(KeywordRedefinition, term)
	case hasKeywordForm(term):
		d.warn("ignoring term with the form of a keyword", term)
		return nil
	case term == "":
		return NewJsonLdError(InvalidTermDefinition, "a term must not be an empty string")
	}

	previous, hadPrevious := active.terms.get(term)
	active.removeTerm(term)
	restore := func() {
		if hadPrevious {
			active.setTerm(term, previous)
		}
	}

	simpleTerm := false
	switch value.(type) {
	case string, nil:
		simpleTerm = true
		valueMap = map[string]interface{}{"@id": value}
	case map[string]interface{}:
	default:
		return NewJsonLdError(InvalidTermDefinition, value)
	}

	for k := range valueMap {
		switch k {
		case "@container", "@id", "@language", "@reverse", "@type":
			continue
		case "@context", "@direction", "@index", "@nest", "@prefix", "@protected":
			if !mode10 {
				continue
			}
		}
		return NewJsonLdError(InvalidTermDefinition, fmt.Sprintf("term %s has an invalid key %s", term, k))
	}

	td := &TermDefinition{}
	colon := strings.Index(term, ":")
	td.termHasColon = colon > 0
	mapped := false

	if rev, has := valueMap["@reverse"]; has {
		if _, hasID := valueMap["@id"]; hasID {
			return NewJsonLdError(InvalidReverseProperty, term+" has both @reverse and @id")
		}
		if _, hasNest := valueMap["@nest"]; hasNest {
			return NewJsonLdError(InvalidReverseProperty, term+" has both @reverse and @nest")
		}
		revStr, isString := rev.(string)
		if !isString {
			return NewJsonLdError(InvalidIRIMapping, fmt.Sprintf("expected a string for @reverse, got %v", rev))
		}
		if !IsKeyword(revStr) && hasKeywordForm(revStr) {
			restore()
			d.warn("ignoring @reverse with the form of a keyword", term)
			return nil
		}
		id, ok, err := d.expandIri(revStr, false, true)
		if err != nil {
			return err
		}
		if !ok || !IsAbsoluteIri(id) {
			return NewJsonLdError(InvalidIRIMapping, "non-absolute @reverse IRI: "+revStr)
		}
		td.ID = id
		td.Reverse = true
		mapped = true
	} else if idVal, has := valueMap["@id"]; has {
		switch id := idVal.(type) {
		case nil:
			// null mapping: the term is reserved and expands to nothing
			mapped = true
		case string:
			if !IsKeyword(id) && hasKeywordForm(id) {
				restore()
				d.warn("ignoring @id with the form of a keyword", term)
				return nil
			}
			if id == term {
				break
			}
			expanded, ok, err := d.expandIri(id, false, true)
			if err != nil {
				return err
			}
			if !ok || (!IsKeyword(expanded) && !IsAbsoluteIri(expanded)) {
				return NewJsonLdError(InvalidIRIMapping,
					"resulting IRI mapping should be a keyword, absolute IRI or blank node: "+id)
			}
			if expanded == "@context" {
				return NewJsonLdError(InvalidKeywordAlias, "cannot alias @context")
			}
			if termIRIForm.MatchString(term) {
				// a term that looks like an IRI must expand to the same IRI
				d.defined[term] = true
				termIRI, _, err := d.expandIri(term, false, true)
				d.defined[term] = false
				if err != nil {
					return err
				}
				if termIRI != expanded {
					return NewJsonLdError(InvalidIRIMapping,
						fmt.Sprintf("term %s expands to %s, not to its IRI mapping %s", term, termIRI, expanded))
				}
			}
			td.ID = expanded
			td.Prefix = simpleTerm && !td.termHasColon && !strings.Contains(term, "/") && endsWithGenDelim(expanded)
			mapped = true
		default:
			return NewJsonLdError(InvalidIRIMapping, "expected value of @id to be a string")
		}
	}

	if !mapped {
		switch {
		case td.termHasColon:
			prefix, suffix := term[:colon], term[colon+1:]
			if _, inLocal := d.local[prefix]; inLocal {
				if err := d.define(prefix); err != nil {
					return err
				}
			}
			if ptd, found := active.terms.get(prefix); found && !ptd.IsNull() {
				td.ID = ptd.ID + suffix
			} else {
				td.ID = term
			}
		case strings.Contains(term, "/"):
			// a relative IRI term
			expanded, ok, err := d.expandIri(term, false, true)
			if err != nil {
				return err
			}
			if !ok || !IsAbsoluteIri(expanded) {
				return NewJsonLdError(InvalidIRIMapping, "relative IRI term without a mapping: "+term)
			}
			td.ID = expanded
		case term == "@type":
			td.ID = "@type"
		case active.vocab != "":
			td.ID = active.vocab + term
		default:
			return NewJsonLdError(InvalidIRIMapping, "relative term definition without vocab mapping: "+term)
		}
	}

	if pv, has := valueMap["@protected"]; has {
		b, isBool := pv.(bool)
		if !isBool {
			return NewJsonLdError(InvalidProtectedValue, pv)
		}
		td.Protected = b
	} else {
		td.Protected = d.protectedDefault
	}

	d.defined[term] = true

	if tv, has := valueMap["@type"]; has {
		typ, isString := tv.(string)
		if !isString {
			return NewJsonLdError(InvalidTypeMapping, tv)
		}
		switch typ {
		case "@json", "@none":
			if mode10 {
				return NewJsonLdError(InvalidTypeMapping, typ+" type mapping requires json-ld-1.1")
			}
		case "@id", "@vocab":
		default:
			expanded, ok, err := d.expandIri(typ, false, true)
			if err != nil {
				return err
			}
			if !ok || !IsAbsoluteIri(expanded) || IsBlankNodeIdentifier(expanded) {
				return NewJsonLdError(InvalidTypeMapping, typ)
			}
			typ = expanded
		}
		td.Type = typ
	}

	if cv, has := valueMap["@container"]; has && cv != nil {
		container, err := ParseContainer(cv, active.processingMode)
		if err != nil {
			return err
		}
		if container.Has(ContainerType) {
			if td.Type == "" {
				td.Type = "@id"
			}
			if td.Type != "@id" && td.Type != "@vocab" {
				return NewJsonLdError(InvalidTypeMapping, "type maps require a type mapping of @id or @vocab")
			}
		}
		if td.Reverse && container.Without(ContainerIndex|ContainerSet) != ContainerNone {
			return NewJsonLdError(InvalidReverseProperty, "reverse properties only support set and index containers")
		}
		td.Container = container
	}

	if iv, has := valueMap["@index"]; has {
		if !td.Container.Has(ContainerIndex) {
			return NewJsonLdError(InvalidTermDefinition, "@index without an @index container in "+term)
		}
		idx, isString := iv.(string)
		if !isString || strings.HasPrefix(idx, "@") {
			return NewJsonLdError(InvalidTermDefinition, fmt.Sprintf("invalid @index value %v in %s", iv, term))
		}
		td.Index = idx
	}

	if sc, has := valueMap["@context"]; has {
		td.Context = sc
		td.HasContext = true
		td.BaseURL = d.baseURL
	}

	if lv, has := valueMap["@language"]; has {
		if _, hasType := valueMap["@type"]; !hasType {
			switch lang := lv.(type) {
			case nil:
				td.HasLanguage = true
			case string:
				if !wellFormedLanguage(lang) {
					d.active.options.logger().Warn("ill-formed language mapping", "term", term, "language", lang)
				}
				td.Language = strings.ToLower(lang)
				td.HasLanguage = true
			default:
				return NewJsonLdError(InvalidLanguageMapping, lv)
			}
		}
	}

	if pv, has := valueMap["@prefix"]; has {
		if strings.ContainsAny(term, ":/") {
			return NewJsonLdError(InvalidTermDefinition, "@prefix used on a compact IRI or relative IRI term: "+term)
		}
		b, isBool := pv.(bool)
		if !isBool {
			return NewJsonLdError(InvalidPrefixValue, pv)
		}
		if b && IsKeyword(td.ID) {
			return NewJsonLdError(InvalidTermDefinition, "keyword alias "+term+" cannot be a prefix")
		}
		td.Prefix = b
	}

	if dv, has := valueMap["@direction"]; has {
		switch dir := dv.(type) {
		case nil:
			td.HasDirection = true
		case string:
			if dir != "ltr" && dir != "rtl" {
				return NewJsonLdError(InvalidBaseDirection, dir)
			}
			td.Direction = dir
			td.HasDirection = true
		default:
			return NewJsonLdError(InvalidBaseDirection, dv)
		}
	}

	if nv, has := valueMap["@nest"]; has {
		nest, isString := nv.(string)
		if !isString || (nest != "@nest" && strings.HasPrefix(nest, "@")) {
			return NewJsonLdError(InvalidNestValue, nv)
		}
		td.Nest = nest
	}

	if hadPrevious && previous.Protected && !d.overrideProtected {
		if !previous.equalIgnoringProtected(td) {
			return NewJsonLdError(ProtectedTermRedefinition, "attempt to redefine protected term "+term)
		}
		active.setTerm(term, previous)
		return nil
	}

	active.setTerm(term, td)
	active.setProtected(term, td.Protected)
	return nil
}

// expandIri expands value while the local context is being processed,
// defining any term it depends on first.
func (d *termDefiner) expandIri(value string, relative, vocab bool) (string, bool, error) {
	return d.active.expandIri(value, relative, vocab, d)
}

func endsWithGenDelim(iri string) bool {
	if iri == "" {
		return false
	}
	return strings.ContainsRune(":/?#[]@", rune(iri[len(iri)-1]))
}

// ExpandIri expands a string value to a full IRI. The string may be a term,
// a compact IRI, a relative IRI, or an absolute IRI. The second result is
// false when value expands to null.
// See https://www.w3.org/TR/json-ld11-api/#iri-expansion
func (c *Context) ExpandIri(value string, relative bool, vocab bool) (string, bool) {
	rval, ok, _ := c.expandIri(value, relative, vocab, nil)
	return rval, ok
}

func (c *Context) expandIri(value string, relative, vocab bool, d *termDefiner) (string, bool, error) {
	if IsKeyword(value) {
		return value, true, nil
	}
	if hasKeywordForm(value) {
		return "", false, nil
	}

	if d != nil {
		if _, inLocal := d.local[value]; inLocal {
			if err := d.define(value); err != nil {
				return "", false, err
			}
		}
	}

	if vocab {
		if td, found := c.terms.get(value); found {
			if td.IsNull() {
				return "", false, nil
			}
			return td.ID, true, nil
		}
	}

	if colon := strings.Index(value, ":"); colon > 0 {
		prefix, suffix := value[:colon], value[colon+1:]
		if prefix == "_" || strings.HasPrefix(suffix, "//") {
			return value, true, nil
		}
		if d != nil {
			if _, inLocal := d.local[prefix]; inLocal {
				if err := d.define(prefix); err != nil {
					return "", false, err
				}
			}
		}
		if td, found := c.terms.get(prefix); found && !td.IsNull() &&
			(td.Prefix || c.processingMode == JsonLd_1_0) {
			return td.ID + suffix, true, nil
		}
		if IsAbsoluteIri(value) {
			return value, true, nil
		}
	}

	if vocab && c.vocab != "" {
		return c.vocab + value, true, nil
	}
	if relative {
		if c.base == "" {
			return value, true, nil
		}
		return Resolve(c.base, value), true, nil
	}
	return value, true, nil
}

// GetContainer returns the container mapping of property.
func (c *Context) GetContainer(property string) Container {
	if td, found := c.terms.get(property); found {
		return td.Container
	}
	return ContainerNone
}

// IsReverseProperty returns true if property is a reverse property.
func (c *Context) IsReverseProperty(property string) bool {
	td, found := c.terms.get(property)
	return found && td.Reverse
}

// GetTypeMapping returns the type coercion of property, or "".
func (c *Context) GetTypeMapping(property string) string {
	if td, found := c.terms.get(property); found {
		return td.Type
	}
	return ""
}

// GetLanguageMapping returns the language applied to plain strings of
// property: the term's own language mapping, or the default language.
func (c *Context) GetLanguageMapping(property string) string {
	if td, found := c.terms.get(property); found && td.HasLanguage {
		return td.Language
	}
	return c.defaultLanguage
}

// GetDirectionMapping returns the base direction applied to plain strings of property.
func (c *Context) GetDirectionMapping(property string) string {
	if td, found := c.terms.get(property); found && td.HasDirection {
		return td.Direction
	}
	return c.defaultDirection
}
