package composing

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Asset is a stylesheet or script of a fragment that has to be moved
// into the head of the root template
type Asset struct {
	StartOffset int
	EndOffset   int
	Markup      string
}

// ParsedDocument is everything the composer needs to know about a document
type ParsedDocument struct {
	Includes []IncludedService
	Assets   []Asset
	// ContentStart and ContentEnd delimit the inner markup of the first
	// content element, both -1 when there is none
	ContentStart int
	ContentEnd   int
	// HeadEnd is the offset of the first </head> tag or -1
	HeadEnd int
}

// HasContent reports whether the document declares a content element
func (d ParsedDocument) HasContent() bool {
	return d.ContentStart >= 0 && d.ContentEnd >= d.ContentStart
}

// Parser finds include, content and asset elements in html documents
type Parser struct {
	IncludeTag     string
	ContentTag     string
	AssetAttribute string
}

// NewParser returns a parser for the given element and attribute names
func NewParser(includeTag string, contentTag string, assetAttribute string) Parser {
	return Parser{
		IncludeTag:     strings.ToLower(includeTag),
		ContentTag:     strings.ToLower(contentTag),
		AssetAttribute: strings.ToLower(assetAttribute),
	}
}

var assetTags = map[string]bool{"link": true, "script": true, "style": true}

type parseState struct {
	body []byte
	doc  ParsedDocument

	// open include
	include      *IncludedService
	innerStart   int
	nestedOpened int

	// open asset element
	assetStart int
	assetTag   string
}

// Parse scans body once with the html tokenizer. offsets are byte
// offsets into body, includes are returned in document order and never
// overlap. an include missing its end tag is ignored. the tokenizer
// emits no tags inside raw text and RCDATA elements (<title>,
// <textarea>, <script>, <style>), so includes placed there are not found
func (p Parser) Parse(body []byte) ParsedDocument {
	z := html.NewTokenizer(bytes.NewReader(body))
	state := parseState{
		body:       body,
		doc:        ParsedDocument{ContentStart: -1, ContentEnd: -1, HeadEnd: -1},
		assetStart: -1,
	}

	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		start := offset
		offset += len(z.Raw())

		var name string
		var attrs map[string]string
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken || tt == html.EndTagToken {
			rawName, hasAttr := z.TagName()
			name = string(rawName)
			if tt != html.EndTagToken {
				attrs = readAttributes(z, hasAttr)
			}
		}

		if state.include != nil {
			p.continueInclude(&state, tt, name, start, offset)
			continue
		}

		switch tt {
		case html.StartTagToken:
			p.startTag(&state, name, attrs, start, offset)
		case html.SelfClosingTagToken:
			p.selfClosingTag(&state, name, attrs, start, offset)
		case html.EndTagToken:
			p.endTag(&state, name, start, offset)
		}
	}

	return state.doc
}

func readAttributes(z *html.Tokenizer, hasAttr bool) map[string]string {
	attrs := map[string]string{}
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if _, exists := attrs[string(key)]; !exists {
			attrs[string(key)] = string(val)
		}
	}
	return attrs
}

func (p Parser) continueInclude(state *parseState, tt html.TokenType, name string, start int, end int) {
	if name != p.IncludeTag {
		return
	}

	switch tt {
	case html.StartTagToken:
		state.nestedOpened++
	case html.EndTagToken:
		if state.nestedOpened > 0 {
			state.nestedOpened--
			return
		}
		include := *state.include
		include.Inner = string(state.body[state.innerStart:start])
		include.EndOffset = end
		state.doc.Includes = append(state.doc.Includes, include)
		state.include = nil
	}
}

func (p Parser) startTag(state *parseState, name string, attrs map[string]string, start int, end int) {
	switch {
	case name == p.IncludeTag:
		state.include = &IncludedService{StartOffset: start, Attributes: attrs}
		state.innerStart = end
		state.nestedOpened = 0
	case name == p.ContentTag && p.ContentTag != "":
		if state.doc.ContentStart < 0 {
			state.doc.ContentStart = end
		}
	case p.isAsset(name, attrs):
		if name == "link" {
			p.addAsset(state, start, end)
			return
		}
		if state.assetStart < 0 {
			state.assetStart = start
			state.assetTag = name
		}
	}
}

func (p Parser) selfClosingTag(state *parseState, name string, attrs map[string]string, start int, end int) {
	switch {
	case name == p.IncludeTag:
		state.doc.Includes = append(state.doc.Includes, IncludedService{
			StartOffset: start,
			EndOffset:   end,
			Attributes:  attrs,
		})
	case p.isAsset(name, attrs):
		p.addAsset(state, start, end)
	}
}

func (p Parser) endTag(state *parseState, name string, start int, end int) {
	switch {
	case name == p.ContentTag && p.ContentTag != "":
		if state.doc.ContentStart >= 0 && state.doc.ContentEnd < 0 {
			state.doc.ContentEnd = start
		}
	case name == "head":
		if state.doc.HeadEnd < 0 {
			state.doc.HeadEnd = start
		}
	case state.assetStart >= 0 && name == state.assetTag:
		state.doc.Assets = append(state.doc.Assets, Asset{
			StartOffset: state.assetStart,
			EndOffset:   end,
			Markup:      string(state.body[state.assetStart:end]),
		})
		state.assetStart = -1
		state.assetTag = ""
	}
}

func (p Parser) isAsset(name string, attrs map[string]string) bool {
	if p.AssetAttribute == "" || !assetTags[name] {
		return false
	}
	_, ok := attrs[p.AssetAttribute]
	return ok
}

func (p Parser) addAsset(state *parseState, start int, end int) {
	state.doc.Assets = append(state.doc.Assets, Asset{
		StartOffset: start,
		EndOffset:   end,
		Markup:      string(state.body[start:end]),
	})
}
