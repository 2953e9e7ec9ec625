// Package extractor implements a type-dispatched incremental meta-file
// extractor: buffer up to FTSMax bytes, scan for URLs, and emit
// fulltext/link/title fields.
package extractor

import (
	"mime"
	"regexp"
)

// FTSMax is the per-submission byte cap for full-text extraction
// buffering.
const FTSMax = 51200

// MetaType is the reserved MIME type for meta-file bodies.
const MetaType = "application/vnd.sln-meta+json; charset=utf-8"

// legacyMetaTypes are accepted on read only.
var legacyMetaTypes = map[string]bool{
	"text/efs-meta+json; charset=utf-8":   true,
	"text/x-sln-meta+json; charset=utf-8": true,
}

// IsMetaType reports whether typ (already normalized) names a meta-file,
// current or legacy.
func IsMetaType(typ string) bool {
	return typ == MetaType || legacyMetaTypes[typ]
}

// linkifyPattern is the "improved regex for matching URLs"
// <http://daringfireball.net/2010/07/improved_regex_for_matching_urls>,
// ported from POSIX ERE to Go's RE2 syntax (RE2 has no backreferences or
// atomic groups, so the balanced-parens alternation collapses to a
// simpler bounded form; this still matches scheme-prefixed,
// www-prefixed, and bare-domain URLs with an optional path/query/
// fragment component).
const linkifyPattern = `(?i)([a-z][a-z0-9_-]+:(//|/{1,3}|[a-z0-9%])|www[0-9]{0,3}\.|[a-z0-9.\-]+\.[a-z]{2,4}/)[^\s()<>]*[^\s` + "`" + `!()\[\]{};:'".,<>?«»]`

// compiledLinkify is shared read-only across extractions: regexp.Regexp
// is safe for concurrent use once compiled.
var compiledLinkify = regexp.MustCompile(linkifyPattern)

// Extractor is a stateful, streaming meta extractor for one submission.
type Extractor struct {
	mimeType string
	title    string

	buf      []byte
	overflow bool
}

// Registry of supported MIME types. A type not present here yields no
// meta body.
var supported = map[string]bool{
	"text/plain; charset=utf-8":    true,
	"text/markdown; charset=utf-8": true,
}

// New constructs an Extractor dispatched on the declared, normalized MIME
// type. title, if non-empty, was supplied out-of-band at submission time,
// independent of whatever a future content-based extractor might infer.
func New(mimeType, title string) *Extractor {
	normalized := mimeType
	if mt, params, err := mime.ParseMediaType(mimeType); err == nil {
		normalized = mime.FormatMediaType(mt, params)
	}
	return &Extractor{mimeType: normalized, title: title}
}

// Supported reports whether mimeType has a registered extractor.
func Supported(mimeType string) bool {
	normalized := mimeType
	if mt, params, err := mime.ParseMediaType(mimeType); err == nil {
		normalized = mime.FormatMediaType(mt, params)
	}
	return supported[normalized]
}

// Write buffers up to FTSMax bytes of buf; anything beyond that is
// silently dropped (truncation, not an error).
func (e *Extractor) Write(buf []byte) {
	if !supported[e.mimeType] {
		return
	}
	if len(e.buf) >= FTSMax {
		e.overflow = true
		return
	}
	room := FTSMax - len(e.buf)
	if len(buf) > room {
		buf = buf[:room]
		e.overflow = true
	}
	e.buf = append(e.buf, buf...)
}

// Body is the set of extracted fields, ready for JSON encoding as a
// meta-file body: a JSON object whose top-level keys are field names and
// whose values are arrays of field values.
type Body struct {
	Fulltext []string `json:"fulltext,omitempty"`
	Link     []string `json:"link,omitempty"`
	Title    []string `json:"title,omitempty"`
}

// End finalizes extraction and returns the meta body fields, or nil if
// the declared type has no registered extractor and no title was
// supplied (an unsupported type with a title still yields a body
// carrying just the title).
func (e *Extractor) End() *Body {
	hasText := supported[e.mimeType]
	if !hasText && e.title == "" {
		return nil
	}

	body := &Body{}
	if e.title != "" {
		body.Title = []string{e.title}
	}
	if !hasText {
		return body
	}

	text := string(e.buf)
	body.Fulltext = []string{text}

	matches := compiledLinkify.FindAllString(text, -1)
	if matches == nil {
		matches = []string{}
	}
	body.Link = matches
	return body
}
