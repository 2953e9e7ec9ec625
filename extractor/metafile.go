package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeMetaBody renders the meta-file body format: the target URI, a
// blank line, then the pretty-printed JSON field map.
func EncodeMetaBody(targetURI string, body *Body) ([]byte, error) {
	fields := map[string][]string{}
	if len(body.Title) > 0 {
		fields["title"] = body.Title
	}
	if len(body.Fulltext) > 0 {
		fields["fulltext"] = body.Fulltext
	}
	if body.Link != nil {
		fields["link"] = body.Link
	}

	payload, err := json.MarshalIndent(fields, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("extractor: encode meta body: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(targetURI)
	buf.WriteString("\r\n\r\n")
	buf.Write(payload)
	return buf.Bytes(), nil
}

// ParseMetaBody decodes a meta-file body into its target URI and generic
// field map. Any conforming JSON object is accepted, regardless of which
// fields an extractor happens to produce.
func ParseMetaBody(data []byte) (targetURI string, fields map[string][]string, err error) {
	sep := bytes.Index(data, []byte("\n\n"))
	if sep < 0 {
		sep = bytes.Index(data, []byte("\r\n\r\n"))
		if sep < 0 {
			return "", nil, fmt.Errorf("extractor: malformed meta body: missing blank line separator")
		}
		targetURI = string(bytes.TrimSpace(data[:sep]))
		data = data[sep+4:]
	} else {
		targetURI = string(bytes.TrimSpace(data[:sep]))
		data = data[sep+2:]
	}

	fields = map[string][]string{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, fmt.Errorf("extractor: decode meta body json: %w", err)
	}
	return targetURI, fields, nil
}
