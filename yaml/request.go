// Package yaml loads crawl request documents.
// Both YAML and JSON documents are accepted since JSON is valid YAML.
package yaml

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/fwojciec/doccrawl"
	"gopkg.in/yaml.v3"
)

// LoadRequest reads a crawl request from the file at path.
func LoadRequest(path string) (*doccrawl.CrawlRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, doccrawl.Errorf(doccrawl.ENOTFOUND, "request file not found: %s", path)
		}
		return nil, err
	}
	return ParseRequest(data)
}

// ParseRequest decodes a crawl request document. Unknown fields and a
// missing url are rejected with EINVALID.
func ParseRequest(data []byte) (*doccrawl.CrawlRequest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var req doccrawl.CrawlRequest
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, doccrawl.Errorf(doccrawl.EINVALID, "empty request document")
		}
		return nil, doccrawl.Errorf(doccrawl.EINVALID, "parse request: %v", err)
	}
	if req.URL == "" {
		return nil, doccrawl.Errorf(doccrawl.EINVALID, "request url required")
	}
	return &req, nil
}

// MarshalRequest encodes a crawl request as YAML.
func MarshalRequest(req *doccrawl.CrawlRequest) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(req); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
