// Package metadata renders token metadata URIs for registry editions.
package metadata

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Klingon-tech/nfb-ledger/internal/registry"
)

// DataURIPrefix prefixes every URI produced by ImageResolver.
const DataURIPrefix = "data:application/json;base64,"

// Attribute is one marketplace trait.
type Attribute struct {
	TraitType   string `json:"trait_type"`
	DisplayType string `json:"display_type,omitempty"`
	Value       any    `json:"value"`
}

// Document is the JSON metadata of a token.
type Document struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// ImageResolver renders every token of an edition with one shared image.
type ImageResolver struct {
	Name               string `json:"name"`
	Image              string `json:"image"`
	IncludeEditionName bool   `json:"includeEditionName"`
}

// Document builds the metadata document for a token.
func (r *ImageResolver) Document(req registry.ResolveRequest) *Document {
	id := strconv.FormatUint(req.TokenID, 10)
	attrs := []Attribute{
		{TraitType: "Series", Value: req.SeriesName},
		{TraitType: "Series ID", DisplayType: "number", Value: req.SeriesID},
	}
	if r.IncludeEditionName {
		attrs = append(attrs, Attribute{TraitType: "Edition", Value: req.EditionName})
	}
	attrs = append(attrs,
		Attribute{TraitType: "Edition ID", DisplayType: "number", Value: req.EditionID},
		Attribute{TraitType: "NFB Number", DisplayType: "number", Value: req.Sequence},
	)
	return &Document{
		ID:          id,
		Name:        r.Name + " #" + id,
		Description: req.SeriesDescription,
		Image:       r.Image,
		Attributes:  attrs,
	}
}

// Resolve implements registry.Resolver.
func (r *ImageResolver) Resolve(req registry.ResolveRequest) (string, error) {
	raw, err := encode(r.Document(req))
	if err != nil {
		return "", err
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses a URI produced by ImageResolver.
func Decode(uri string) (*Document, error) {
	if len(uri) < len(DataURIPrefix) || uri[:len(DataURIPrefix)] != DataURIPrefix {
		return nil, fmt.Errorf("not a base64 json data uri")
	}
	raw, err := base64.StdEncoding.DecodeString(uri[len(DataURIPrefix):])
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &doc, nil
}

// encode marshals without HTML escaping so image URLs stay verbatim.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SeriesNameResolver returns the series name as the token URI.
type SeriesNameResolver struct{}

// Resolve implements registry.Resolver.
func (SeriesNameResolver) Resolve(req registry.ResolveRequest) (string, error) {
	return req.SeriesName, nil
}
