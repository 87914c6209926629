package handlers

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"slices"

	"github.com/samber/lo"

	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
)

// ShowEnvironment answers with the request Environment as a text/xml
// document:
//
//	<xml>
//	  <request.Method>GET</request.Method>
//	  <request.Headers><header name="Accept">*/*</header></request.Headers>
//	  ...
//	</xml>
//
// Entries are sorted by key. The context and request body are omitted.
func ShowEnvironment() pipeline.Handler {
	return pipeline.HandlerFunc(func(env pipeline.Environment, r pipeline.Responder) {
		doc, err := encodeEnvironment(env)
		if err != nil {
			r.Fail(err)
			return
		}
		r.Respond(ok("text/xml", pipeline.BytesBody(doc)))
	})
}

func encodeEnvironment(env pipeline.Environment) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "xml"}}
	if err := enc.EncodeToken(root); err != nil {
		return nil, fmt.Errorf("encoding environment: %w", err)
	}

	keys := lo.Keys(env)
	slices.Sort(keys)
	for _, key := range keys {
		if err := encodeEntry(enc, key, env[key]); err != nil {
			return nil, fmt.Errorf("encoding environment key %q: %w", key, err)
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, fmt.Errorf("encoding environment: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("encoding environment: %w", err)
	}
	return buf.Bytes(), nil
}

type headerElement struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

func encodeEntry(enc *xml.Encoder, key string, value any) error {
	start := xml.StartElement{Name: xml.Name{Local: key}}

	switch v := value.(type) {
	case context.Context, io.Reader, nil:
		return nil
	case pipeline.Headers:
		names := lo.Keys(v)
		slices.Sort(names)
		headers := lo.Map(names, func(name string, _ int) headerElement {
			return headerElement{Name: name, Value: v[name]}
		})
		return enc.EncodeElement(struct {
			Headers []headerElement `xml:"header"`
		}{headers}, start)
	default:
		return enc.EncodeElement(fmt.Sprint(v), start)
	}
}
