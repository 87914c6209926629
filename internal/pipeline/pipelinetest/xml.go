package pipelinetest

import (
	"encoding/xml"
	"mime"
)

// XMLNode is a generic XML element tree, used to inspect XML bodies without
// declaring a schema.
type XMLNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []XMLNode  `xml:",any"`
}

// Name returns the local element name.
func (n XMLNode) Name() string { return n.XMLName.Local }

// Child returns the first child element with the given local name.
func (n XMLNode) Child(name string) (XMLNode, bool) {
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			return c, true
		}
	}
	return XMLNode{}, false
}

// Attr returns the value of the attribute with the given local name, or "".
func (n XMLNode) Attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func isXML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/xml" || mt == "application/xml"
}

func decodeXML(body []byte) (*XMLNode, error) {
	var root XMLNode
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil, err
	}
	return &root, nil
}
