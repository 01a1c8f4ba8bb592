// Package xmlfile decodes IATI XML documents into the navigable record trees
// the engine consumes. The decoder is deliberately lax: it keeps whatever
// elements and attributes appear, and leaves interpretation to the statistic
// functions.
package xmlfile

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Document is one decoded source file: the document-level metadata plus the
// records it contains.
type Document struct {
	RootTag string
	Version string
	Records []*domain.Record
}

// Load decodes one IATI XML file.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening data file: %w", err)
	}
	defer f.Close()
	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return doc, nil
}

// Decode reads an activities or organisations document from a stream.
func Decode(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	root, err := decodeRoot(dec)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		RootTag: root.Tag,
		Version: root.Attr("version"),
	}
	kind := domain.KindActivity
	recordTag := "iati-activity"
	if root.Tag == "iati-organisations" {
		kind = domain.KindOrganisation
		recordTag = "iati-organisation"
	}
	for _, child := range root.FindAll(recordTag) {
		doc.Records = append(doc.Records, &domain.Record{
			Kind:        kind,
			Root:        child,
			FileVersion: doc.Version,
		})
	}
	return doc, nil
}

func decodeRoot(dec *xml.Decoder) (*domain.Node, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("document has no root element")
		}
		if err != nil {
			return nil, fmt.Errorf("reading document: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			root, err := decodeElement(dec, start)
			if err != nil {
				return nil, fmt.Errorf("reading document: %w", err)
			}
			return root, nil
		}
	}
}

// decodeElement builds the subtree rooted at an already-consumed start tag.
func decodeElement(dec *xml.Decoder, start xml.StartElement) (*domain.Node, error) {
	n := &domain.Node{Tag: start.Name.Local, Attrs: make(map[string]string, len(start.Attr))}
	for _, a := range start.Attr {
		n.Attrs[attrName(a.Name)] = a.Value
	}
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			n.Text = strings.TrimSpace(text.String())
			return n, nil
		}
	}
}

// attrName keeps the conventional xml: prefix for attributes in the XML
// namespace (xml:lang in particular) and drops other namespace qualifiers.
func attrName(name xml.Name) string {
	if name.Space == "xml" || name.Space == xmlNamespace {
		return "xml:" + name.Local
	}
	return name.Local
}
