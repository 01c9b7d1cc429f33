package alerting

import (
	"errors"
	"fmt"
	"io"
	"strings"

	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
)

var errNoRootElement = errors.New("document has no root element")

// DecodeXML reads an XML document into a Tree rooted at the content of its
// root element. Namespace prefixes are dropped from element names, text is
// trimmed, attributes are kept under AttrKey and a single child element is
// stored as a value rather than a one-element list.
func DecodeXML(r io.Reader) (Tree, error) {
	p := xpp.NewXMLPullParser(r, true, charset.NewReaderLabel)

	for {
		event, err := p.Next()
		if err != nil {
			return nil, err
		}
		if event == xpp.EndDocument {
			return nil, errNoRootElement
		}
		if event == xpp.StartTag {
			break
		}
	}

	root, err := decodeElement(p)
	if err != nil {
		return nil, err
	}

	switch node := root.(type) {
	case Tree:
		return node, nil
	case string:
		if node == "" {
			return Tree{}, nil
		}
		return Tree{TextKey: node}, nil
	default:
		return nil, fmt.Errorf("unexpected root value %T", root)
	}
}

// decodeElement consumes the element the parser is positioned on, up to and
// including its end tag. Text-only elements decode to a string.
func decodeElement(p *xpp.XMLPullParser) (any, error) {
	node := Tree{}
	if attrs := decodeAttrs(p); len(attrs) > 0 {
		node[AttrKey] = attrs
	}

	var text strings.Builder
	for {
		event, err := p.Next()
		if err != nil {
			return nil, err
		}

		switch event {
		case xpp.StartTag:
			name := p.Name
			child, err := decodeElement(p)
			if err != nil {
				return nil, err
			}
			appendChild(node, name, child)
		case xpp.Text:
			text.WriteString(p.Text)
		case xpp.EndTag:
			content := strings.TrimSpace(text.String())
			if len(node) == 0 {
				return content, nil
			}
			if content != "" {
				node[TextKey] = content
			}
			return node, nil
		case xpp.EndDocument:
			return nil, io.ErrUnexpectedEOF
		}
	}
}

func decodeAttrs(p *xpp.XMLPullParser) Tree {
	if len(p.Attrs) == 0 {
		return nil
	}
	attrs := make(Tree, len(p.Attrs))
	for _, attr := range p.Attrs {
		attrs[attr.Name.Local] = attr.Value
	}
	return attrs
}

func appendChild(node Tree, name string, child any) {
	existing, ok := node[name]
	if !ok {
		node[name] = child
		return
	}
	if list, ok := existing.([]any); ok {
		node[name] = append(list, child)
		return
	}
	node[name] = []any{existing, child}
}
