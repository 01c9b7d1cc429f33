package alerting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeXML_Structure(t *testing.T) {
	doc := `<?xml version="1.0"?>
<root id="r1">
  <single>  value  </single>
  <repeated>1</repeated>
  <repeated>2</repeated>
  <measure unit="km">12</measure>
  <empty/>
  <nested><inner>x</inner></nested>
</root>`

	tree, err := DecodeXML(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, Tree{"id": "r1"}, tree[AttrKey])
	assert.Equal(t, "value", tree["single"])
	assert.Equal(t, []any{"1", "2"}, tree["repeated"])
	assert.Equal(t, Tree{AttrKey: Tree{"unit": "km"}, TextKey: "12"}, tree["measure"])
	assert.Equal(t, "", tree["empty"])
	assert.Equal(t, Tree{"inner": "x"}, tree["nested"])
	assert.NotContains(t, tree, "root", "root element is not wrapped")
}

func TestDecodeXML_StripsNamespacePrefixes(t *testing.T) {
	doc := `<cap:alert xmlns:cap="urn:oasis:names:tc:emergency:cap:1.2">
  <cap:identifier>ID-1</cap:identifier>
  <cap:info><cap:event>Flood</cap:event></cap:info>
</cap:alert>`

	tree, err := DecodeXML(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "ID-1", tree["identifier"])
	assert.Equal(t, Tree{"event": "Flood"}, tree["info"])
}

func TestDecodeXML_CDATA(t *testing.T) {
	doc := `<alert><description><![CDATA[ <b>Heavy</b> rain ]]></description></alert>`

	tree, err := DecodeXML(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "<b>Heavy</b> rain", tree["description"])
}

func TestDecodeXML_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: ""},
		{name: "not xml", doc: "this is not xml"},
		{name: "unclosed", doc: "<alert><identifier>1</identifier>"},
		{name: "mismatched", doc: "<alert><identifier>1</sender></alert>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeXML(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}
