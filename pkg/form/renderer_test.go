package form

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFields = []Field{
	{Name: "RowKey", Type: FieldHidden},
	{Name: "Photo", Type: FieldImage, Description: "The *photo*"},
	{Name: "Source", Type: FieldLabel, Description: "Where it came from"},
	{Name: "Summary", Type: FieldLongText, Description: "Write a summary"},
	{Name: "Adult", Type: FieldCheckbox},
	{Name: "Mood", Type: FieldRadio, Options: []string{"Happy", "Sad"}},
	{Name: "Category", Type: FieldSelect, Options: []string{"News", "Sports"}},
	{Name: "Headline", Type: FieldShortText},
}

func testValues() map[string]string {
	return map[string]string{
		"RowKey":   "42",
		"Photo":    "https://example.com/cat.png",
		"Source":   "see https://example.com/story for details",
		"Summary":  "Café <b>bold</b> ☕ ok",
		"Headline": "Naïve headline",
	}
}

func TestRender_Deterministic(t *testing.T) {
	a, err := Render("Tag stories", "Read **carefully**", testFields, testValues())
	require.NoError(t, err)
	b, err := Render("Tag stories", "Read **carefully**", testFields, testValues())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRender_Envelope(t *testing.T) {
	out, err := Render("Tag stories", "", testFields, testValues())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<HTMLQuestion xmlns='http://mechanicalturk.amazonaws.com/AWSMechanicalTurkDataSchemas/2011-11-11/HTMLQuestion.xsd'><HTMLContent><![CDATA[<html>"))
	assert.True(t, strings.HasSuffix(out, "]]></HTMLContent><FrameHeight>0</FrameHeight></HTMLQuestion>"))
}

func TestRender_NoNonASCIIFromValues(t *testing.T) {
	out, err := RenderPage("Tag stories", "Read **carefully**", testFields, testValues())
	require.NoError(t, err)

	for i := 0; i < len(out); i++ {
		require.Less(t, out[i], byte(0x80), "non-ascii byte at %d", i)
	}
	assert.Contains(t, out, "Caf &lt;b&gt;bold&lt;/b&gt;  ok</textarea>")
	assert.Contains(t, out, `value="Nave headline"`)
}

func TestRenderPage_Controls(t *testing.T) {
	out, err := RenderPage("Tag stories", "Read **carefully**", testFields, testValues())
	require.NoError(t, err)

	assert.Contains(t, out, "<h1>Tag stories</h1>")
	assert.Contains(t, out, "<strong>carefully</strong>")
	assert.Contains(t, out, `<input type="hidden" name="RowKey" value="42">`)
	assert.NotContains(t, out, "<strong>RowKey</strong>")
	assert.Contains(t, out, `<img src="https://example.com/cat.png" class="img">`)
	assert.Contains(t, out, "<em>photo</em>")
	assert.Contains(t, out, `see <a href="https://example.com/story" rel="nofollow" target="_blank">https://example.com/story</a> for details`)
	assert.Contains(t, out, `<textarea name="Summary" class="form-control" cols="80" rows="3">`)
	assert.Contains(t, out, `<input type="checkbox" name="Adult" value="yes">`)
	assert.Contains(t, out, `<input type="radio" class="form-check-input" name="Mood" value="Happy"><label class="form-check-label">Happy</label>`)
	assert.Contains(t, out, `<option value="Sports">Sports</option>`)
	assert.Contains(t, out, `<input type="text" class="form-control" name="Headline"`)
	assert.Contains(t, out, `id="field-0-row_key"`)
	assert.Contains(t, out, PolicyNotice)
	assert.Contains(t, out, ThankYou)
	assert.Contains(t, out, `<input type="hidden" value="" name="assignmentId" id="assignmentId">`)
	assert.Contains(t, out, "turkSetAssignmentID();")
}

func TestLinkify(t *testing.T) {
	assert.Equal(t, `a &amp; b`, string(Linkify("a & b")))
	assert.Equal(t,
		`go to <a href="http://example.com" rel="nofollow" target="_blank">example.com</a>`,
		string(Linkify("go to example.com")))
}

func TestStripNonASCII(t *testing.T) {
	assert.Equal(t, "caf ", StripNonASCII("café ☕"))
	assert.Equal(t, "plain", StripNonASCII("plain"))
}

func TestWrap_EscapesCDATAEnd(t *testing.T) {
	out := Wrap("a]]>b")
	assert.Contains(t, out, "a]]]]><![CDATA[>b")
}

func TestField_Validate(t *testing.T) {
	assert.NoError(t, Field{Name: "A", Type: FieldShortText}.Validate())
	assert.Error(t, Field{Name: "A", Type: FieldRadio}.Validate())
	assert.False(t, Field{Name: "A", Type: FieldLabel}.Editable())
	assert.True(t, Field{Name: "A", Type: FieldHidden}.Editable())
}

func TestRenderPage_ImageSources(t *testing.T) {
	fields := []Field{{Name: "Pic", Type: FieldImage}}
	cases := []struct {
		value string
		src   string
	}{
		{"data:image/png;base64,iVBORw0KGgo=", "data:image/png;base64,iVBORw0KGgo="},
		{"http://example.com/a.png", "http://example.com/a.png"},
		{"javascript:alert(1)", "#ZgotmplZ"},
	}
	for _, c := range cases {
		out, err := RenderPage("Tag", "", fields, map[string]string{"Pic": c.value})
		require.NoError(t, err)
		assert.Contains(t, out, `<img src="`+c.src+`" class="img">`, c.value)
	}
}

func TestRenderPage_UniqueFieldIDs(t *testing.T) {
	fields := []Field{
		{Name: "Row Key", Type: FieldShortText},
		{Name: "row_key", Type: FieldShortText},
	}
	out, err := RenderPage("Tag", "", fields, nil)
	require.NoError(t, err)

	assert.Contains(t, out, `id="field-0-row_key"`)
	assert.Contains(t, out, `id="field-1-row_key"`)
}

func TestLinkify_EscapesMarkup(t *testing.T) {
	out := Linkify("<b>bold</b> example.com")
	assert.Equal(t, `&lt;b&gt;bold&lt;/b&gt; <a href="http://example.com" rel="nofollow" target="_blank">example.com</a>`, string(out))
}
