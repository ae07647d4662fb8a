package form

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"mvdan.cc/xurls/v2"
)

const (
	questionSchema = "http://mechanicalturk.amazonaws.com/AWSMechanicalTurkDataSchemas/2011-11-11/HTMLQuestion.xsd"

	PolicyNotice = "NOTE: All work is checked and if we find the work does not follow the instructions we will reject the work. If we find a consistent amount of bad work you will be automatically blocked from our work in the future."
	ThankYou     = "Thank you for your good work!"
)

//go:embed form.html.tmpl
var formTemplate string

var (
	tmpl = template.Must(template.New("form").
		Funcs(sprig.HtmlFuncMap()).
		Parse(formTemplate))

	markdown = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe()))

	urls = xurls.Relaxed()
)

type fieldView struct {
	Field       Field
	Value       string
	Image       any
	Description template.HTML
	Label       template.HTML
}

type pageView struct {
	Title        string
	Description  template.HTML
	Fields       []fieldView
	PolicyNotice string
	ThankYou     string
}

// Render builds the HTMLQuestion document for a record. values holds the
// record's field values by field name.
func Render(title, description string, fields []Field, values map[string]string) (string, error) {
	page, err := RenderPage(title, description, fields, values)
	if err != nil {
		return "", err
	}
	return Wrap(page), nil
}

// RenderPage builds the bare HTML page shown inside the question frame.
func RenderPage(title, description string, fields []Field, values map[string]string) (string, error) {
	desc, err := Markdown(description)
	if err != nil {
		return "", err
	}

	view := pageView{
		Title:        title,
		Description:  desc,
		PolicyNotice: PolicyNotice,
		ThankYou:     ThankYou,
	}
	for _, f := range fields {
		fv := fieldView{
			Field: f,
			Value: StripNonASCII(values[f.Name]),
		}
		if fv.Description, err = Markdown(f.Description); err != nil {
			return "", fmt.Errorf("field %s: %w", f.Name, err)
		}
		switch f.Type {
		case FieldLabel:
			fv.Label = Linkify(fv.Value)
		case FieldImage:
			fv.Image = imageSource(fv.Value)
		}
		view.Fields = append(view.Fields, fv)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render form: %w", err)
	}
	return buf.String(), nil
}

// Wrap puts a page into the marketplace's HTMLQuestion envelope.
func Wrap(page string) string {
	page = strings.ReplaceAll(page, "]]>", "]]]]><![CDATA[>")
	return fmt.Sprintf("<HTMLQuestion xmlns='%s'><HTMLContent><![CDATA[%s]]></HTMLContent><FrameHeight>0</FrameHeight></HTMLQuestion>", questionSchema, page)
}

func Markdown(src string) (template.HTML, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Linkify escapes text and turns every URL in it into a link opening in a
// new tab.
func Linkify(text string) template.HTML {
	var b strings.Builder
	last := 0
	for _, loc := range urls.FindAllStringIndex(text, -1) {
		b.WriteString(html.EscapeString(text[last:loc[0]]))
		u := text[loc[0]:loc[1]]
		href := u
		if !strings.Contains(href, "://") && !strings.HasPrefix(href, "mailto:") {
			href = "http://" + href
		}
		fmt.Fprintf(&b, `<a href="%s" rel="nofollow" target="_blank">%s</a>`, html.EscapeString(href), html.EscapeString(u))
		last = loc[1]
	}
	b.WriteString(html.EscapeString(text[last:]))
	return template.HTML(b.String())
}

// imageSource marks web and inline image urls as safe so data URIs are not
// replaced by the template's url filter. Anything else is left to the filter.
func imageSource(v string) any {
	lower := strings.ToLower(v)
	for _, prefix := range []string{"http://", "https://", "data:image/"} {
		if strings.HasPrefix(lower, prefix) {
			return template.URL(v)
		}
	}
	return v
}

// StripNonASCII drops every byte outside of the 7-bit ASCII range.
func StripNonASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] < 0x80 {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
