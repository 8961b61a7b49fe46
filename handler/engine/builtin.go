package engine

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"text/template"

	"github.com/inlay-dev/inlay-core/datakind"
	"github.com/inlay-dev/inlay-core/handler/manifest"
	"github.com/inlay-dev/inlay-core/schedule"
)

func registerBuiltins(r *Registry) {
	// Registration of compiled-in engines cannot fail.
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(r.Register("http-get", httpGetParams{}, newHTTPGet))
	must(r.Register("grep", grepParams{}, newGrep))
	must(r.Register("strip-tags", nil, newStripTags))
	must(r.Register("template", templateParams{}, newTemplate))
	must(r.Register("bullet-list", nil, newBulletList))
}

// httpGet is the acquisition engine: fetch a URL through the content cache
// under the definition's update-time schedule.

type httpGetParams struct {
	URL string `json:"url" jsonschema:"required"`
}

type httpGet struct {
	base
	deps Deps
	url  string
	spec schedule.Spec
}

func newHTTPGet(m *manifest.Manifest, deps Deps) (Instance, error) {
	var p httpGetParams
	if err := decodeParams(m.Params(), &p); err != nil {
		return nil, fmt.Errorf("http-get params: %w", err)
	}
	spec, err := schedule.Parse(m.UpdateTimes())
	if err != nil {
		return nil, err
	}
	return &httpGet{base: newBase(m), deps: deps, url: p.URL, spec: spec}, nil
}

func (h *httpGet) Get(ctx context.Context, attrs map[string]string) (*datakind.Value, error) {
	url := h.url
	if override := attrs["url"]; override != "" {
		url = override
	}
	if h.deps.Fetcher == nil {
		return nil, fmt.Errorf("handler %s: no content fetcher configured", h.name)
	}

	data, err := h.deps.Fetcher.Fetch(ctx, url, h.spec)
	if err != nil {
		return nil, err
	}

	if h.produces == datakind.Text {
		return datakind.NewText(string(data)), nil
	}
	return datakind.NewHTML(string(data)), nil
}

// grep is a filter engine keeping (or, inverted, dropping) array elements
// whose text matches a pattern.

type grepParams struct {
	Pattern string `json:"pattern" jsonschema:"required"`
	Invert  bool   `json:"invert,omitempty"`
}

type grep struct {
	base
	re     *regexp.Regexp
	invert bool
}

func newGrep(m *manifest.Manifest, deps Deps) (Instance, error) {
	var p grepParams
	if err := decodeParams(m.Params(), &p); err != nil {
		return nil, fmt.Errorf("grep params: %w", err)
	}
	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return nil, fmt.Errorf("grep pattern: %w", err)
	}
	return &grep{base: newBase(m), re: re, invert: p.Invert}, nil
}

func (g *grep) Filter(_ context.Context, in *datakind.Value, _ map[string]string) (*datakind.Value, error) {
	if in == nil {
		return nil, fmt.Errorf("handler %s: nil input", g.name)
	}
	if in.Kind != datakind.Array {
		if g.re.MatchString(textOf(in)) != g.invert {
			return in, nil
		}
		return datakind.NewArray(in.Kind, nil), nil
	}

	var kept []*datakind.Value
	for _, item := range in.Items {
		if g.re.MatchString(textOf(item)) != g.invert {
			kept = append(kept, item)
		}
	}
	return datakind.NewArray(in.Elem, kept), nil
}

// stripTags is a filter engine reducing HTML to plain text.

type stripTags struct {
	base
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func newStripTags(m *manifest.Manifest, deps Deps) (Instance, error) {
	return &stripTags{base: newBase(m)}, nil
}

func (s *stripTags) Filter(_ context.Context, in *datakind.Value, _ map[string]string) (*datakind.Value, error) {
	if in == nil {
		return nil, fmt.Errorf("handler %s: nil input", s.name)
	}
	return stripValue(in), nil
}

func stripValue(v *datakind.Value) *datakind.Value {
	switch v.Kind {
	case datakind.Array:
		items := make([]*datakind.Value, 0, len(v.Items))
		for _, item := range v.Items {
			items = append(items, stripValue(item))
		}
		return datakind.NewArray(datakind.Text, items)
	case datakind.Link:
		return datakind.NewText(v.Link.Text)
	default:
		return datakind.NewText(strings.TrimSpace(tagPattern.ReplaceAllString(v.Text, "")))
	}
}

// templateOut is an output engine rendering the incoming value through a
// text/template format string.

type templateParams struct {
	Format string `json:"format" jsonschema:"required"`
}

type templateOut struct {
	base
	tmpl *template.Template
}

func newTemplate(m *manifest.Manifest, deps Deps) (Instance, error) {
	var p templateParams
	if err := decodeParams(m.Params(), &p); err != nil {
		return nil, fmt.Errorf("template params: %w", err)
	}
	tmpl, err := template.New(m.Name().Key()).Parse(p.Format)
	if err != nil {
		return nil, fmt.Errorf("template format: %w", err)
	}
	return &templateOut{base: newBase(m), tmpl: tmpl}, nil
}

func (t *templateOut) Output(_ context.Context, in *datakind.Value, _ map[string]string) ([]byte, error) {
	var b strings.Builder
	if err := t.tmpl.Execute(&b, in); err != nil {
		return nil, fmt.Errorf("handler %s: rendering: %w", t.name, err)
	}
	return []byte(b.String()), nil
}

// bulletList is an output engine rendering an array as an HTML list.

type bulletList struct {
	base
}

func newBulletList(m *manifest.Manifest, deps Deps) (Instance, error) {
	return &bulletList{base: newBase(m)}, nil
}

func (b *bulletList) Output(_ context.Context, in *datakind.Value, _ map[string]string) ([]byte, error) {
	if in == nil {
		return nil, fmt.Errorf("handler %s: nil input", b.name)
	}
	var sb strings.Builder
	sb.WriteString("<ul>\n")
	items := in.Items
	if in.Kind != datakind.Array {
		items = []*datakind.Value{in}
	}
	for _, item := range items {
		sb.WriteString("<li>")
		sb.WriteString(renderHTML(item))
		sb.WriteString("</li>\n")
	}
	sb.WriteString("</ul>\n")
	return []byte(sb.String()), nil
}

// renderHTML converts any union member to an HTML fragment, the conversions
// the compatibility table promises.
func renderHTML(v *datakind.Value) string {
	if v == nil {
		return ""
	}
	switch v.Kind {
	case datakind.HTML:
		return v.Text
	case datakind.Text:
		return html.EscapeString(v.Text)
	case datakind.Link:
		return fmt.Sprintf("<a href=%q>%s</a>", v.Link.URL, html.EscapeString(v.Link.Text))
	case datakind.Image:
		return fmt.Sprintf("<img src=%q alt=%q>", v.Image.URL, v.Image.Alt)
	case datakind.Table:
		var sb strings.Builder
		sb.WriteString("<table>")
		for _, row := range v.Items {
			sb.WriteString("<tr>")
			for _, cell := range row.Items {
				sb.WriteString("<td>" + renderHTML(cell) + "</td>")
			}
			sb.WriteString("</tr>")
		}
		sb.WriteString("</table>")
		return sb.String()
	case datakind.Thread:
		var sb strings.Builder
		sb.WriteString("<ul>")
		for _, child := range v.Items {
			sb.WriteString("<li>" + renderHTML(child) + "</li>")
		}
		sb.WriteString("</ul>")
		return sb.String()
	default:
		return ""
	}
}

// textOf extracts the comparable text of a union member for matching.
func textOf(v *datakind.Value) string {
	if v == nil {
		return ""
	}
	switch v.Kind {
	case datakind.Link:
		return v.Link.Text + " " + v.Link.URL
	case datakind.Image:
		return v.Image.Alt
	default:
		return v.Text
	}
}
