package fault

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/samber/lo"
)

// Format selects the rendering of a Record.
type Format int

const (
	// FormatHTMLDocument is a complete, self-contained HTML page.
	FormatHTMLDocument Format = iota
	// FormatHTMLFragment can be appended to an HTML body that is already
	// being streamed.
	FormatHTMLFragment
	// FormatText is plain text for any other content type.
	FormatText
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case FormatHTMLDocument:
		return "html-document"
	case FormatHTMLFragment:
		return "html-fragment"
	case FormatText:
		return "text"
	default:
		return "unknown"
	}
}

// Detail is an extra key/value pair shown below the stack, typically request
// metadata.
type Detail struct {
	Key   string
	Value string
}

type view struct {
	TypeName string
	Message  string
	Frames   []string
	Details  []Detail
}

var pages = template.Must(template.New("fault").Parse(`
{{- define "frames" -}}
{{if .Frames}}<ol class="frames">
{{- range .Frames}}
<li><code>{{.}}</code></li>
{{- end}}
</ol>{{end}}
{{- end -}}

{{- define "details" -}}
{{if .Details}}<table class="details">
{{- range .Details}}
<tr><th>{{.Key}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>{{end}}
{{- end -}}

{{- define "document" -}}
<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.TypeName}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
h1 { color: #a00; }
.message { font-size: 1.2em; }
.frames code { font-family: monospace; }
.details th { text-align: left; padding-right: 1em; }
</style>
</head>
<body>
<h1>{{.TypeName}}</h1>
<p class="message">{{.Message}}</p>
{{template "frames" .}}
{{template "details" .}}
</body>
</html>
{{end -}}

{{- define "fragment" -}}
<div class="fault">
<h2>{{.TypeName}}</h2>
<p class="message">{{.Message}}</p>
{{template "frames" .}}
{{template "details" .}}
</div>
{{end -}}
`))

// Render renders rec in the given format. It is a pure function of its
// arguments and never fails.
func Render(rec Record, f Format, details ...Detail) []byte {
	v := view{
		TypeName: rec.typeName,
		Message:  rec.message,
		Frames:   lo.Map(rec.frames, func(fr StackFrame, _ int) string { return fr.String() }),
		Details:  details,
	}

	switch f {
	case FormatHTMLDocument:
		return renderHTML("document", v)
	case FormatHTMLFragment:
		return renderHTML("fragment", v)
	default:
		return []byte(renderText(v))
	}
}

func renderHTML(name string, v view) []byte {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, v); err != nil {
		return []byte("<pre>" + html.EscapeString(renderText(v)) + "</pre>\n")
	}
	return buf.Bytes()
}

func renderText(v view) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(v.TypeName)
	if v.Message != "" {
		b.WriteString(": ")
		b.WriteString(v.Message)
	}
	b.WriteString("\n")
	for _, fr := range v.Frames {
		b.WriteString(framePrefix)
		b.WriteString(fr)
		b.WriteString("\n")
	}
	for _, d := range v.Details {
		b.WriteString(d.Key)
		b.WriteString(": ")
		b.WriteString(d.Value)
		b.WriteString("\n")
	}
	return b.String()
}
