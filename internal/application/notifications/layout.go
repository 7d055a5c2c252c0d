package notifications

import (
	"html"
	"html/template"
	"strings"
	"time"
)

type palette struct {
	Accent, Text, Muted, Page, Card string
}

var brand = palette{Accent: "#0F766E", Text: "#1F2937", Muted: "#6B7280", Page: "#F3F4F6", Card: "#FFFFFF"}

var frame = template.Must(template.New("frame").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>SomosRentable</title>
<style>
body{margin:0;padding:0;background:{{.C.Page}};font-family:-apple-system,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;color:{{.C.Text}}}
.sr-body p{margin:0 0 20px;font-size:16px;line-height:1.6}
.sr-body h1{font-size:22px;margin:0 0 18px}
.sr-button{display:inline-block;background:{{.C.Accent}};color:#fff !important;padding:12px 28px;border-radius:6px;font-weight:600;text-decoration:none}
.sr-foot{color:{{.C.Muted}};font-size:13px}
</style>
</head>
<body>
<table role="presentation" width="100%" cellspacing="0" cellpadding="0"><tr><td align="center" style="padding:40px 0">
<table role="presentation" width="600" cellspacing="0" cellpadding="0" style="background:{{.C.Card}};border-radius:8px">
<tr><td class="sr-body" style="padding:40px 48px 24px">{{.Body}}</td></tr>
<tr><td align="center" style="padding:0 48px 32px"><p class="sr-foot">© {{.Year}} SomosRentable</p></td></tr>
</table>
</td></tr></table>
</body>
</html>`))

// Layout wraps already escaped content in the branded frame.
func Layout(contentHTML string) string {
	var sb strings.Builder
	_ = frame.Execute(&sb, struct {
		C    palette
		Body template.HTML
		Year int
	}{brand, template.HTML(contentHTML), time.Now().Year()})
	return sb.String()
}

// EscapeHTML is for user text interpolated into Sprintf templates.
func EscapeHTML(s string) string { return html.EscapeString(s) }
