package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"f2": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"f3": func(v float64) string { return fmt.Sprintf("%.3f", v) },
}).Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>VoiceGuard Report</title>
  <style>
    body { font-family: -apple-system, Segoe UI, Roboto, Arial, sans-serif; margin: 24px; }
    .k { color: #555; }
    .card { border: 1px solid #eee; border-radius: 12px; padding: 16px; margin-bottom: 16px; }
    code, pre { background: #f7f7f7; border-radius: 8px; padding: 2px 6px; }
    pre { padding: 12px; overflow: auto; }
  </style>
</head>
<body>
  <h1>VoiceGuard Report</h1>
  <div class="card">
    <div><span class="k">Verdict:</span> <strong>{{.Report.Verdict}}</strong> (confidence {{.Report.ConfidenceLevel}})</div>
    <div><span class="k">Source:</span> {{.Report.SourceKind}}: <code>{{.Report.Source}}</code></div>
    <div><span class="k">Created (UTC):</span> <code>{{.Report.CreatedAt.Format "2006-01-02T15:04:05Z"}}</code></div>
    <div><span class="k">Report ID:</span> <code>{{.Report.ID}}</code></div>
    {{with .Report.Summary}}
    <div><span class="k">Duration:</span> {{f2 .DurationSec}}s</div>
    <div><span class="k">Windows:</span> {{.TotalWindows}} (speech: {{.SpeechWindows}})</div>
    <div><span class="k">Confidence (mean):</span> {{f3 .ConfidenceMean}}</div>
    <div><span class="k">Confidence (min):</span> {{f3 .ConfidenceMin}}</div>
    <div><span class="k">p_fake overall:</span> {{f3 .PFakeOverall}}</div>
    <div><span class="k">p_fake p95:</span> {{f3 .PFakeP95}}</div>
    <div><span class="k">p_fake mean:</span> {{f3 .PFakeMean}}</div>
    <div><span class="k">p_fake max:</span> {{f3 .PFakeMax}}</div>
    <div><span class="k">Fake fraction (&gt;= threshold):</span> {{f3 .FakeFraction}}</div>
    {{end}}
  </div>
  <div class="card">
    <h2>Alert segments</h2>
    {{with .Report.Summary.AlertSegments}}<ul>
    {{range .}}<li>{{f2 .Start}}s - {{f2 .End}}s</li>
    {{end}}</ul>{{else}}<p>None.</p>{{end}}
  </div>
  <div class="card">
    <h2>Reasons</h2>
    {{with .Report.Summary.TopReasons}}<ul>
    {{range .}}<li><code>{{.}}</code>: {{.Description}}</li>
    {{end}}</ul>{{else}}<p>None.</p>{{end}}
  </div>
  <div class="card">
    <h2>Raw JSON</h2>
    <pre>{{.JSON}}</pre>
  </div>
</body>
</html>
`))

// WriteHTML renders a standalone HTML page with the summary, the alert
// segments and the JSON report embedded.
func (r *Report) WriteHTML(w io.Writer) error {
	var rawJSON bytes.Buffer
	if err := r.WriteJSON(&rawJSON); err != nil {
		return err
	}
	err := htmlTemplate.Execute(w, struct {
		Report *Report
		JSON   string
	}{
		Report: r,
		JSON:   rawJSON.String(),
	})
	if err != nil {
		return fmt.Errorf("unable to render the HTML report: %w", err)
	}
	return nil
}
