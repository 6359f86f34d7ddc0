package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
)

// htmlDoc is the shared self-contained document shell for HTML reports.
const htmlDoc = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 60rem; color: #222; }
  h1 { border-bottom: 2px solid #ddd; padding-bottom: .3rem; }
  table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
  th, td { border: 1px solid #ddd; padding: .4rem .6rem; text-align: left; }
  th { background: #f5f5f5; }
  .pass { color: #1a7f37; font-weight: bold; }
  .fail { color: #cf222e; font-weight: bold; }
  .warn { color: #9a6700; font-weight: bold; }
  .badge { display: inline-block; padding: .15rem .5rem; border-radius: .5rem; background: #eee; }
</style>
</head>
<body>
<h1>{{ .Title }}</h1>
{{ .Body }}
</body>
</html>
`

type htmlPage struct {
	Title string
	Body  template.HTML
}

func renderHTML(title string, body string) []byte {
	tmpl := template.Must(template.New("doc").Parse(htmlDoc))
	var buf bytes.Buffer
	// The body is assembled exclusively from templated fragments below.
	if err := tmpl.Execute(&buf, htmlPage{Title: title, Body: template.HTML(body)}); err != nil {
		return []byte(title + ": " + err.Error())
	}
	return buf.Bytes()
}

const complianceBody = `
<p>Status:
{{ if .IsCompliant }}<span class="pass">COMPLIANT</span>{{ else }}<span class="fail">NOT COMPLIANT</span>{{ end }}
&mdash; {{ printf "%.1f%%" (mulf .PassingPercentage 100) }} passing
(threshold {{ printf "%.0f%%" (mulf .Threshold 100) }})</p>
<table>
<tr><th>Total</th><th>Passed</th><th>Failed</th></tr>
<tr><td>{{ .TotalTests }}</td><td>{{ .PassedTests }}</td><td>{{ .FailedTests }}</td></tr>
</table>
{{ if .FailedScenarios }}<h2>Failed scenarios</h2><ul>
{{ range .FailedScenarios }}<li>{{ . }}</li>{{ end }}
</ul>{{ end }}
<h2>Requirements</h2>
<table>
<tr><th>Requirement</th><th>Result</th><th>Details</th></tr>
{{ range .Requirements }}
<tr><td>{{ .Name }}</td>
<td>{{ if .Passed }}<span class="pass">pass</span>{{ else }}<span class="fail">fail</span>{{ end }}</td>
<td>{{ .Details }}</td></tr>
{{ end }}
</table>
`

func complianceHTML(rep ComplianceReport) []byte {
	return renderHTML("Compliance Report", execTemplate(complianceBody, rep))
}

const diagnosticsBody = `
<p>Overall health: <span class="badge">{{ .HealthAssessment }}</span></p>
<h2>Service diagnostics</h2>
<table>
<tr><th>Component</th><th>Status</th><th>Errors</th><th>Issues</th></tr>
{{ range .Services }}
<tr><td>{{ .Name }}</td>
<td>{{ if eq .Health.Status "healthy" }}<span class="pass">healthy</span>{{ else if eq .Health.Status "warning" }}<span class="warn">warning</span>{{ else }}<span class="fail">critical</span>{{ end }}</td>
<td>{{ .Health.ErrorCount }}</td>
<td>{{ range $i, $issue := .Health.Issues }}{{ if $i }}, {{ end }}{{ $issue.Type }} ({{ $issue.Count }}){{ end }}</td></tr>
{{ end }}
</table>
{{ if .RootCauses }}<h2>Root causes</h2>
<table>
<tr><th>Cause</th><th>Impact</th><th>Services</th><th>Solution</th></tr>
{{ range .RootCauses }}
<tr><td>{{ .Cause }}</td><td>{{ .Impact }}</td>
<td>{{ range $i, $s := .AffectedServices }}{{ if $i }}, {{ end }}{{ $s }}{{ end }}</td>
<td>{{ .Solution }}</td></tr>
{{ end }}
</table>{{ end }}
{{ if .Recommendations }}<h2>Priority recommendations</h2><ol>
{{ range .Recommendations }}<li>{{ . }}</li>{{ end }}
</ol>{{ end }}
`

// namedHealth pairs a component name with its health for stable template
// iteration.
type namedHealth struct {
	Name   string
	Health ServiceHealth
}

func diagnosticsHTML(rep DiagnosticsReport) []byte {
	data := struct {
		HealthAssessment string
		Services         []namedHealth
		RootCauses       []RootCause
		Recommendations  []string
	}{
		HealthAssessment: rep.HealthAssessment,
		Services:         orderedServices(rep.ServiceDiagnostics),
		RootCauses:       rep.RootCauses,
		Recommendations:  rep.PriorityRecommendations,
	}
	return renderHTML("Diagnostics Report", execTemplate(diagnosticsBody, data))
}

func orderedServices(services map[ServiceComponent]ServiceHealth) []namedHealth {
	names := make([]string, 0, len(services))
	for comp := range services {
		names = append(names, string(comp))
	}
	sort.Strings(names)
	out := make([]namedHealth, 0, len(names))
	for _, n := range names {
		out = append(out, namedHealth{Name: n, Health: services[ServiceComponent(n)]})
	}
	return out
}

func execTemplate(body string, data any) string {
	tmpl := template.Must(template.New("body").Funcs(template.FuncMap{
		"mulf": func(a, b float64) float64 { return a * b },
	}).Parse(body))
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return template.HTMLEscapeString(err.Error())
	}
	return buf.String()
}

// --- Markdown renderings (displayed in the terminal via glamour) ---

func complianceMarkdown(rep ComplianceReport) []byte {
	var b strings.Builder
	b.WriteString("# Compliance Report\n\n")
	if rep.IsCompliant {
		b.WriteString("**COMPLIANT**")
	} else {
		b.WriteString("**NOT COMPLIANT**")
	}
	fmt.Fprintf(&b, " — %.1f%% passing (threshold %.0f%%)\n\n", rep.PassingPercentage*100, rep.Threshold*100)
	fmt.Fprintf(&b, "| Total | Passed | Failed |\n|---|---|---|\n| %d | %d | %d |\n\n",
		rep.TotalTests, rep.PassedTests, rep.FailedTests)

	if len(rep.FailedScenarios) > 0 {
		b.WriteString("## Failed scenarios\n\n")
		for _, name := range rep.FailedScenarios {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Requirements\n\n")
	for _, req := range rep.Requirements {
		mark := "✓"
		if !req.Passed {
			mark = "✗"
		}
		fmt.Fprintf(&b, "- %s `%s`", mark, req.Name)
		if req.Details != "" {
			fmt.Fprintf(&b, " — %s", req.Details)
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func diagnosticsMarkdown(rep DiagnosticsReport) []byte {
	var b strings.Builder
	b.WriteString("# Diagnostics Report\n\n")
	fmt.Fprintf(&b, "Overall health: **%s**\n\n", rep.HealthAssessment)

	b.WriteString("## Service diagnostics\n\n| Component | Status | Errors |\n|---|---|---|\n")
	for _, svc := range orderedServices(rep.ServiceDiagnostics) {
		fmt.Fprintf(&b, "| %s | %s | %d |\n", svc.Name, svc.Health.Status, svc.Health.ErrorCount)
	}
	b.WriteString("\n")

	if len(rep.RootCauses) > 0 {
		b.WriteString("## Root causes\n\n")
		for _, rc := range rep.RootCauses {
			fmt.Fprintf(&b, "- **%s** (%s)\n  - solution: %s\n", rc.Cause, rc.Impact, rc.Solution)
		}
		b.WriteString("\n")
	}
	if len(rep.PriorityRecommendations) > 0 {
		b.WriteString("## Priority recommendations\n\n")
		for i, rec := range rep.PriorityRecommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
		}
	}
	return []byte(b.String())
}
