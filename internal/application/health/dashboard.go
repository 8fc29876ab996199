package health

import (
	"bytes"
	"html/template"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta http-equiv="refresh" content="30">
  <title>School Library · Loans API Status</title>
  <style>
    body { font-family: sans-serif; background: #f8f9fa; color: #173e35; max-width: 760px; margin: 40px auto; padding: 0 20px; }
    h1 { margin-bottom: 4px; }
    table { width: 100%; border-collapse: collapse; margin: 20px 0; background: #fff; }
    th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #e2e8f0; }
    th { text-transform: uppercase; font-size: 11px; letter-spacing: 1px; color: #64748b; }
    .ok { color: #007473; } .issue { color: #ef4444; }
  </style>
</head>
<body>
  <h1 class="{{.Status}}">{{if eq .Status "ok"}}All Systems Operational{{else}}System Issues Detected{{end}}</h1>
  <p>Uptime {{.Runtime.UptimeSeconds}}s · {{.Runtime.Platform}} · {{.Runtime.GoVersion}}</p>
  <table>
    <tr><th colspan="2">Dependencies</th></tr>
    {{range $name, $dep := .Dependencies}}<tr><td>{{$name}}</td><td class="{{if eq $dep.Status "connected"}}ok{{else}}issue{{end}}">{{$dep.Status}}</td></tr>
    {{end}}
  </table>
  <table>
    <tr><th colspan="2">Loans</th></tr>
    {{with .Loans}}<tr><td>Active</td><td id="loans-active">{{.Active}}</td></tr>
    <tr><td>Overdue</td><td id="loans-overdue" class="issue">{{.Overdue}}</td></tr>
    <tr><td>Returned</td><td>{{.Returned}}</td></tr>
    <tr><td>Lost</td><td>{{.Lost}}</td></tr>
    {{else}}<tr><td colspan="2">Loan counts unavailable</td></tr>{{end}}
    <tr><td>Pending signals</td><td id="pending-signals">{{.PendingSignals}}</td></tr>
    <tr><td>Failing signals</td><td id="failing-signals"{{if gt .FailingSignals 0}} class="issue"{{end}}>{{.FailingSignals}}</td></tr>
  </table>
  <table>
    <tr><th colspan="2">Traffic</th></tr>
    <tr><td>Requests</td><td>{{.Traffic.TotalRequests}}</td></tr>
    <tr><td>Failed</td><td>{{.Traffic.FailedCount}}</td></tr>
    <tr><td>Success rate</td><td>{{.Traffic.SuccessRate}}%</td></tr>
    <tr><td>Avg latency</td><td>{{.Traffic.AvgResponseTime}}ms</td></tr>
  </table>
  <p><a href="/health/json">/health/json</a> · <a href="/health/errors">/health/errors</a></p>
</body>
</html>
`))

// RenderDashboardHTML returns the HTML for GET /.
func RenderDashboardHTML(health CollectResult) string {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, health); err != nil {
		return "<!DOCTYPE html><p>health dashboard unavailable: " + template.HTMLEscapeString(err.Error()) + "</p>"
	}
	return buf.String()
}
