package web

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/sweeney/wheel-remote/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"volts": func(v float64) string {
		return fmt.Sprintf("%.3f V", v)
	},
	"bandOrNone": func(s string) string {
		if s == "" {
			return "NONE"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Wheel Remote</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.active { color: green; font-weight: bold; }
.inactive { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Wheel Remote</h1>

<h2>Input</h2>
<table>
<tr><th>Filtered voltage</th><td>{{volts .Voltage}}</td></tr>
<tr><th>Latched band</th><td>{{bandOrNone .ActiveBand}}</td></tr>
</table>

<h2>Outputs</h2>
<table>
{{range .Outputs}}<tr><th>{{.ID}}</th><td class="{{if .Active}}active{{else}}inactive{{end}}">{{if .Active}}ACTIVE{{else}}INACTIVE{{end}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
{{range .Counts}}<tr><th>{{.ID}}</th><td>{{.Latches}} latched / {{.Releases}} released</td></tr>
{{end}}</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Filter window</th><td>{{.Config.FilterWindow}} samples</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Serial</th><td>{{.Config.SerialPort}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

type outputRow struct {
	ID     string
	Active bool
}

type countRow struct {
	ID       string
	Latches  int
	Releases int
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	outputs := make([]outputRow, 0, len(snap.Outputs))
	for id, active := range snap.Outputs {
		outputs = append(outputs, outputRow{ID: id, Active: active})
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].ID < outputs[j].ID })

	counts := make([]countRow, 0, len(snap.Counts))
	for id, c := range snap.Counts {
		counts = append(counts, countRow{ID: string(id), Latches: c.Latches, Releases: c.Releases})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].ID < counts[j].ID })

	// Snapshot has Uptime() method but the template needs plain fields.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Outputs []outputRow
		Counts  []countRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Outputs:  outputs,
		Counts:   counts,
	}
	indexTmpl.Execute(w, data)
}
