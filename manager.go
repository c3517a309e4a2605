package toytcp

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

const masterTmpl = `
{{define "header"}}
<!DOCTYPE HTML>
<html>
<head>
<title>{{.Title}}</title>
<meta charset='utf-8'>
<style>
a {
    color: #428BCA;
    text-decoration: none;
}

a:hover, a:focus {
    color: #2A6496;
    text-decoration: underline;
}
/**
 * Styles for TABLE that uses a thin collapsed border.
 */
table {
  border-collapse: collapse;
}

table, table th, table td {
  border: 1px solid #777;
  padding-left: 4px;
  padding-right: 4px;
}

table td {
  text-align: right;
}

table th {
  background: rgb(224,236,255);
  text-align: left;
}
</style>
</head>
<body>
{{end}}

{{define "footer"}}
</body>
</html>
{{end}}

{{define "index"}}
{{template "header" .}}
<h2>List of URLs</h2>
<ul>
{{range .URLs}}
<li><a href='{{.}}'>{{.}}</a></li>
{{end}}
</ul>
<hr>
<h2>Segments</h2>
{{with .Stats}}
<table>
<tr><th>TCP Received</th><td>{{formatNumberComma .TCPReceived}}</td></tr>
<tr><th>TCP Accepted</th><td>{{formatNumberComma .TCPAccepted}}</td></tr>
<tr><th>TCP Bad Checksum</th><td>{{formatNumberComma .TCPBadChecksum}}</td></tr>
<tr><th>TCP Malformed</th><td>{{formatNumberComma .TCPMalformed}}</td></tr>
<tr><th>TCP Resets</th><td>{{formatNumberComma .TCPResets}}</td></tr>
<tr><th>ICMP Echoes</th><td>{{formatNumberComma .ICMPEchoes}}</td></tr>
<tr><th>Captured</th><td>{{formatNumberComma .Captured}}</td></tr>
<tr><th>Unsupported</th><td>{{formatNumberComma .Unsupported}}</td></tr>
</table>
{{end}}
<h2>Current State</h2>
<table>
<tr><th>Tun</th><td>{{.Tun}}</td></tr>
<tr><th>Echo</th><td>{{.Echo}}</td></tr>
<tr><th>Echo Clients</th><td>{{.TotalClients}}</td></tr>
<tr><th>Echo Traffic</th><td>{{formatNumberComma .TotalTraffic}}</td></tr>
<tr><th>Uptime</th><td>{{.Uptime}}</td></tr>
<tr><th>Now</th><td>{{.Now.Format "2006-01-02 15:04:05.000"}}</td></tr>
</table>
{{template "footer" .}}
{{end}}

{{define "traffic_record"}}
{{template "header" .}}
<h2>{{.Title}}</h2>
<ul>
<li>Entries: {{len .Records}}</li>
<li>Total: {{sumInt64 .Upload .Download | formatNumberComma}}</li>
<li>Upload: {{formatNumberComma .Upload}}</li>
<li>Download: {{formatNumberComma .Download}}</li>
</ul>
<table>
<tr>
<th>Name</th>
<th>Total</th>
<th>Upload</th>
<th>Download</th>
<th>Last</th>
</tr>
{{range .Records}}
<tr>
<td><a href="{{.Name}}">{{.Name}}</a></td>
<td>{{sumInt64 .Upload .Download | formatNumberComma}}</td>
<td>{{formatNumberComma .Upload}}</td>
<td>{{formatNumberComma .Download}}</td>
<td>{{.Touch.Format "2006-01-02 15:04:05.000"}}</td>
</tr>
{{end}}
</table>
{{template "footer" .}}
{{end}}

{{define "traffic_record_detail"}}
{{template "header" .}}
{{with .Record}}
<h2>{{$.Title}}: {{.Name}}</h2>
<ul>
<li>Entries: {{len .Details}}</li>
<li>Total: {{sumInt64 .Upload .Download | formatNumberComma}}</li>
<li>Upload: {{formatNumberComma .Upload}}</li>
<li>Download: {{formatNumberComma .Download}}</li>
<li>Last: {{.Touch.Format "2006-01-02 15:04:05.000"}}</li>
</ul>
{{end}}
<table>
<tr>
<th>Name</th>
<th>Total</th>
<th>Upload</th>
<th>Download</th>
<th>Last</th>
</tr>
{{range .Details}}
<tr>
<td>{{.EndPoint}}</td>
<td>{{sumInt64 .Upload .Download | formatNumberComma}}</td>
<td>{{formatNumberComma .Upload}}</td>
<td>{{formatNumberComma .Download}}</td>
<td>{{.Touch.Format "2006-01-02 15:04:05.000"}}</td>
</tr>
{{end}}
</table>
{{template "footer" .}}
{{end}}

{{define "config"}}
{{template "header" .}}
<h2>Config</h2>
<table>
<tr>
<th>Source</th>
</tr>
<tr>
<td style="text-align:left;"><pre>{{.Source}}</pre></td>
</tr>
</table>
{{template "footer" .}}
{{end}}
`

// statistical data of every echo connection
type ConnData struct {
	Src      string
	Dst      string
	Upload   int64
	Download int64
}

type TrafficRecordDetail struct {
	EndPoint string
	Upload   int64
	Download int64
	Touch    time.Time
}

type TrafficRecord struct {
	Name     string
	Upload   int64
	Download int64
	Touch    time.Time
	Details  map[string]*TrafficRecordDetail
}

type Manager struct {
	one       *One
	cfg       *ToyConfig
	startTime time.Time // process start time
	listen    string
	tmpl      *template.Template

	dataCh  chan ConnData
	mu      sync.Mutex
	clients map[string]*TrafficRecord
}

func handleWrapper(f func(io.Writer, *http.Request) error) func(http.ResponseWriter, *http.Request) {
	return func(rw http.ResponseWriter, r *http.Request) {
		w := bytes.NewBuffer(nil)
		err := f(w, r)
		if err != nil {
			http.Error(rw, fmt.Sprintf("Internal server error: %s", err), http.StatusInternalServerError)
		} else {
			rw.Write(w.Bytes())
		}
	}
}

func (m *Manager) indexHandle(w io.Writer, r *http.Request) error {
	m.mu.Lock()
	var upload, download int64
	for _, v := range m.clients {
		upload += v.Upload
		download += v.Download
	}
	totalClients := len(m.clients)
	m.mu.Unlock()

	tun, echo := "-", "-"
	if m.one.tun != nil {
		tun = fmt.Sprintf("%s %s", m.one.tun.Name(), m.cfg.Core.Network)
	}
	if m.one.echo != nil {
		if addr := m.one.echo.Addr(); addr != nil {
			echo = addr.String()
		}
	}

	return m.tmpl.ExecuteTemplate(w, "index", map[string]interface{}{
		"Title":        "toytcp",
		"Now":          time.Now(),
		"Uptime":       time.Since(m.startTime).Truncate(time.Second),
		"Stats":        m.one.stats.Snapshot(),
		"Tun":          tun,
		"Echo":         echo,
		"TotalClients": totalClients,
		"TotalTraffic": upload + download,
		"URLs": []string{
			"/echo/",
			"/config/",
		},
	})
}

func (m *Manager) echoHandle(w io.Writer, r *http.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := strings.TrimPrefix(r.URL.Path, "/echo/")
	record, ok := m.clients[name]
	if ok {
		details := make([]*TrafficRecordDetail, 0, len(record.Details))
		for _, d := range record.Details {
			details = append(details, d)
		}
		sort.Slice(details, func(i, j int) bool { return details[i].EndPoint < details[j].EndPoint })

		return m.tmpl.ExecuteTemplate(w, "traffic_record_detail", map[string]interface{}{
			"Title":   "Echo Client Detail",
			"Record":  record,
			"Details": details,
		})
	}

	var upload, download int64
	for _, v := range m.clients {
		upload += v.Upload
		download += v.Download
	}
	return m.tmpl.ExecuteTemplate(w, "traffic_record", map[string]interface{}{
		"Title":    "Echo Clients",
		"Upload":   upload,
		"Download": download,
		"Records":  m.clients,
	})
}

func (m *Manager) configHandle(w io.Writer, r *http.Request) error {
	return m.tmpl.ExecuteTemplate(w, "config", map[string]interface{}{
		"Title":  "Config",
		"Source": m.cfg.Source(),
	})
}

func (m *Manager) accumulate(data ConnData, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.clients[data.Src]
	if ok {
		o.Upload += data.Upload
		o.Download += data.Download
		o.Touch = now
	} else {
		o = &TrafficRecord{
			Name:     data.Src,
			Upload:   data.Upload,
			Download: data.Download,
			Touch:    now,
			Details:  make(map[string]*TrafficRecordDetail),
		}
		m.clients[data.Src] = o
	}

	if len(data.Dst) == 0 {
		return
	}

	if d, ok := o.Details[data.Dst]; ok {
		d.Upload += data.Upload
		d.Download += data.Download
		d.Touch = now
	} else {
		o.Details[data.Dst] = &TrafficRecordDetail{
			EndPoint: data.Dst,
			Upload:   data.Upload,
			Download: data.Download,
			Touch:    now,
		}
	}
}

// statistical data api
func (m *Manager) consumeData() {
	for data := range m.dataCh {
		m.accumulate(data, time.Now())
	}
}

// Report hands connection data to the manager.
func (m *Manager) Report(data ConnData) {
	m.dataCh <- data
}

func (m *Manager) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", handleWrapper(m.indexHandle))
	mux.HandleFunc("/echo/", handleWrapper(m.echoHandle))
	mux.HandleFunc("/config/", handleWrapper(m.configHandle))
	return mux
}

func (m *Manager) Serve() error {
	go m.consumeData()

	logger.Infof("[manager] listen on: %s", m.listen)
	return http.ListenAndServe(m.listen, m.Handler())
}

func formatNumberComma(a int64) string {
	var sign, ret string
	if a == 0 {
		return "0"
	}
	if a < 0 {
		sign, a = "-", -a
	}
	for a > 0 {
		b := a % 1000
		a = a / 1000

		var flag string
		if a > 0 {
			flag = "%03d"
		} else {
			flag = "%d"
		}
		if len(ret) > 0 {
			flag += ",%s"
		} else {
			flag += "%s"
		}
		ret = fmt.Sprintf(flag, b, ret)

	}
	return sign + ret
}

func NewManager(one *One, cfg *ToyConfig) *Manager {
	if cfg.General.ManagerAddr == "" {
		return nil
	}

	tmpl := template.New("master").Funcs(map[string]interface{}{
		"sumInt64": func(a int64, b int64) int64 {
			return a + b
		},
		"formatNumberComma": func(a interface{}) string {
			switch v := a.(type) {
			case int64:
				return formatNumberComma(v)
			case uint64:
				return formatNumberComma(int64(v))
			case int:
				return formatNumberComma(int64(v))
			}
			return fmt.Sprint(a)
		},
	})

	return &Manager{
		one:       one,
		cfg:       cfg,
		startTime: time.Now(),
		listen:    cfg.General.ManagerAddr,
		dataCh:    make(chan ConnData, 16),
		clients:   make(map[string]*TrafficRecord),
		tmpl:      template.Must(tmpl.Parse(masterTmpl)),
	}
}
