package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JonMunkholm/tlmlog/internal/core"
	"github.com/JonMunkholm/tlmlog/internal/logging"
	"github.com/JonMunkholm/tlmlog/internal/web/templates"
)

const (
	defaultPageSize = 100
	maxPageSize     = 10000
)

// LogSummary describes one loaded log.
type LogSummary struct {
	Name     string      `json:"name"`
	RunID    string      `json:"run_id"`
	Stage    string      `json:"stage"`
	Networks []string    `json:"networks"`
	Messages int         `json:"messages"`
	Rows     int         `json:"rows"`
	Bytes    int64       `json:"bytes_read"`
	Duration string      `json:"load_duration"`
	Counts   core.Counts `json:"anomalies"`
}

func summarize(d *core.Dataset) LogSummary {
	st := d.Stats()
	return LogSummary{
		Name:     d.Name,
		RunID:    d.RunID.String(),
		Stage:    d.Stage().String(),
		Networks: d.Networks(),
		Messages: st.Messages,
		Rows:     st.Rows,
		Bytes:    st.BytesRead,
		Duration: st.Duration.Round(time.Millisecond).String(),
		Counts:   core.BuildReport(d).Counts,
	}
}

// TableColumn describes one payload column of a TablePage.
type TableColumn struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// TablePage is a window of rows of one message.
type TablePage struct {
	Log     string        `json:"log"`
	Network string        `json:"network"`
	Message string        `json:"message"`
	Total   int           `json:"total"`
	Offset  int           `json:"offset"`
	Limit   int           `json:"limit"`
	Start   int64         `json:"start"`
	End     int64         `json:"end"`
	Columns []TableColumn `json:"columns"`
	Time    []int64       `json:"time"`
	Rows    [][]any       `json:"rows"`
}

// handleDashboard renders the list of loaded logs.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	datasets := s.catalog.Datasets()
	cards := make([]templates.LogCard, len(datasets))
	for i, d := range datasets {
		st := d.Stats()
		cards[i] = templates.LogCard{
			Name:     d.Name,
			RunID:    d.RunID.String(),
			Networks: len(d.Networks()),
			Messages: st.Messages,
			Rows:     humanize.Comma(int64(st.Rows)),
			Issues:   len(d.Anomalies()),
		}
	}
	s.render(w, r, templates.Dashboard(cards))
}

// handleReportPage renders the integrity report of one log.
func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	d, err := s.catalog.Get(chi.URLParam(r, "log"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, templates.ReportPage(core.BuildReport(d)))
}

// handleStatus reports the load limiter and the loaded logs.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, map[string]any{
		"loads": s.catalog.Limiter().Status(),
		"logs":  s.catalog.Names(),
	})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	datasets := s.catalog.Datasets()
	out := make([]LogSummary, len(datasets))
	for i, d := range datasets {
		out[i] = summarize(d)
	}
	s.writeJSON(w, r, out)
}

// handleReport returns the integrity report as JSON, or as plain text with
// ?format=text.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	d, err := s.catalog.Get(chi.URLParam(r, "log"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	report := core.BuildReport(d)

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.WriteText(w); err != nil {
			logging.FromContext(r.Context()).Error("write report", zap.Error(err))
		}
		return
	}
	s.writeJSON(w, r, report)
}

// handleReload rebuilds a log from disk and swaps it in.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "log")
	d, err := s.catalog.Reload(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("log reloaded",
		zap.String("log", name),
		zap.String("run_id", d.RunID.String()),
	)
	s.writeJSON(w, r, summarize(d))
}

func (s *Server) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	d, err := s.catalog.Get(chi.URLParam(r, "log"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, d.Networks())
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	d, err := s.catalog.Get(chi.URLParam(r, "log"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	msgs, err := d.Messages(chi.URLParam(r, "network"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, msgs)
}

func (s *Server) handleListPayloads(w http.ResponseWriter, r *http.Request) {
	d, err := s.catalog.Get(chi.URLParam(r, "log"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payloads, err := d.Payloads(chi.URLParam(r, "network"), chi.URLParam(r, "message"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, payloads)
}

// handleMessage returns a page of rows of one message, selected with
// ?offset= and ?limit=.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	d, t, ok := s.table(w, r)
	if !ok {
		return
	}
	network, message := chi.URLParam(r, "network"), chi.URLParam(r, "message")

	offset := min(parseIntParam(r, "offset", 0, 0), t.Len())
	limit := min(parseIntParam(r, "limit", defaultPageSize, 1), maxPageSize)
	end := min(offset+limit, t.Len())

	page := TablePage{
		Log:     d.Name,
		Network: network,
		Message: message,
		Total:   t.Len(),
		Offset:  offset,
		Limit:   limit,
		Start:   t.Start(),
		End:     t.End(),
		Columns: make([]TableColumn, len(t.Columns)),
		Time:    t.Time[offset:end],
		Rows:    make([][]any, 0, end-offset),
	}
	for i, c := range t.Columns {
		page.Columns[i] = TableColumn{Name: c.Name, Kind: c.Kind.String()}
	}
	for i := offset; i < end; i++ {
		row := make([]any, len(t.Columns))
		for j := range t.Columns {
			row[j] = t.Columns[j].Value(i)
		}
		page.Rows = append(page.Rows, row)
	}
	s.writeJSON(w, r, page)
}

// handleExportMessage downloads one message table as CSV in the recording
// layout: the timestamp column followed by the payloads.
func (s *Server) handleExportMessage(w http.ResponseWriter, r *http.Request) {
	d, t, ok := s.table(w, r)
	if !ok {
		return
	}
	message := chi.URLParam(r, "message")

	filename := fmt.Sprintf("%s_%s_%s.csv", d.Name, chi.URLParam(r, "network"), message)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))

	if err := t.WriteCSV(w, s.catalog.Options().TimestampColumn); err != nil {
		logging.FromContext(r.Context()).Warn("export aborted", zap.Error(err))
	}
}

// handlePayload returns one payload column with its timestamps.
func (s *Server) handlePayload(w http.ResponseWriter, r *http.Request) {
	d, err := s.catalog.Get(chi.URLParam(r, "log"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := d.Get(chi.URLParam(r, "network"), chi.URLParam(r, "message"), chi.URLParam(r, "payload"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, v)
}

// table resolves the log, network and message URL parameters. On failure it
// writes the error response and returns false.
func (s *Server) table(w http.ResponseWriter, r *http.Request) (*core.Dataset, *core.Table, bool) {
	d, err := s.catalog.Get(chi.URLParam(r, "log"))
	if err != nil {
		s.fail(w, r, err)
		return nil, nil, false
	}
	v, err := d.Get(chi.URLParam(r, "network"), chi.URLParam(r, "message"))
	if err != nil {
		s.fail(w, r, err)
		return nil, nil, false
	}
	return d, v.(*core.Table), true
}

// render writes an HTML component, logging render failures.
func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", zap.Error(err))
	}
}

// parseIntParam parses an integer query parameter, falling back to
// defaultVal when it is missing, malformed or below minVal.
func parseIntParam(r *http.Request, name string, defaultVal, minVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < minVal {
		return defaultVal
	}
	return i
}
