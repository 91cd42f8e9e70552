package dashboard

import (
	"fmt"
	"net/http"

	"github.com/dashcast/dashcast/pipeline"
	"github.com/dashcast/dashcast/stocks"
	"github.com/dashcast/dashcast/table"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
)

const (
	previewRows       = 10
	emptyFilterResult = "No data to display with the selected filters."
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, "index", http.StatusOK, page{Title: "Dashboards"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleForecastForm(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, "forecast", http.StatusOK, forecastPage{
		page: page{Title: "Forecast"},
		Form: forecastForm{History: s.cfg.Forecast.DefaultHistory, Horizon: pipeline.HorizonShort.String()},
	})
}

// runForecast loads the upload and runs the pipeline. The uploaded table is returned even
// when the run fails so the preview can still be shown.
func (s *Server) runForecast(w http.ResponseWriter, r *http.Request) (forecastForm, *table.Table, *pipeline.Result, error) {
	tbl, err := s.readUpload(w, r)
	if err != nil {
		return forecastForm{}, nil, nil, err
	}
	form, err := s.parseForecastForm(r)
	if err != nil {
		return form, tbl, nil, err
	}
	req, err := s.forecastRequest(form)
	if err != nil {
		return form, tbl, nil, err
	}

	res, err := s.engine.Run(req, tbl)
	if err != nil {
		return form, tbl, nil, err
	}
	s.metrics.observeResult(res)
	if res.AccuracyErr != nil {
		s.metrics.observeError(res.AccuracyErr)
	}
	return form, tbl, res, nil
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	form, tbl, res, err := s.runForecast(w, r)
	p := forecastPage{page: page{Title: "Forecast"}, Form: form}
	if tbl != nil {
		p.Preview = tbl.Head(previewRows)
	}
	if err != nil {
		status := s.fail(r, err, &p.page)
		s.writePage(w, "forecast", status, p)
		return
	}

	p.Rows = pipeline.RowsTable(res.Rows)
	p.Accuracy = res.Accuracy
	if res.AccuracyErr != nil {
		_, p.Warning = userMessage(res.AccuracyErr)
	}
	if p.Charts, err = renderCharts(res.Chart()); err != nil {
		s.log.Error().Err(err).Msg("unable to render forecast chart")
	}
	s.writePage(w, "forecast", http.StatusOK, p)
}

type forecastResponse struct {
	RequestID     string                   `json:"request_id"`
	Rows          []pipeline.ForecastRow   `json:"rows"`
	Accuracy      *pipeline.AccuracyReport `json:"accuracy"`
	AccuracyError string                   `json:"accuracy_error,omitempty"`
	History       int                      `json:"history"`
	BandAnomalies int                      `json:"band_anomalies"`
}

func (s *Server) handleForecastAPI(w http.ResponseWriter, r *http.Request) {
	_, _, res, err := s.runForecast(w, r)
	if err != nil {
		var p page
		status := s.fail(r, err, &p)
		s.writeError(w, status, p.Error)
		return
	}

	resp := forecastResponse{
		RequestID:     res.Request.ID.String(),
		Rows:          res.Rows,
		Accuracy:      res.Accuracy,
		History:       len(res.History),
		BandAnomalies: res.BandAnomalies,
	}
	if res.AccuracyErr != nil {
		_, resp.AccuracyError = userMessage(res.AccuracyErr)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleForecastExport(w http.ResponseWriter, r *http.Request) {
	_, _, res, err := s.runForecast(w, r)
	if err != nil {
		var p page
		status := s.fail(r, err, &p)
		http.Error(w, p.Error, status)
		return
	}
	s.writeCSV(w, "forecast.csv", pipeline.RowsTable(res.Rows))
}

func (s *Server) handleExploreForm(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, "explore", http.StatusOK, explorePage{page: page{Title: "Explore"}})
}

func (s *Server) runExplore(w http.ResponseWriter, r *http.Request) (exploreForm, *table.Table, *table.Table, error) {
	tbl, err := s.readUpload(w, r)
	if err != nil {
		return exploreForm{}, nil, nil, err
	}
	form, err := parseExploreForm(r)
	if err != nil {
		return form, tbl, nil, err
	}
	filtered, err := exploreTable(tbl, form)
	if err != nil {
		return form, tbl, nil, err
	}
	return form, tbl, filtered, nil
}

func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	form, tbl, filtered, err := s.runExplore(w, r)
	p := explorePage{page: page{Title: "Explore"}, Form: form}
	if tbl != nil {
		p.Preview = tbl.Head(previewRows)
	}
	if err != nil {
		status := s.fail(r, err, &p.page)
		s.writePage(w, "explore", status, p)
		return
	}

	p.Filtered = filtered
	if filtered.Len() == 0 {
		p.Warning = emptyFilterResult
		s.writePage(w, "explore", http.StatusOK, p)
		return
	}

	if form.Category != "" && form.Value != "" {
		totals, err := categoryTotals(filtered, form.Category, form.Value)
		if err != nil {
			status := s.fail(r, err, &p.page)
			s.writePage(w, "explore", status, p)
			return
		}
		title := fmt.Sprintf("%s per %s", form.Value, form.Category)
		if p.Charts, err = renderCharts(categoryBar(title, totals)); err != nil {
			s.log.Error().Err(err).Msg("unable to render explore chart")
		}
	}
	s.writePage(w, "explore", http.StatusOK, p)
}

func (s *Server) handleExploreExport(w http.ResponseWriter, r *http.Request) {
	_, _, filtered, err := s.runExplore(w, r)
	if err != nil {
		var p page
		status := s.fail(r, err, &p)
		http.Error(w, p.Error, status)
		return
	}
	s.writeCSV(w, "filtered_data.csv", filtered)
}

// fetchStocks returns the prices of the requested ticker. A request without a ticker
// returns no prices and no error.
func (s *Server) fetchStocks(r *http.Request) (stocksForm, []stocks.Price, error) {
	form, err := parseStocksForm(r, s.now())
	if form.Ticker == "" {
		return form, nil, nil
	}
	if err != nil {
		return form, nil, err
	}
	if s.prices == nil {
		return form, nil, fmt.Errorf("no price source configured, %w", stocks.ErrUpstream)
	}
	start, end := form.dates()
	prices, err := s.prices.HistoricalPrices(r.Context(), form.Ticker, start, end)
	return form, prices, err
}

func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	form, prices, err := s.fetchStocks(r)
	p := stocksPage{page: page{Title: "Stock Price App"}, Form: form}
	if err != nil {
		status := s.fail(r, err, &p.page)
		s.writePage(w, "stocks", status, p)
		return
	}
	if len(prices) == 0 {
		s.writePage(w, "stocks", http.StatusOK, p)
		return
	}

	p.Data = stocks.ToTable(prices)
	if p.Summary, err = p.Data.Describe(); err != nil {
		s.log.Warn().Err(err).Msg("unable to summarize stock prices")
	}
	if p.Charts, err = renderCharts(stockCharts(form.Ticker, prices)...); err != nil {
		s.log.Error().Err(err).Msg("unable to render stock charts")
	}
	s.writePage(w, "stocks", http.StatusOK, p)
}

func (s *Server) handleStocksExport(w http.ResponseWriter, r *http.Request) {
	form, prices, err := s.fetchStocks(r)
	if err == nil && len(prices) == 0 {
		err = fmt.Errorf("ticker, %w", ErrInvalidForm)
	}
	if err != nil {
		var p page
		status := s.fail(r, err, &p)
		http.Error(w, p.Error, status)
		return
	}
	s.writeCSV(w, form.Ticker+"_stock_data.csv", stocks.ToTable(prices))
}

// fail logs and counts err and sets the page error message
func (s *Server) fail(r *http.Request, err error, p *page) int {
	status, msg := userMessage(err)
	p.Error = msg
	s.metrics.observeError(err)

	evt := s.log.Warn()
	if status >= http.StatusInternalServerError {
		evt = s.log.Error()
	}
	evt.Err(err).
		Int("status", status).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("request failed")
	return status
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("unable to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeCSV(w http.ResponseWriter, filename string, t *table.Table) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := t.WriteCSV(w); err != nil {
		s.log.Error().Err(err).Str("filename", filename).Msg("unable to write CSV")
	}
}
