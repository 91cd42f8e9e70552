package dashboard

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dashcast/dashcast/pipeline"
	"github.com/dashcast/dashcast/table"
	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidForm = errors.New("invalid form")
	ErrNoUpload    = errors.New("no file uploaded")
)

var validate = validator.New()

type forecastForm struct {
	DateColumn  string `validate:"required"`
	ValueColumn string `validate:"required"`
	History     int    `validate:"gte=10"`
	Horizon     string `validate:"oneof=short long 3 6"`
}

type exploreForm struct {
	Select     []string
	Filters    map[string][]string
	DateColumn string
	Start      string `validate:"omitempty,datetime=2006-01-02"`
	End        string `validate:"omitempty,datetime=2006-01-02"`
	Category   string
	Value      string
}

type stocksForm struct {
	Ticker string `validate:"required,max=16"`
	Start  string `validate:"required,datetime=2006-01-02"`
	End    string `validate:"required,datetime=2006-01-02"`
}

func checkForm(form any) error {
	if err := validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fe.Field()
			}
			return fmt.Errorf("%s, %w", strings.Join(fields, ", "), ErrInvalidForm)
		}
		return err
	}
	return nil
}

// readUpload parses the multipart body and loads the uploaded file
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*table.Table, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, maxErr
		}
		return nil, ErrNoUpload
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, ErrNoUpload
	}
	defer file.Close()
	return table.Load(header.Filename, file)
}

// parseForecastForm reads the forecast fields. The history window defaults to the
// configured value and is silently capped at the configured maximum.
func (s *Server) parseForecastForm(r *http.Request) (forecastForm, error) {
	form := forecastForm{
		DateColumn:  strings.TrimSpace(r.FormValue("date_column")),
		ValueColumn: strings.TrimSpace(r.FormValue("value_column")),
		History:     s.cfg.Forecast.DefaultHistory,
		Horizon:     strings.ToLower(strings.TrimSpace(r.FormValue("horizon"))),
	}
	if form.Horizon == "" {
		form.Horizon = pipeline.HorizonShort.String()
	}
	if v := strings.TrimSpace(r.FormValue("history")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return form, fmt.Errorf("history, %w", ErrInvalidForm)
		}
		form.History = n
	}
	if err := checkForm(form); err != nil {
		return form, err
	}
	form.History = min(form.History, s.cfg.Forecast.MaxHistory)
	return form, nil
}

func (s *Server) forecastRequest(form forecastForm) (pipeline.Request, error) {
	horizon, err := pipeline.ParseHorizon(form.Horizon)
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.NewRequest(form.DateColumn, form.ValueColumn, form.History, horizon, s.now()), nil
}

// parseExploreForm reads repeated select=col and filter=col:value fields
func parseExploreForm(r *http.Request) (exploreForm, error) {
	form := exploreForm{
		Select:     nonEmpty(r.Form["select"]),
		Filters:    make(map[string][]string),
		DateColumn: strings.TrimSpace(r.FormValue("date_column")),
		Start:      strings.TrimSpace(r.FormValue("start")),
		End:        strings.TrimSpace(r.FormValue("end")),
		Category:   strings.TrimSpace(r.FormValue("category")),
		Value:      strings.TrimSpace(r.FormValue("value")),
	}
	for _, f := range r.Form["filter"] {
		col, val, ok := strings.Cut(f, ":")
		if !ok || strings.TrimSpace(col) == "" {
			return form, fmt.Errorf("filter %q, %w", f, ErrInvalidForm)
		}
		col = strings.TrimSpace(col)
		form.Filters[col] = append(form.Filters[col], strings.TrimSpace(val))
	}
	return form, checkForm(form)
}

func parseStocksForm(r *http.Request, now time.Time) (stocksForm, error) {
	form := stocksForm{
		Ticker: strings.ToUpper(strings.TrimSpace(r.FormValue("ticker"))),
		Start:  strings.TrimSpace(r.FormValue("start")),
		End:    strings.TrimSpace(r.FormValue("end")),
	}
	if form.Start == "" {
		form.Start = "2020-01-01"
	}
	if form.End == "" {
		form.End = now.Format(time.DateOnly)
	}
	return form, checkForm(form)
}

func (f stocksForm) dates() (time.Time, time.Time) {
	start, _ := time.Parse(time.DateOnly, f.Start)
	end, _ := time.Parse(time.DateOnly, f.End)
	return start, end
}

func nonEmpty(vals []string) []string {
	var res []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			res = append(res, v)
		}
	}
	return res
}
