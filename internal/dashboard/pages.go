package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/dashcast/dashcast/pipeline"
	"github.com/dashcast/dashcast/table"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	templates map[string]*template.Template
}

func loadPages() (*pages, error) {
	p := &pages{templates: make(map[string]*template.Template)}
	for _, name := range []string{"index", "forecast", "explore", "stocks"} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("unable to parse %s template, %w", name, err)
		}
		p.templates[name] = tmpl
	}
	return p, nil
}

func (p *pages) render(w io.Writer, name string, data any) error {
	tmpl, ok := p.templates[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

type page struct {
	Title   string
	Error   string
	Warning string
	Charts  string
}

type forecastPage struct {
	page
	Form     forecastForm
	Preview  *table.Table
	Rows     *table.Table
	Accuracy *pipeline.AccuracyReport
}

type explorePage struct {
	page
	Form     exploreForm
	Preview  *table.Table
	Filtered *table.Table
}

type stocksPage struct {
	page
	Form    stocksForm
	Data    *table.Table
	Summary *table.Table
}

// writePage renders a page. An error set on the page picks the status code.
func (s *Server) writePage(w http.ResponseWriter, name string, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.render(w, name, data); err != nil {
		s.log.Error().Err(err).Str("page", name).Msg("unable to render page")
	}
}
