// Package views renders the server-side HTML page from embedded templates.
package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"strconv"
	"strings"
)

var pageTmpl *template.Template

var funcs = template.FuncMap{
	"repeat": func(s string, n int) string {
		if n <= 0 {
			return ""
		}
		return strings.Repeat(s, n)
	},
	"mw": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 0, 64) + " MW"
	},
	"add": func(a, b int) int { return a + b },
}

// loadTemplatesFromFS loads the page templates from the given fs and dir.
// Tests use it to simulate broken template sets.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	pageTmpl = tmpl
	return nil
}

// LoadTemplates loads the embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// RenderPage executes the full page.
func RenderPage(w io.Writer, data *PageData) error {
	if pageTmpl == nil {
		return errors.New("page template not loaded: call views.LoadTemplates during startup")
	}
	return pageTmpl.ExecuteTemplate(w, "page.html", data)
}

// RenderCityTable executes only the ranking table fragment.
func RenderCityTable(w io.Writer, data *CityTable) error {
	if pageTmpl == nil {
		return errors.New("page template not loaded: call views.LoadTemplates during startup")
	}
	return pageTmpl.ExecuteTemplate(w, "city_table", data)
}
