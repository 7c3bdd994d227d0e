// Package web embeds the HTML templates and static assets of the site.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"slices"
	"strings"
	"time"
)

//go:embed templates static
var files embed.FS

var templatePatterns = []string{
	"templates/layouts/*.html",
	"templates/pages/*.html",
	"templates/forms/*.html",
	"templates/errors/*.html",
}

// Datetime layouts for the "datetime" template func
const (
	MediumFormat = "Mon 01, 02, 2006 3:04PM"
	FullFormat   = "Monday January, 2, 2006 at 3:04PM"
)

// FormatDatetime renders t in the "medium" (default) or "full" format, in UTC
func FormatDatetime(t time.Time, format ...string) string {
	layout := MediumFormat
	if len(format) > 0 && format[0] == "full" {
		layout = FullFormat
	}
	return t.UTC().Format(layout)
}

// Funcs are the helpers available to every template
func Funcs() template.FuncMap {
	return template.FuncMap{
		"datetime": FormatDatetime,
		"join":     strings.Join,
		"contains": contains,
		"dict":     dict,
	}
}

func contains(list []string, v string) bool {
	return slices.Contains(list, v)
}

// dict builds a map from alternating keys and values for passing to sub-templates
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[key] = kv[i+1]
	}
	return m, nil
}

// Templates parses every embedded template.
// Pages are addressed by their define name, e.g. "pages/home.html".
func Templates() (*template.Template, error) {
	return template.New("fyyur").Funcs(Funcs()).ParseFS(files, templatePatterns...)
}

// Static serves the embedded css and js
func Static() http.FileSystem {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
