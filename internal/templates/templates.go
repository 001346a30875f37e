// Package templates renders framework boilerplate for generated projects.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/template"
)

//go:embed files/*.tmpl
var files embed.FS

// Context is the data a template is rendered with.
type Context map[string]any

// defaults fill keys the caller did not set.
var defaults = Context{
	"package":     "com.example",
	"class_name":  "Application",
	"app_name":    "application",
	"module_name": "github.com/company/app",
	"go_version":  "1.22",
	"entity_name": "Entity",
	"domain":      "unknown",
	"language":    "unknown",
	"framework":   "unknown",
	"database":    "unknown",
	"build_tool":  "unknown",
	"subpackage":  "",
}

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
}

// Catalog holds the named templates.
type Catalog struct {
	set   *template.Template
	names map[string]bool
}

// New parses the embedded templates. A parse failure is a programming error
// and panics.
func New() *Catalog {
	entries, err := files.ReadDir("files")
	if err != nil {
		panic(fmt.Sprintf("templates: reading embedded files: %v", err))
	}

	set := template.New("catalog").Funcs(funcs).Option("missingkey=zero")
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		data, err := files.ReadFile(path.Join("files", e.Name()))
		if err != nil {
			panic(fmt.Sprintf("templates: reading %s: %v", e.Name(), err))
		}
		name := strings.TrimSuffix(e.Name(), ".tmpl")
		template.Must(set.New(name).Parse(string(data)))
		names[name] = true
	}
	return &Catalog{set: set, names: names}
}

// Has reports whether a template named name exists.
func (c *Catalog) Has(name string) bool {
	return c.names[name]
}

// Names lists the available templates in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.names))
	for n := range c.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Render executes the named template. It never fails: an unknown name or
// an execution error yields a visible placeholder instead of content.
func (c *Catalog) Render(name string, ctx Context) string {
	if !c.Has(name) {
		return fmt.Sprintf("// Template '%s' not found\n", name)
	}

	data := make(Context, len(defaults)+len(ctx)+1)
	for k, v := range defaults {
		data[k] = v
	}
	for k, v := range ctx {
		data[k] = v
	}
	if _, ok := ctx["table_name"]; !ok {
		data["table_name"] = strings.ToLower(fmt.Sprint(data["entity_name"]))
	}

	var buf bytes.Buffer
	if err := c.set.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Sprintf("// Template '%s' failed to render: %v\n", name, err)
	}
	return buf.String()
}
