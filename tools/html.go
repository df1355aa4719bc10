/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tools

import (
	"fmt"
	"html"
	"io"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/expr"
	"github.com/Comcast/skillets/filters"

	md "github.com/russross/blackfriday/v2"
)

// DefaultReportTemplate is the Markdown report template used when a
// skillet doesn't have an output template.
const DefaultReportTemplate = `# {{ skillet }}

Status: **{{ status }}**

{% if results.pan_validation is defined %}
| Check | Result | Severity | Message |
|---|---|---|---|
{% for name, v in results.pan_validation %}| {{ v.label }} | {{ 'PASS' if v.results else 'FAIL' }} | {{ v.severity }} | {{ v.output_message }} |
{% endfor %}
{% else %}
{% for name, sn in results.snippets %}* {{ name }}: {{ sn.results }}
{% endfor %}
{% endif %}
`

// RenderMarkdown renders a report template with the result's
// TemplateData.  An empty template means DefaultReportTemplate.  A
// nil env means filters.NewEnv().
func RenderMarkdown(r *core.ExecutionResult, template string, env *expr.Env) (string, error) {
	if template == "" {
		template = DefaultReportTemplate
	}
	if env == nil {
		env = filters.NewEnv()
	}
	return env.Render(template, expr.Vars(r.TemplateData()))
}

// RenderHTML renders the report template (see RenderMarkdown) as
// Markdown and then converts that Markdown to HTML.
func RenderHTML(r *core.ExecutionResult, template string, env *expr.Env, out io.Writer) error {
	s, err := RenderMarkdown(r, template, env)
	if err != nil {
		return err
	}
	_, err = out.Write(md.Run([]byte(s)))
	return err
}

// RenderSkilletHTML writes an HTML description of a skillet: its
// documentation, variables, and snippets.
func RenderSkilletHTML(s *core.Skillet, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}
	e := html.EscapeString

	f(`<div class="skilletDoc doc">%s</div>`, md.Run([]byte(s.Description)))

	if 0 < len(s.Variables) {
		f(`<div class="variables"><table>`)
		f(`<tr><th>name</th><th>type</th><th>default</th><th>description</th></tr>`)
		for _, v := range s.Variables {
			f(`<tr class="variable"><td><code>%s</code></td><td>%s</td><td><code>%s</code></td><td>%s</td></tr>`,
				e(v.Name), e(v.TypeHint), e(expr.Stringify(v.Default)), e(v.Description))
		}
		f(`</table></div>`)
	}

	f(`<div class="snippets"><table>`)
	for _, sn := range s.Snippets {
		f(`<tr class="snippet"><td><span id="%s" class="snippetName">%s</span></td><td>`, e(sn.Name), e(sn.Name))
		if sn.Label != "" {
			f(`<div class="snippetLabel">%s</div>`, e(sn.Label))
		}
		f(`<div>cmd: <span class="kind">%s</span></div>`, e(sn.Kind))
		if sn.When != "" {
			f(`<div>when: <code>%s</code></div>`, e(sn.When))
		}
		if sn.Test != "" {
			f(`<div>test: <code>%s</code></div>`, e(sn.Test))
		}
		if sn.DocumentationLink != "" {
			f(`<div><a href="%s">documentation</a></div>`, e(sn.DocumentationLink))
		}
		for _, name := range sn.Captures() {
			f(`<div>captures: <code>%s</code></div>`, e(name))
		}
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderPage writes a complete HTML page with the given title and a
// body written by the given function.
func RenderPage(title string, out io.Writer, cssFiles []string, body func(io.Writer) error) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/skillet.css"}
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, html.EscapeString(title))

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, html.EscapeString(title))

	if err := body(out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}
