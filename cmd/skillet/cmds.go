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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/sio"
	"github.com/Comcast/skillets/storage"
	"github.com/Comcast/skillets/storage/bolt"
	"github.com/Comcast/skillets/tools"
	"github.com/Comcast/skillets/tools/expect"
)

// Runner executes a skillet once.
type Runner struct {
	Source
	Input
	Sinks
	Full bool
}

func (c *Runner) Doc() string {
	return `Executes a skillet and writes its result (as JSON) to stdout.
  Exits with status 2 if the result is a failure.`
}

func (c *Runner) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	c.Source.bind(fs)
	c.Input.bind(fs)
	c.Sinks.bind(fs)
	fs.BoolVar(&c.Full, "full", false, "write the entire result")
	return fs
}

func (c *Runner) F(ctx context.Context) error {
	s, _, err := c.Load(ctx)
	if err != nil {
		return err
	}
	input, err := c.Context()
	if err != nil {
		return err
	}
	pubs, closer, err := c.Open(ctx)
	if err != nil {
		return err
	}
	defer closer()

	r, err := s.Execute(ctx, input)
	if r == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	var x interface{} = sio.NewMessage(r)
	if c.Full {
		x = r
	}
	if err := printJSON(x); err != nil {
		return err
	}

	if err := pubs.Publish(ctx, r); err != nil {
		return err
	}

	if r.Status == core.Failure {
		return Failed
	}
	return nil
}

// StdioCmd executes a skillet for each input line.
type StdioCmd struct {
	Source
	Sinks
	sio.Stdio
}

func (c *StdioCmd) Doc() string {
	return `Reads input contexts (one JSON object per line) from stdin, executes
  the skillet for each, and writes results to stdout.`
}

func (c *StdioCmd) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("stdio", flag.ExitOnError)
	c.Source.bind(fs)
	c.Sinks.bind(fs)
	fs.BoolVar(&c.Timestamps, "ts", false, "timestamp output lines")
	fs.BoolVar(&c.Tags, "tags", true, "tag output lines")
	fs.BoolVar(&c.PadTags, "pad-tags", false, "pad tags")
	fs.BoolVar(&c.EchoInput, "echo", false, "echo input lines")
	fs.BoolVar(&c.Full, "full", false, "write entire results")
	return fs
}

func (c *StdioCmd) F(ctx context.Context) error {
	s, _, err := c.Load(ctx)
	if err != nil {
		return err
	}
	pubs, closer, err := c.Open(ctx)
	if err != nil {
		return err
	}
	defer closer()

	c.In, c.Out = os.Stdin, os.Stdout
	pubs = append(sio.Publishers{&c.Stdio}, pubs...)

	return c.Loop(ctx, sio.SkilletExecutor(s), pubs)
}

// Reporter renders a result with the skillet's output template.
type Reporter struct {
	Source
	Input
	Markdown bool
	Page     bool
	Template string
}

func (c *Reporter) Doc() string {
	return `Executes a skillet and renders an HTML report using the skillet's
  output template (or a default).`
}

func (c *Reporter) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	c.Source.bind(fs)
	c.Input.bind(fs)
	fs.BoolVar(&c.Markdown, "md", false, "write Markdown rather than HTML")
	fs.BoolVar(&c.Page, "page", false, "write a complete HTML page")
	fs.StringVar(&c.Template, "t", "", "optional template file (overrides the skillet's)")
	return fs
}

func (c *Reporter) F(ctx context.Context) error {
	s, _, err := c.Load(ctx)
	if err != nil {
		return err
	}
	input, err := c.Context()
	if err != nil {
		return err
	}

	template := s.OutputTemplate
	if c.Template != "" {
		bs, err := os.ReadFile(c.Template)
		if err != nil {
			return err
		}
		template = string(bs)
	}

	r, err := s.Execute(ctx, input)
	if r == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	if c.Markdown {
		md, err := tools.RenderMarkdown(r, template, s.Env())
		if err != nil {
			return err
		}
		_, err = fmt.Print(md)
		return err
	}

	body := func(w io.Writer) error {
		return tools.RenderHTML(r, template, s.Env(), w)
	}
	if c.Page {
		title := s.Label
		if title == "" {
			title = s.Name
		}
		return tools.RenderPage(title, os.Stdout, nil, body)
	}
	return body(os.Stdout)
}

// Analyzer reports on a skillet's variables.
type Analyzer struct {
	Source
	Inputs string
}

func (c *Analyzer) Doc() string {
	return `Analyzes a skillet's variable use.  Exits with status 2 if the analysis
  found undeclared or late references.`
}

func (c *Analyzer) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	c.Source.bind(fs)
	fs.StringVar(&c.Inputs, "inputs", "config", "comma-separated names supplied by input")
	return fs
}

func (c *Analyzer) F(ctx context.Context) error {
	s, _, err := c.Load(ctx)
	if err != nil {
		return err
	}
	var inputs []string
	if c.Inputs != "" {
		inputs = strings.Split(c.Inputs, ",")
	}
	a, err := tools.Analyze(s, inputs...)
	if err != nil {
		return err
	}
	if err = printJSON(a); err != nil {
		return err
	}
	if !a.OK() {
		return Failed
	}
	return nil
}

// Grapher draws a skillet's data flow.
type Grapher struct {
	Source
	Format    string
	Params    bool
	Highlight string
}

func (c *Grapher) Doc() string {
	return `Writes a graph (Graphviz dot or Mermaid) of how data flows among a
  skillet's snippets.`
}

func (c *Grapher) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	c.Source.bind(fs)
	fs.StringVar(&c.Format, "format", "dot", "dot or mermaid")
	fs.BoolVar(&c.Params, "params", false, "show snippet parameters (dot only)")
	fs.StringVar(&c.Highlight, "highlight", "", "snippet to highlight (dot only)")
	return fs
}

func (c *Grapher) F(ctx context.Context) error {
	s, _, err := c.Load(ctx)
	if err != nil {
		return err
	}
	switch c.Format {
	case "dot":
		return tools.Dot(s, os.Stdout, &tools.DotOpts{
			ShowParams: c.Params,
			Highlight:  c.Highlight,
		})
	case "mermaid":
		return tools.Mermaid(s, os.Stdout, nil)
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
}

// Dumper writes a skillet's composed definition.
type Dumper struct {
	Source
}

func (c *Dumper) Doc() string {
	return `Writes a skillet's composed definition as YAML.`
}

func (c *Dumper) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	c.Source.bind(fs)
	return fs
}

func (c *Dumper) F(ctx context.Context) error {
	s, _, err := c.Load(ctx)
	if err != nil {
		return err
	}
	return tools.DumpYAML(s, os.Stdout)
}

// Lister lists the skillets in a directory.
type Lister struct {
	Source
}

func (c *Lister) Doc() string {
	return `Lists the skillets in a directory and any files that couldn't be loaded.`
}

func (c *Lister) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.StringVar(&c.Dir, "d", ".", "directory of skillets")
	return fs
}

func (c *Lister) F(ctx context.Context) error {
	l, err := c.loader()
	if err != nil {
		return err
	}
	for _, name := range l.Names() {
		s, _ := l.Find(name)
		fmt.Printf("%-32s %-16s %s\n", name, s.Type, s.Label)
	}
	for _, e := range l.Errors {
		fmt.Printf("error: %s\n", e)
	}
	if 0 < len(l.Errors) {
		return Failed
	}
	return nil
}

// History shows recorded runs.
type History struct {
	DB      string
	Skillet string
	Id      string
}

func (c *History) Doc() string {
	return `Lists the recorded runs of a skillet or shows one run.`
}

func (c *History) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	fs.StringVar(&c.DB, "db", "skillets.db", "bolt database")
	fs.StringVar(&c.Skillet, "s", "", "skillet name")
	fs.StringVar(&c.Id, "id", "", "optional run id")
	return fs
}

func (c *History) F(ctx context.Context) error {
	if c.Skillet == "" {
		return NoSkillet
	}
	db, err := bolt.NewStorage(c.DB)
	if err != nil {
		return err
	}
	if err = db.Open(ctx); err != nil {
		return err
	}
	defer db.Close(ctx)

	if c.Id != "" {
		r, err := db.Get(ctx, c.Skillet, c.Id)
		if err != nil {
			return err
		}
		return printJSON(r)
	}

	rs, err := db.List(ctx, c.Skillet)
	if err != nil {
		return err
	}
	for _, r := range rs {
		fmt.Println(historyLine(r))
	}
	return nil
}

func historyLine(r *storage.Run) string {
	return fmt.Sprintf("%s %-32s %-8s %s", r.Id, r.Started, r.Status, r.Summary)
}

// Expecter runs an expect.Session.
type Expecter struct {
	Source
	Session string
}

func (c *Expecter) Doc() string {
	return `Runs a test session (see tools/expect) against a skillet.  Exits with
  status 2 if any expectation didn't hold.`
}

func (c *Expecter) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("expect", flag.ExitOnError)
	c.Source.bind(fs)
	fs.StringVar(&c.Session, "session", "", "session file (YAML)")
	return fs
}

func (c *Expecter) F(ctx context.Context) error {
	session, err := expect.ReadSession(c.Session)
	if err != nil {
		return err
	}
	if c.Name == "" {
		c.Name = session.Skillet
	}
	s, _, err := c.Load(ctx)
	if err != nil {
		return err
	}
	report, err := session.Run(ctx, s, filepath.Dir(c.Session))
	if err != nil {
		return err
	}
	if err = printJSON(report); err != nil {
		return err
	}
	if !report.OK() {
		return Failed
	}
	return nil
}
