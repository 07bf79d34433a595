package report

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jgivc/emojifetch/internal/entity"
	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
	"gopkg.in/yaml.v2"
)

const (
	defaultTitle = "Emoji fetch report"
	extHTML      = ".html"
	filePerm     = 0644
	timeLayout   = time.RFC3339

	pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
</head>
<body>
{{ .Body }}
</body>
</html>
`
)

type Frontmatter struct {
	Title      string `yaml:"title"`
	RunID      string `yaml:"run_id"`
	Started    string `yaml:"started"`
	Finished   string `yaml:"finished"`
	Downloaded int    `yaml:"downloaded"`
	Skipped    int    `yaml:"skipped"`
	Missing    int    `yaml:"missing"`
	Failed     int    `yaml:"failed"`
	Bytes      int64  `yaml:"bytes"`
}

type page struct {
	Title string
	Body  template.HTML
}

type reportAdapter struct {
	fs   afero.Fs
	md   goldmark.Markdown
	tmpl *template.Template
	log  *slog.Logger
}

func NewReportAdapter(log *slog.Logger) *reportAdapter {
	return NewReportAdapterWithFS(afero.NewOsFs(), log)
}

func NewReportAdapterWithFS(fs afero.Fs, log *slog.Logger) *reportAdapter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			&frontmatter.Extender{},
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	return &reportAdapter{
		fs:   fs,
		md:   md,
		tmpl: template.Must(template.New("report").Parse(pageTemplate)),
		log:  log.With(slog.String("item", "ReportAdapter")),
	}
}

// Write stores the markdown report at fileName and the rendered page next to it.
func (a *reportAdapter) Write(fileName string, summary *entity.Summary) error {
	source, err := Markdown(summary)
	if err != nil {
		return err
	}

	if err := afero.WriteFile(a.fs, fileName, source, filePerm); err != nil {
		return fmt.Errorf("cannot write report %s: %w", fileName, err)
	}

	content, err := a.Render(source)
	if err != nil {
		return err
	}

	htmlFileName := HTMLFileName(fileName)
	if err := afero.WriteFile(a.fs, htmlFileName, content, filePerm); err != nil {
		return fmt.Errorf("cannot write report %s: %w", htmlFileName, err)
	}

	a.log.Info("Report saved", slog.String("markdown", fileName), slog.String("html", htmlFileName))

	return nil
}

// Render converts a markdown report into a standalone html page.
// The page title comes from the frontmatter.
func (a *reportAdapter) Render(source []byte) ([]byte, error) {
	var buf bytes.Buffer

	ctx := parser.NewContext()
	if err := a.md.Convert(source, &buf, parser.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("cannot convert report: %w", err)
	}

	p := page{
		Title: defaultTitle,
		Body:  template.HTML(buf.String()),
	}

	if fm := frontmatter.Get(ctx); fm != nil {
		var meta struct {
			Title string `yaml:"title"`
		}
		if err := fm.Decode(&meta); err != nil {
			return nil, fmt.Errorf("cannot decode report frontmatter: %w", err)
		}

		if meta.Title != "" {
			p.Title = meta.Title
		}
	}

	var out bytes.Buffer
	if err := a.tmpl.Execute(&out, p); err != nil {
		return nil, fmt.Errorf("cannot execute report template: %w", err)
	}

	return out.Bytes(), nil
}

func HTMLFileName(fileName string) string {
	ext := filepath.Ext(fileName)
	if strings.EqualFold(ext, extHTML) {
		return fileName + extHTML
	}

	return strings.TrimSuffix(fileName, ext) + extHTML
}

// Markdown builds the report source: a yaml frontmatter block followed by
// the outcome table in catalog order.
func Markdown(summary *entity.Summary) ([]byte, error) {
	fm := Frontmatter{
		Title:      defaultTitle,
		RunID:      summary.RunID,
		Started:    summary.Started.Format(timeLayout),
		Finished:   summary.Finished.Format(timeLayout),
		Downloaded: summary.Downloaded,
		Skipped:    summary.Skipped,
		Missing:    summary.Missing,
		Failed:     summary.Failed,
		Bytes:      summary.Bytes,
	}

	meta, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal report frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n\n")

	fmt.Fprintf(&buf, "# %s\n\n", defaultTitle)
	fmt.Fprintf(&buf, "Downloaded: %d, skipped: %d, missing url: %d, failed: %d, bytes: %d\n\n",
		summary.Downloaded, summary.Skipped, summary.Missing, summary.Failed, summary.Bytes)

	if len(summary.Outcomes) < 1 {
		buf.WriteString("Catalog is empty.\n")

		return buf.Bytes(), nil
	}

	buf.WriteString("| Key | Name | Outcome | File | Bytes | Error |\n")
	buf.WriteString("|---|---|---|---|---:|---|\n")

	for _, o := range summary.Outcomes {
		var errMsg string
		if o.Kind == entity.OutcomeFailed && o.Err != nil {
			errMsg = o.Err.Error()
		}

		var file string
		if o.Path != "" {
			file = filepath.Base(o.Path)
		}

		fmt.Fprintf(&buf, "| %s | %s | %s | %s | %d | %s |\n",
			cell(o.Key), cell(o.Name), o.Kind, cell(file), o.Bytes, cell(errMsg))
	}

	return buf.Bytes(), nil
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\n", " ", "\r", " ")

func cell(s string) string {
	return cellReplacer.Replace(s)
}
