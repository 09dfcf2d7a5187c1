// Package render turns posts, comment trees, summaries and model lists
// into terminal text. Labels come from the locale bundle so the reading
// surface follows the configured language.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"reddiscribe/internal/i18n"
	"reddiscribe/internal/llm"
	"reddiscribe/internal/reddit"
)

// Renderer renders the terminal views for one locale.
type Renderer struct {
	bundle *i18n.Bundle
	tmpl   *template.Template
}

// New creates a Renderer for the given locale bundle.
func New(bundle *i18n.Bundle) (*Renderer, error) {
	tmpl, err := template.New("terminal").Parse(terminalTemplates)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{bundle: bundle, tmpl: tmpl}, nil
}

// PostListData is the template data for a subreddit listing.
type PostListData struct {
	Subreddit string
	Sort      string
	Empty     string
	Posts     []PostRow
}

// PostRow is one listing line.
type PostRow struct {
	Index        int
	Title        string
	Author       string
	Age          string
	Score        int
	CommentsText string
}

// PostData is the template data for a single post header.
type PostData struct {
	Title        string
	Author       string
	Link         string
	Body         string
	Score        int
	CommentsText string
}

type summaryData struct {
	Label string
	Text  string
}

type modelRow struct {
	Name     string
	Size     string
	Modified string
}

// PostList renders a numbered subreddit listing.
func (r *Renderer) PostList(subreddit string, sort reddit.Sort, posts []reddit.Post) (string, error) {
	now := time.Now()
	data := PostListData{
		Subreddit: subreddit,
		Sort:      string(sort),
		Empty:     r.bundle.T("reader.no_posts"),
		Posts:     make([]PostRow, len(posts)),
	}
	for i, p := range posts {
		data.Posts[i] = PostRow{
			Index:        i + 1,
			Title:        p.Title,
			Author:       p.Author,
			Age:          relAge(now, p.CreatedUTC),
			Score:        p.Score,
			CommentsText: r.commentCount(p.NumComments),
		}
	}
	return r.execute("postlist", data)
}

// Post renders a single post with its self text.
func (r *Renderer) Post(p *reddit.Post) (string, error) {
	return r.execute("post", PostData{
		Title:        p.Title,
		Author:       p.Author,
		Link:         p.PermalinkURL(),
		Body:         strings.TrimSpace(p.SelfText),
		Score:        p.Score,
		CommentsText: r.commentCount(p.NumComments),
	})
}

// Summary renders the summary block under its locale label.
func (r *Renderer) Summary(text string) (string, error) {
	return r.execute("summary", summaryData{
		Label: r.bundle.T("reader.summary"),
		Text:  strings.TrimSpace(text),
	})
}

// Models renders the installed model table.
func (r *Renderer) Models(models []llm.Model) (string, error) {
	rows := make([]modelRow, len(models))
	for i, m := range models {
		rows[i] = modelRow{
			Name:     m.Name,
			Size:     humanSize(m.Size),
			Modified: m.ModifiedAt.Format("2006-01-02"),
		}
	}
	return r.execute("models", rows)
}

// Comments renders a comment tree, indenting replies by depth. A
// placeholder node renders as a folded-replies line instead of a
// comment.
func (r *Renderer) Comments(comments []*reddit.Comment) string {
	var buf bytes.Buffer
	for i, c := range comments {
		if i > 0 {
			buf.WriteByte('\n')
		}
		r.writeComment(&buf, c)
	}
	return buf.String()
}

func (r *Renderer) writeComment(buf *bytes.Buffer, c *reddit.Comment) {
	indent := strings.Repeat("  ", c.Depth)
	if c.Placeholder() {
		buf.WriteString(indent)
		buf.WriteString(r.bundle.T("reader.more_comments", "count", strconv.Itoa(c.MoreCount)))
		buf.WriteByte('\n')
		return
	}
	fmt.Fprintf(buf, "%su/%s · ▲%d\n", indent, c.Author, c.Score)
	for _, line := range strings.Split(c.Body, "\n") {
		buf.WriteString(indent)
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	for _, child := range c.Children {
		r.writeComment(buf, child)
	}
}

func (r *Renderer) commentCount(n int) string {
	return r.bundle.T("reader.comment_count", "count", strconv.Itoa(n))
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// relAge gives a compact age like "5m", "3h" or "2d". Zero timestamps
// render as empty.
func relAge(now time.Time, createdUTC float64) string {
	if createdUTC == 0 {
		return ""
	}
	d := now.Sub(time.Unix(int64(createdUTC), 0))
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

const terminalTemplates = `{{define "postlist"}}r/{{.Subreddit}} · {{.Sort}}{{if not .Posts}}

{{.Empty}}{{end}}{{range .Posts}}

{{printf "%3d" .Index}}. {{.Title}}
     ▲{{.Score}} · {{.CommentsText}} · u/{{.Author}}{{with .Age}} · {{.}}{{end}}{{end}}
{{end}}

{{define "post"}}{{.Title}}
▲{{.Score}} · {{.CommentsText}} · u/{{.Author}} · {{.Link}}{{with .Body}}

{{.}}{{end}}
{{end}}

{{define "summary"}}── {{.Label}} ──
{{.Text}}
{{end}}

{{define "models"}}{{range .}}{{printf "%-40s" .Name}} {{printf "%10s" .Size}}  {{.Modified}}
{{end}}{{end}}`
