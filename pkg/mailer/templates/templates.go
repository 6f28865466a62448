package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"strings"
	"sync"
	texttpl "text/template"
)

//go:embed *.tmpl
var FS embed.FS

const (
	Welcome         = "welcome"
	BorrowReceipt   = "borrow_receipt"
	ReturnReceipt   = "return_receipt"
	OverdueReminder = "overdue_reminder"
)

// Names lists every template set shipped in FS. Each has a subject, a text
// and an html part.
var Names = []string{Welcome, BorrowReceipt, ReturnReceipt, OverdueReminder}

// EmailData is what every template can reference. It travels through the
// queue as a map (see ToMap), so numbers arrive as float64.
type EmailData struct {
	Name           string `json:"Name"`
	RecipientEmail string `json:"RecipientEmail"`
	Type           string `json:"Type"`

	LibraryName    string `json:"LibraryName"`
	LibraryAddress string `json:"LibraryAddress"`
	AppName        string `json:"AppName"`
	SupportURL     string `json:"SupportURL"`

	BorrowID       string `json:"BorrowID"`
	BookTitle      string `json:"BookTitle"`
	BorrowedAtText string `json:"BorrowedAtText"`
	DueAtText      string `json:"DueAtText"`
	ReturnedAtText string `json:"ReturnedAtText"`
	DaysOverdue    int    `json:"DaysOverdue"`

	Time string `json:"Time"`
}

func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// orDefault backs {{ .Name | default "there" }}: blank strings, nil and
// numeric zero fall back.
func orDefault(fallback, value any) any {
	switch x := value.(type) {
	case nil:
		return fallback
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
	case int:
		if x == 0 {
			return fallback
		}
	case float64:
		if x == 0 {
			return fallback
		}
	}
	return value
}

// days renders 1 as "1 day" and everything else as "N days".
func days(n any) string {
	var v int
	switch x := n.(type) {
	case int:
		v = x
	case float64:
		v = int(x)
	}
	if v == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", v)
}

var funcs = map[string]any{
	"default": orDefault,
	"days":    days,
}

type set struct {
	text *texttpl.Template
	html *htmpl.Template
}

var (
	parseOnce sync.Once
	parsed    set
	parseErr  error
)

// load parses every embedded template once. Text parts (subject and body)
// share one text/template set, html parts an html/template set.
func load() (set, error) {
	parseOnce.Do(func() {
		text, err := texttpl.New("").Funcs(texttpl.FuncMap(funcs)).ParseFS(FS, "*.subject.tmpl", "*.text.tmpl")
		if err != nil {
			parseErr = fmt.Errorf("parse text templates: %w", err)
			return
		}
		html, err := htmpl.New("").Funcs(htmpl.FuncMap(funcs)).ParseFS(FS, "*.html.tmpl")
		if err != nil {
			parseErr = fmt.Errorf("parse html templates: %w", err)
			return
		}
		parsed = set{text: text, html: html}
	})
	return parsed, parseErr
}

func execText(s set, file string, data any) (string, error) {
	t := s.text.Lookup(file)
	if t == nil {
		return "", fmt.Errorf("unknown template %q", file)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", file, err)
	}
	return buf.String(), nil
}

func execHTML(s set, file string, data any) (string, error) {
	t := s.html.Lookup(file)
	if t == nil {
		return "", fmt.Errorf("unknown template %q", file)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", file, err)
	}
	return buf.String(), nil
}

// Render produces the subject (trimmed to one line), text and html bodies of
// the named template set.
func Render(name string, data any) (subject, text, html string, err error) {
	s, err := load()
	if err != nil {
		return "", "", "", err
	}
	if subject, err = execText(s, name+".subject.tmpl", data); err != nil {
		return "", "", "", err
	}
	if text, err = execText(s, name+".text.tmpl", data); err != nil {
		return "", "", "", err
	}
	if html, err = execHTML(s, name+".html.tmpl", data); err != nil {
		return "", "", "", err
	}
	return strings.Join(strings.Fields(subject), " "), text, html, nil
}

func RenderHTML(name string, data any) (string, error) {
	s, err := load()
	if err != nil {
		return "", err
	}
	return execHTML(s, name+".html.tmpl", data)
}
