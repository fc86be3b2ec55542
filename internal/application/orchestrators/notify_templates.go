package orchestrators

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"

	"gymdesk/internal/domain/notification"
)

// DeadlineLayout renders the claim deadline shown to members.
const DeadlineLayout = "Monday 2 January 2006, 15:04 MST"

// ClassOccurrence describes the class a message is about.
type ClassOccurrence struct {
	ClassName string
	DayOfWeek string
	StartTime string
	EndTime   string
	Date      string // optional YYYY-MM-DD
}

// When renders the occurrence time, e.g. "Monday 18:00 - 19:00".
func (c ClassOccurrence) When() string {
	var b strings.Builder
	if c.Date != "" {
		b.WriteString(c.Date)
		b.WriteString(" ")
	}
	if c.DayOfWeek != "" {
		first, size := utf8.DecodeRuneInString(c.DayOfWeek)
		b.WriteRune(unicode.ToUpper(first))
		b.WriteString(c.DayOfWeek[size:])
		b.WriteString(" ")
	}
	b.WriteString(c.StartTime)
	if c.EndTime != "" {
		b.WriteString(" - ")
		b.WriteString(c.EndTime)
	}
	return strings.TrimSpace(b.String())
}

// Name falls back to a generic label when the class name is unknown.
func (c ClassOccurrence) Name() string {
	if strings.TrimSpace(c.ClassName) == "" {
		return "your class"
	}
	return c.ClassName
}

type spotAvailableData struct {
	Greeting string
	Class    ClassOccurrence
	Deadline string
}

type classCancelledData struct {
	Greeting string
	Class    ClassOccurrence
	Reason   string
}

var (
	spotAvailableEmail = template.Must(template.New("spot_available").Parse(`Hi {{.Greeting}},

Good news! A spot has opened up in **{{.Class.Name}}** ({{.Class.When}}).

You were first on the waitlist, so the spot is held for you until **{{.Deadline}}**.
Book it before then or it will be offered to the next member in the queue.
`))

	classCancelledEmail = template.Must(template.New("class_cancelled").Parse(`Hi {{.Greeting}},

Unfortunately **{{.Class.Name}}** ({{.Class.When}}) has been cancelled.
{{if .Reason}}
> {{.Reason}}
{{end}}
Your booking has been released. We're sorry for the inconvenience.
`))
)

// renderedMessage is a notification title/message plus the email parts.
type renderedMessage struct {
	Category string // notification type, reused as the email tag
	Title    string
	Message  string
	Subject  string
	HTML     string
	Text     string // markdown source, sent as the plain-text part
}

// renderSpotAvailable builds the waitlist promotion messages.
// PRE: deadline is the entry's expiry instant
// POST: HTML is goldmark output of the markdown template
func renderSpotAvailable(greeting string, class ClassOccurrence, deadline time.Time) (renderedMessage, error) {
	d := deadline.UTC().Format(DeadlineLayout)
	text, html, err := renderMarkdown(spotAvailableEmail, spotAvailableData{Greeting: greeting, Class: class, Deadline: d})
	if err != nil {
		return renderedMessage{}, err
	}
	return renderedMessage{
		Category: notification.TypeWaitlistSpotAvailable,
		Title:    "Spot available: " + class.Name(),
		Message:  fmt.Sprintf("A spot opened in %s (%s). Claim it before %s.", class.Name(), class.When(), d),
		Subject:  fmt.Sprintf("A spot is available in %s", class.Name()),
		HTML:     html,
		Text:     text,
	}, nil
}

// renderClassCancelled builds the cancellation messages.
func renderClassCancelled(greeting string, class ClassOccurrence, reason string) (renderedMessage, error) {
	text, html, err := renderMarkdown(classCancelledEmail, classCancelledData{Greeting: greeting, Class: class, Reason: reason})
	if err != nil {
		return renderedMessage{}, err
	}
	msg := fmt.Sprintf("%s (%s) has been cancelled.", class.Name(), class.When())
	if reason != "" {
		msg += " Reason: " + reason
	}
	return renderedMessage{
		Category: notification.TypeClassCancelled,
		Title:    "Class cancelled: " + class.Name(),
		Message:  msg,
		Subject:  fmt.Sprintf("%s has been cancelled", class.Name()),
		HTML:     html,
		Text:     text,
	}, nil
}

// renderMarkdown returns the executed markdown and its HTML rendering.
func renderMarkdown(tmpl *template.Template, data any) (markdown, html string, err error) {
	var md bytes.Buffer
	if err := tmpl.Execute(&md, data); err != nil {
		return "", "", fmt.Errorf("render %s template: %w", tmpl.Name(), err)
	}
	var out bytes.Buffer
	if err := goldmark.Convert(md.Bytes(), &out); err != nil {
		return "", "", fmt.Errorf("convert %s markdown: %w", tmpl.Name(), err)
	}
	return md.String(), out.String(), nil
}
