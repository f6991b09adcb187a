package summary

import (
	"embed"
	htmltemplate "html/template"
	"io"
	texttemplate "text/template"

	"github.com/go-faster/errors"
)

// Names of the built-in views.
const (
	ViewHTML = "html"
	ViewText = "text"
)

//go:embed views/*.tmpl
var viewFS embed.FS

// View renders an order summary model.
type View interface {
	Render(w io.Writer, m Model) error
	ContentType() string
}

type executor interface {
	Execute(w io.Writer, data any) error
}

type templateView struct {
	tmpl        executor
	contentType string
}

func (v templateView) Render(w io.Writer, m Model) error {
	if err := v.tmpl.Execute(w, m); err != nil {
		return errors.Wrap(err, "execute template")
	}
	return nil
}

func (v templateView) ContentType() string { return v.contentType }

// HTMLView returns the table view. Item names and labels are escaped.
func HTMLView() View {
	return templateView{
		tmpl:        htmltemplate.Must(htmltemplate.ParseFS(viewFS, "views/order-summary.html.tmpl")),
		contentType: "text/html; charset=utf-8",
	}
}

// TextView returns the plain text view used in notifications.
func TextView() View {
	return templateView{
		tmpl:        texttemplate.Must(texttemplate.ParseFS(viewFS, "views/order-summary.txt.tmpl")),
		contentType: "text/plain; charset=utf-8",
	}
}
