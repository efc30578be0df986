package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// Engine executes the embedded storefront templates. html/template's
// contextual escaping guarantees remote and customer text can never be
// interpreted as markup.
type Engine struct {
	templates *template.Template
}

func NewEngine() (*Engine, error) {
	parsed, err := template.ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Engine{templates: parsed}, nil
}

func (e *Engine) Page(w io.Writer, view PageView) error {
	return e.execute(w, "page", view)
}

func (e *Engine) ProductGrid(w io.Writer, view PageView) error {
	return e.execute(w, "grid", view)
}

func (e *Engine) CartPanel(w io.Writer, view CartView) error {
	return e.execute(w, "cart", view)
}

func (e *Engine) CheckoutForm(w io.Writer, view CheckoutView) error {
	return e.execute(w, "checkout", view)
}

func (e *Engine) Confirmation(w io.Writer, view ConfirmationView) error {
	return e.execute(w, "confirmation", view)
}

func (e *Engine) OrderStatus(w io.Writer, view OrderStatusView) error {
	return e.execute(w, "order", view)
}

func (e *Engine) ErrorPage(w io.Writer, view ErrorPageView) error {
	return e.execute(w, "error", view)
}

// InlineMessage renders the small fragment used for non-fatal failures.
func (e *Engine) InlineMessage(w io.Writer, message string) error {
	return e.execute(w, "message", message)
}

func (e *Engine) execute(w io.Writer, name string, data any) error {
	if err := e.templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	return nil
}
