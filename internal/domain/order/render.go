package order

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Markup values are sanitized when the order is built, so the template must
// not escape them a second time.
var markupTemplate = template.Must(template.ParseFS(templateFS, "templates/markup.html.tmpl"))

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// RendererConfig describes the shop as it appears in outbound messages.
type RendererConfig struct {
	StoreName     string
	Currency      string
	BusinessPhone string
	MessagingHost string
	DateLayout    string
	Location      *time.Location
}

// DefaultRendererConfig returns the settings of the SKH Traders storefront.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		StoreName:     "SKH Traders",
		Currency:      "Rs.",
		BusinessPhone: "+923248787858",
		MessagingHost: "wa.me",
		DateLayout:    "1/2/2006, 3:04:05 PM",
		Location:      time.Local,
	}
}

// Renderer formats orders for WhatsApp and email handoff.
type Renderer struct {
	cfg RendererConfig
}

// NewRenderer creates a Renderer. Empty fields of cfg take their defaults.
func NewRenderer(cfg RendererConfig) *Renderer {
	def := DefaultRendererConfig()
	if cfg.StoreName == "" {
		cfg.StoreName = def.StoreName
	}
	if cfg.Currency == "" {
		cfg.Currency = def.Currency
	}
	if cfg.BusinessPhone == "" {
		cfg.BusinessPhone = def.BusinessPhone
	}
	if cfg.MessagingHost == "" {
		cfg.MessagingHost = def.MessagingHost
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = def.DateLayout
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	return &Renderer{cfg: cfg}
}

// Text returns the WhatsApp message for o, unencoded.
func (r *Renderer) Text(o *Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s - New Order*\n\n", r.cfg.StoreName)
	fmt.Fprintf(&b, "Order ID: %s\n", o.ID)
	fmt.Fprintf(&b, "Date: %s\n\n", r.Date(o))

	b.WriteString("*Customer Details:*\n")
	fmt.Fprintf(&b, "Name: %s\n", o.Customer.FullName)
	fmt.Fprintf(&b, "Email: %s\n", o.Customer.Email)
	fmt.Fprintf(&b, "Phone: %s\n", o.Customer.Phone)
	fmt.Fprintf(&b, "Address: %s\n", o.Customer.Address)
	fmt.Fprintf(&b, "City: %s\n", o.Customer.City)
	fmt.Fprintf(&b, "Postal Code: %s\n", o.Customer.PostalCode)
	fmt.Fprintf(&b, "Country: %s\n\n", o.Customer.Country)

	b.WriteString("*Order Items:*\n")
	for i, it := range o.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, it.Name)
		fmt.Fprintf(&b, "   Qty: %d x %s %s\n", it.Quantity, r.cfg.Currency, amount(it.Price))
		fmt.Fprintf(&b, "   Subtotal: %s %s\n\n", r.cfg.Currency, amount(it.Subtotal()))
	}

	fmt.Fprintf(&b, "*Total Amount: %s %s*\n\n", r.cfg.Currency, amount(o.Total))
	b.WriteString("Please confirm this order.")
	return b.String()
}

// Message returns the WhatsApp message for o, percent-encoded for a query
// component.
func (r *Renderer) Message(o *Order) string {
	return encodeComponent(r.Text(o))
}

type markupRow struct {
	Name     string
	Quantity int
	Price    string
	Subtotal string
}

type markupData struct {
	StoreName string
	Currency  string
	ID        string
	Date      string
	Customer  Customer
	Items     []markupRow
	Total     string
}

// Markup returns the HTML confirmation block for o.
func (r *Renderer) Markup(o *Order) (string, error) {
	data := markupData{
		StoreName: r.cfg.StoreName,
		Currency:  r.cfg.Currency,
		ID:        o.ID,
		Date:      r.Date(o),
		Customer:  o.Customer,
		Items:     make([]markupRow, len(o.Items)),
		Total:     amount(o.Total),
	}
	for i, it := range o.Items {
		data.Items[i] = markupRow{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    amount(it.Price),
			Subtotal: amount(it.Subtotal()),
		}
	}

	var buf bytes.Buffer
	if err := markupTemplate.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "execute markup template")
	}
	return buf.String(), nil
}

// PlainText returns Markup with tags removed and &nbsp; turned into spaces.
func (r *Renderer) PlainText(o *Order) (string, error) {
	markup, err := r.Markup(o)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(tagPattern.ReplaceAllString(markup, ""), "&nbsp;", " "), nil
}

// EmailLink returns a mailto: URI addressed to the customer.
func (r *Renderer) EmailLink(o *Order) (string, error) {
	body, err := r.PlainText(o)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s",
		o.Customer.Email,
		encodeComponent(Subject(o)),
		encodeComponent(body),
	), nil
}

// WhatsAppLink returns a link that opens a chat with the business number
// pre-filled with the order message.
func (r *Renderer) WhatsAppLink(o *Order) string {
	return fmt.Sprintf("https://%s/%s?text=%s",
		r.cfg.MessagingHost,
		digitsOnly(r.cfg.BusinessPhone),
		r.Message(o),
	)
}

// Subject returns the confirmation subject line for o.
func Subject(o *Order) string {
	return "Order Confirmation - " + o.ID
}

// Date formats the order timestamp with the configured layout and location.
func (r *Renderer) Date(o *Order) string {
	return o.Timestamp.In(r.cfg.Location).Format(r.cfg.DateLayout)
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
