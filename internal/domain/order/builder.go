package order

import (
	"context"
	"crypto/subtle"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/spice-storefront/internal/domain/cart"
)

// Validation failures. Their messages are meant for the shopper.
var (
	ErrTokenMismatch     = errors.New("Security token mismatch. Please refresh and try again.")
	ErrInvalidFullName   = errors.New("Full name must be at least 2 characters")
	ErrInvalidEmail      = errors.New("Invalid email address")
	ErrInvalidPhone      = errors.New("Invalid phone number")
	ErrInvalidAddress    = errors.New("Address must be between 5 and 200 characters")
	ErrInvalidCity       = errors.New("City must be at least 2 characters")
	ErrInvalidPostalCode = errors.New("Postal code is invalid")
	ErrEmptyCart         = errors.New("Cart is empty")
)

// ValidationError lists every reason a form was rejected, in check order.
type ValidationError struct {
	Reasons []error
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages(), "; ")
}

// Messages returns the human-readable reasons.
func (e *ValidationError) Messages() []string {
	out := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		out[i] = r.Error()
	}
	return out
}

// Unwrap exposes the reasons to errors.Is.
func (e *ValidationError) Unwrap() []error {
	return e.Reasons
}

// Cart is the view of the shopper's cart needed to build an order.
type Cart interface {
	Items(ctx context.Context) []cart.Item
	CurrentToken(ctx context.Context) (string, error)
}

// fields holds the sanitized form values in check order.
type fields struct {
	FullName   string `validate:"required,min=2"`
	Email      string `validate:"shop_email"`
	Phone      string `validate:"phone_chars,min=7,max=20"`
	Address    string `validate:"min=5,max=200"`
	City       string `validate:"required,min=2"`
	PostalCode string `validate:"required,min=2"`
}

var fieldErrors = map[string]error{
	"FullName":   ErrInvalidFullName,
	"Email":      ErrInvalidEmail,
	"Phone":      ErrInvalidPhone,
	"Address":    ErrInvalidAddress,
	"City":       ErrInvalidCity,
	"PostalCode": ErrInvalidPostalCode,
}

// space matches the characters a browser treats as whitespace: RE2's \s
// alone misses \v, the Unicode separators and the byte order mark.
const space = `\s\v\p{Z}\x{FEFF}`

var (
	emailPattern = regexp.MustCompile(`^[^` + space + `@]+@[^` + space + `@]+\.[^` + space + `@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9+\-()` + space + `]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("shop_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	must("phone_chars", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the time source for order timestamps and ids.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithDefaultCountry sets the country used when the form has none.
func WithDefaultCountry(country string) BuilderOption {
	return func(b *Builder) { b.country = country }
}

// WithBuilderMeterProvider sets the provider for rejection metrics.
func WithBuilderMeterProvider(mp metric.MeterProvider) BuilderOption {
	return func(b *Builder) { b.meterProvider = mp }
}

// Builder validates checkout forms against the cart and produces orders.
type Builder struct {
	cart    Cart
	now     func() time.Time
	country string

	meterProvider metric.MeterProvider
	rejections    metric.Int64Counter
}

// NewBuilder creates a Builder reading from c.
func NewBuilder(c Cart, opts ...BuilderOption) (*Builder, error) {
	b := &Builder{
		cart:          c,
		now:           time.Now,
		country:       DefaultCountry,
		meterProvider: otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(b)
	}

	var err error
	meter := b.meterProvider.Meter("github.com/xenking/spice-storefront/internal/domain/order")
	b.rejections, err = meter.Int64Counter("storefront.order.rejections",
		metric.WithDescription("Checkout validation failures by reason"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create rejections counter")
	}
	return b, nil
}

// Build validates f and returns a new pending order. Nothing is persisted.
//
// Field lengths are measured on the sanitized, trimmed values, so escaping
// can push a value over a limit. When the cart is empty, ErrEmptyCart is
// the only reason reported.
func (b *Builder) Build(ctx context.Context, f Form) (*Order, error) {
	var reasons []error

	if !b.tokenMatches(ctx, f.Token) {
		reasons = append(reasons, ErrTokenMismatch)
	}

	customer := Customer{
		FullName:   Sanitize(f.FullName),
		Email:      Sanitize(f.Email),
		Phone:      Sanitize(f.Phone),
		Address:    Sanitize(f.Address),
		City:       Sanitize(f.City),
		PostalCode: Sanitize(f.PostalCode),
		Country:    Sanitize(f.Country),
	}
	if customer.Country == "" {
		customer.Country = Sanitize(b.country)
	}
	reasons = append(reasons, checkFields(customer)...)

	items := b.cart.Items(ctx)
	if len(items) == 0 {
		reasons = []error{ErrEmptyCart}
	}

	if len(reasons) > 0 {
		for _, r := range reasons {
			b.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reasonName(r))))
		}
		return nil, &ValidationError{Reasons: reasons}
	}

	now := b.now().UTC().Truncate(time.Millisecond)
	return &Order{
		ID:        newID(now),
		Timestamp: now,
		Customer:  customer,
		Items:     items,
		Total:     cart.Total(items),
		Status:    StatusPending,
	}, nil
}

func (b *Builder) tokenMatches(ctx context.Context, submitted string) bool {
	stored, err := b.cart.CurrentToken(ctx)
	if err != nil {
		zctx.From(ctx).Error("Read session token", zap.Error(err))
		return false
	}
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}

func checkFields(c Customer) []error {
	err := validate.Struct(fields{
		FullName:   strings.TrimSpace(c.FullName),
		Email:      c.Email,
		Phone:      strings.TrimSpace(c.Phone),
		Address:    strings.TrimSpace(c.Address),
		City:       strings.TrimSpace(c.City),
		PostalCode: strings.TrimSpace(c.PostalCode),
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []error{err}
	}

	var out []error
	seen := make(map[string]bool, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fe.StructField()
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, fieldErrors[name])
	}
	return out
}

func reasonName(err error) string {
	switch {
	case errors.Is(err, ErrTokenMismatch):
		return "token"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	}
	for name, e := range fieldErrors {
		if errors.Is(err, e) {
			return name
		}
	}
	return "other"
}

// newID returns ORD-<unix ms>-<9 upper-case alphanumerics>.
func newID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:9]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}
