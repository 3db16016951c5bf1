package mailer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/xenking/spice-storefront/internal/domain/cart"
	"github.com/xenking/spice-storefront/internal/domain/order"
)

type mockSender struct {
	sent []*mail.Msg
	err  error
}

func (m *mockSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	m.sent = append(m.sent, messages...)
	return m.err
}

func testOrder() *order.Order {
	return &order.Order{
		ID:        "ORD-1709647629000-ABCDEF123",
		Timestamp: time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC),
		Customer: order.Customer{
			FullName: "Ayesha Khan",
			Email:    "ayesha@example.com",
			Country:  "Pakistan",
		},
		Items: []cart.Item{
			{ID: "coriander-seeds", Name: "Coriander Seeds", Price: decimal.RequireFromString("2.50"), Quantity: 4},
		},
		Total:  decimal.RequireFromString("10"),
		Status: order.StatusPending,
	}
}

func TestMessage(t *testing.T) {
	m := newMailer(&mockSender{}, "orders@skhtraders.example", order.NewRenderer(order.RendererConfig{Location: time.UTC}))

	msg, err := m.Message(testOrder())
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	assert.Contains(t, raw, "Subject: Order Confirmation - ORD-1709647629000-ABCDEF123")
	assert.Contains(t, raw, "<ayesha@example.com>")
	assert.Contains(t, raw, "<orders@skhtraders.example>")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
}

func TestMessage_InvalidRecipient(t *testing.T) {
	m := newMailer(&mockSender{}, "orders@skhtraders.example", order.NewRenderer(order.RendererConfig{}))
	o := testOrder()
	o.Customer.Email = "not an address"

	_, err := m.Message(o)
	require.Error(t, err)
}

func TestSendConfirmation(t *testing.T) {
	s := &mockSender{}
	m := newMailer(s, "orders@skhtraders.example", order.NewRenderer(order.RendererConfig{}))

	require.NoError(t, m.SendConfirmation(context.Background(), testOrder()))
	assert.Len(t, s.sent, 1)

	s.err = errors.New("connection refused")
	require.ErrorIs(t, m.SendConfirmation(context.Background(), testOrder()), s.err)
}

func TestTLSPolicy(t *testing.T) {
	for in, want := range map[string]mail.TLSPolicy{
		"":              mail.TLSMandatory,
		"Mandatory":     mail.TLSMandatory,
		"opportunistic": mail.TLSOpportunistic,
		"none":          mail.NoTLS,
	} {
		got, err := tlsPolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := tlsPolicy("sometimes")
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	m, err := New(Config{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "user",
		Password: "secret",
		From:     "orders@skhtraders.example",
	}, order.NewRenderer(order.RendererConfig{}))
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = New(Config{Host: "smtp.example.com", TLS: "bogus"}, order.NewRenderer(order.RendererConfig{}))
	require.Error(t, err)
}
