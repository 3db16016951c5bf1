package cart

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

// --- Mock implementations ---

type mockItemRepo struct {
	items   []Item
	loadErr error
	saveErr error
	saves   int
	deletes int
}

func (m *mockItemRepo) Load(_ context.Context) ([]Item, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.items == nil {
		return nil, nil
	}
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *mockItemRepo) Save(_ context.Context, items []Item) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.items = make([]Item, len(items))
	copy(m.items, items)
	return nil
}

func (m *mockItemRepo) Delete(_ context.Context) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.deletes++
	m.items = nil
	return nil
}

type mockTokenRepo struct {
	token  string
	getErr error
	sets   int
}

func (m *mockTokenRepo) Get(_ context.Context) (string, error) {
	return m.token, m.getErr
}

func (m *mockTokenRepo) Set(_ context.Context, token string) error {
	m.sets++
	m.token = token
	return nil
}

type recordingPublisher struct {
	events []string
}

func (r *recordingPublisher) Publish(_ context.Context, name string) {
	r.events = append(r.events, name)
}

type testProduct struct {
	id    string
	name  string
	price decimal.Decimal
	image string
}

func (p testProduct) ProductID() string          { return p.id }
func (p testProduct) ProductName() string        { return p.name }
func (p testProduct) UnitPrice() decimal.Decimal { return p.price }
func (p testProduct) ImageRef() string           { return p.image }

// --- Helpers ---

type fixture struct {
	svc    *Service
	items  *mockItemRepo
	tokens *mockTokenRepo
	events *recordingPublisher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		items:  &mockItemRepo{},
		tokens: &mockTokenRepo{},
		events: &recordingPublisher{},
	}
	opts = append([]Option{WithMeterProvider(noop.NewMeterProvider())}, opts...)
	svc, err := NewService(f.items, f.tokens, f.events, opts...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func coriander() testProduct {
	return testProduct{
		id:    "coriander-seeds",
		name:  "Coriander Seeds",
		price: decimal.RequireFromString("2.50"),
		image: "images/coriander.jpg",
	}
}

func cumin() testProduct {
	return testProduct{
		id:    "cumin-seeds",
		name:  "Cumin Seeds",
		price: decimal.RequireFromString("4"),
		image: "images/cumin.jpg",
	}
}

// --- Tests ---

func TestAdd_New(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Add(ctx, coriander(), 2))

	items := f.svc.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, Item{
		ID:       "coriander-seeds",
		Name:     "Coriander Seeds",
		Price:    decimal.RequireFromString("2.50"),
		Quantity: 2,
		Image:    "images/coriander.jpg",
	}, items[0])
	assert.Equal(t, []string{EventUpdated}, f.events.events)
}

func TestAdd_Merges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Add(ctx, coriander(), 3))
	require.NoError(t, f.svc.Add(ctx, cumin(), 1))
	require.NoError(t, f.svc.Add(ctx, coriander(), 4))

	items := f.svc.Items(ctx)
	require.Len(t, items, 2)
	assert.Equal(t, "coriander-seeds", items[0].ID)
	assert.Equal(t, 7, items[0].Quantity)
	assert.Equal(t, "cumin-seeds", items[1].ID)
}

func TestAdd_MergeNotCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Add(ctx, coriander(), 900))
	require.NoError(t, f.svc.Add(ctx, coriander(), 900))

	assert.Equal(t, 1800, f.svc.Count(ctx))
}

func TestAdd_OutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		wantErr  error
	}{
		{name: "zero", quantity: 0, wantErr: ErrQuantityTooLow},
		{name: "negative", quantity: -3, wantErr: ErrQuantityTooLow},
		{name: "too high", quantity: 1001, wantErr: ErrQuantityTooHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.svc.Add(ctx, cumin(), 5))

			err := f.svc.Add(ctx, coriander(), tt.quantity)
			require.ErrorIs(t, err, tt.wantErr)

			items := f.svc.Items(ctx)
			require.Len(t, items, 1)
			assert.Equal(t, 5, items[0].Quantity)
			assert.Equal(t, 1, f.items.saves)
			assert.Len(t, f.events.events, 1)
		})
	}
}

func TestAdd_Bounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Add(ctx, coriander(), MinQuantity))
	require.NoError(t, f.svc.Add(ctx, cumin(), MaxQuantity))
	assert.Equal(t, 1001, f.svc.Count(ctx))
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Add(ctx, coriander(), 1))
	require.NoError(t, f.svc.Add(ctx, cumin(), 1))

	require.NoError(t, f.svc.Remove(ctx, "coriander-seeds"))

	items := f.svc.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "cumin-seeds", items[0].ID)
	assert.Len(t, f.events.events, 3)
}

func TestRemove_Missing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Add(ctx, coriander(), 1))

	require.NoError(t, f.svc.Remove(ctx, "unknown"))

	assert.Len(t, f.svc.Items(ctx), 1)
	assert.Equal(t, 2, f.items.saves)
	assert.Len(t, f.events.events, 2)
}

func TestSetQuantity(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		quantity int
		wantErr  error
		want     []int
		saves    int
	}{
		{name: "assign", id: "coriander-seeds", quantity: 10, want: []int{10, 2}, saves: 3},
		{name: "upper bound", id: "coriander-seeds", quantity: 1000, want: []int{1000, 2}, saves: 3},
		{name: "zero removes", id: "coriander-seeds", quantity: 0, want: []int{2}, saves: 3},
		{name: "negative removes", id: "coriander-seeds", quantity: -5, want: []int{2}, saves: 3},
		{name: "too high", id: "coriander-seeds", quantity: 1001, wantErr: ErrQuantityTooHigh, want: []int{1, 2}, saves: 2},
		{name: "unknown id", id: "unknown", quantity: 3, want: []int{1, 2}, saves: 2},
		{name: "unknown id zero", id: "unknown", quantity: 0, want: []int{1, 2}, saves: 2},
		{name: "unknown id negative", id: "unknown", quantity: -1, want: []int{1, 2}, saves: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.svc.Add(ctx, coriander(), 1))
			require.NoError(t, f.svc.Add(ctx, cumin(), 2))

			err := f.svc.SetQuantity(ctx, tt.id, tt.quantity)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			var got []int
			for _, it := range f.svc.Items(ctx) {
				got = append(got, it.Quantity)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.saves, f.items.saves)
			assert.Len(t, f.events.events, tt.saves)
		})
	}
}

func TestSetQuantity_HugeInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Add(ctx, coriander(), 3))

	err := f.svc.SetQuantity(ctx, "coriander-seeds", ParseQuantity("99999999999", 0))
	require.ErrorIs(t, err, ErrQuantityTooHigh)

	items := f.svc.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 1, f.items.saves)

	err = f.svc.Add(ctx, coriander(), ParseQuantity("99999999999", 1))
	require.ErrorIs(t, err, ErrQuantityTooHigh)
	assert.Equal(t, 3, f.svc.Count(ctx))

	err = f.svc.Add(ctx, coriander(), ParseQuantity("-99999999999", 1))
	require.ErrorIs(t, err, ErrQuantityTooLow)
	assert.Equal(t, 3, f.svc.Count(ctx))
}

func TestTotalAndCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.True(t, decimal.Zero.Equal(f.svc.Total(ctx)))
	assert.Equal(t, 0, f.svc.Count(ctx))

	f.items.items = []Item{
		{ID: "a", Price: decimal.RequireFromString("2.5"), Quantity: 3},
		{ID: "b", Price: decimal.RequireFromString("4"), Quantity: 1},
	}

	assert.True(t, decimal.RequireFromString("11.5").Equal(f.svc.Total(ctx)), f.svc.Total(ctx).String())
	assert.Equal(t, 4, f.svc.Count(ctx))
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Add(ctx, coriander(), 1))

	require.NoError(t, f.svc.Clear(ctx))

	assert.Empty(t, f.svc.Items(ctx))
	assert.Equal(t, 1, f.items.deletes)
	assert.Equal(t, []string{EventUpdated, EventUpdated}, f.events.events)
}

func TestItems_LoadFailure(t *testing.T) {
	f := newFixture(t)
	f.items.loadErr = errors.New("unexpected character")

	items := f.svc.Items(context.Background())
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, 0, f.svc.Count(context.Background()))
}

func TestSave_Failure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quota := errors.New("quota exceeded")
	f.items.saveErr = quota

	err := f.svc.Add(ctx, coriander(), 1)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "add", storageErr.Op)
	assert.Equal(t, SaveFailedMessage, err.Error())
	require.ErrorIs(t, err, quota)
	assert.Empty(t, f.events.events)

	require.Error(t, f.svc.Clear(ctx))
	assert.Empty(t, f.events.events)
}

func TestEnsureToken(t *testing.T) {
	f := newFixture(t, WithRandom(bytes.NewReader(bytes.Repeat([]byte{0xab}, 64))))
	ctx := context.Background()

	cur, err := f.svc.CurrentToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, cur)

	tok, err := f.svc.EnsureToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ab", 32), tok)
	assert.Len(t, tok, 64)

	again, err := f.svc.EnsureToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, tok, again)
	assert.Equal(t, 1, f.tokens.sets)

	cur, err = f.svc.CurrentToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, tok, cur)
}

func TestEnsureToken_Random(t *testing.T) {
	a := newFixture(t)
	b := newFixture(t)
	ctx := context.Background()

	ta, err := a.svc.EnsureToken(ctx)
	require.NoError(t, err)
	tb, err := b.svc.EnsureToken(ctx)
	require.NoError(t, err)

	assert.Len(t, ta, 64)
	assert.NotEqual(t, ta, tb)
}

func TestEnsureToken_ShortRandom(t *testing.T) {
	f := newFixture(t, WithRandom(bytes.NewReader([]byte{1, 2, 3})))

	_, err := f.svc.EnsureToken(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, f.tokens.sets)
}
