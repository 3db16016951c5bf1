// Package export moves order history in and out of the device as gzip
// compressed JSON lines, one order per line.
package export

import (
	"bufio"
	"context"
	"io"
	"os"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/spice-storefront/internal/domain/order"
	"github.com/xenking/spice-storefront/internal/repository"
)

const (
	maxLine  = 4 << 20
	bloomFPR = 0.001
)

// WriteOrders writes orders to w.
func WriteOrders(w io.Writer, orders []order.Order) error {
	gz := pgzip.NewWriter(w)
	for i := range orders {
		line := append(repository.EncodeOrder(&orders[i]), '\n')
		if _, err := gz.Write(line); err != nil {
			_ = gz.Close()
			return errors.Wrapf(err, "write order %q", orders[i].ID)
		}
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "close gzip writer")
	}
	return nil
}

// WriteFile writes orders to a new file at path.
func WriteFile(path string, orders []order.Order) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return WriteOrders(f, orders)
}

// ReadOrders reads every order from r. Blank lines are skipped.
func ReadOrders(ctx context.Context, r io.Reader) ([]order.Order, error) {
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	var orders []order.Order
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	for line := 1; scanner.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		o, err := repository.DecodeOrder(scanner.Bytes())
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		orders = append(orders, o)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return orders, nil
}

// ReadFiles reads the given archives concurrently. The result holds one
// batch per path, in argument order.
func ReadFiles(ctx context.Context, paths []string) ([][]order.Order, error) {
	batches := make([][]order.Order, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			f, err := os.Open(path)
			if err != nil {
				return errors.Wrapf(err, "open %s", path)
			}
			defer func() { _ = f.Close() }()

			orders, err := ReadOrders(ctx, f)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			batches[i] = orders
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

// Missing returns the orders of batches whose ids are not in existing,
// without duplicates, sorted by placement time.
//
// Known ids go into a bloom filter first; only ids the filter reports as
// possibly present are confirmed against the exact set.
func Missing(existing []order.Order, batches ...[]order.Order) []order.Order {
	capacity := uint(len(existing))
	for _, batch := range batches {
		capacity += uint(len(batch))
	}
	filter := bloom.NewWithEstimates(max(capacity, 1), bloomFPR)
	known := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		filter.AddString(o.ID)
		known[o.ID] = struct{}{}
	}

	var out []order.Order
	for _, batch := range batches {
		for _, o := range batch {
			if filter.TestOrAddString(o.ID) {
				if _, ok := known[o.ID]; ok {
					continue
				}
			}
			known[o.ID] = struct{}{}
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
