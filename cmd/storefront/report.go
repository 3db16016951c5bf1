package main

import (
	"fmt"
	"io"

	"github.com/go-faster/errors"

	"github.com/xenking/spice-storefront/internal/domain/cart"
	"github.com/xenking/spice-storefront/internal/domain/order"
)

// report prints err the way a shopper should see it.
func report(w io.Writer, err error) {
	var verr *order.ValidationError
	if errors.As(err, &verr) {
		_, _ = fmt.Fprintln(w, "Please fix the following:")
		for _, msg := range verr.Messages() {
			_, _ = fmt.Fprintln(w, "  -", msg)
		}
		return
	}

	var serr *cart.StorageError
	if errors.As(err, &serr) {
		_, _ = fmt.Fprintln(w, serr.Error())
		return
	}

	_, _ = fmt.Fprintln(w, "Error:", err)
}
