package ledger

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/andresuchdata/inventory-queue/internal/domain"
)

const (
	pairSeparator     = ", "
	quantitySeparator = ": "

	// MaxQuantity is the largest quantity a single item entry or order line may carry
	MaxQuantity = 1_000_000_000
)

// ParseItems turns an item string of the form "name: qty, name: qty" into item -> quantity.
// Malformed entries are dropped and reported; the remaining entries are still parsed.
// Repeated items within one string are summed. A repeat that would overflow is reported and dropped.
func ParseItems(raw string) (map[string]int, []*domain.ParseError) {
	items := make(map[string]int)
	if strings.TrimSpace(raw) == "" {
		return items, nil
	}

	var errs []*domain.ParseError
	for _, entry := range strings.Split(raw, pairSeparator) {
		name, qty, err := parseEntry(entry)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sum, ok := addQuantity(items[name], qty)
		if !ok {
			errs = append(errs, &domain.ParseError{Entry: entry, Reason: "item total overflows"})
			continue
		}
		items[name] = sum
	}

	return items, errs
}

func parseEntry(entry string) (string, int, *domain.ParseError) {
	if strings.TrimSpace(entry) == "" {
		return "", 0, &domain.ParseError{Entry: entry, Reason: "empty entry"}
	}

	name, rawQty, found := strings.Cut(entry, quantitySeparator)
	if !found {
		return "", 0, &domain.ParseError{Entry: entry, Reason: "missing \": \" separator"}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", 0, &domain.ParseError{Entry: entry, Reason: "missing item name"}
	}

	qty, err := strconv.ParseInt(strings.TrimSpace(rawQty), 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange), err == nil && qty > MaxQuantity:
		return "", 0, &domain.ParseError{Entry: entry, Reason: fmt.Sprintf("quantity exceeds %d", MaxQuantity)}
	case err != nil:
		return "", 0, &domain.ParseError{Entry: entry, Reason: "quantity is not an integer"}
	case qty <= 0:
		return "", 0, &domain.ParseError{Entry: entry, Reason: "quantity must be positive"}
	}

	return name, int(qty), nil
}

// OrderItems validates a manually entered order and sums its lines per item.
func OrderItems(order domain.ManualOrder) (map[string]int, error) {
	if len(order.Lines) == 0 {
		return nil, fmt.Errorf("%w: order has no lines", domain.ErrInvalidOrder)
	}

	items := make(map[string]int, len(order.Lines))
	for _, line := range order.Lines {
		name := strings.TrimSpace(line.Item)
		switch {
		case name == "":
			return nil, fmt.Errorf("%w: missing item name", domain.ErrInvalidOrder)
		case strings.Contains(name, pairSeparator), strings.Contains(name, quantitySeparator):
			return nil, fmt.Errorf("%w: item %q contains a reserved separator", domain.ErrInvalidOrder, name)
		case line.Quantity <= 0:
			return nil, fmt.Errorf("%w: quantity for %q must be positive", domain.ErrInvalidOrder, name)
		case line.Quantity > MaxQuantity:
			return nil, fmt.Errorf("%w: quantity for %q exceeds %d", domain.ErrInvalidOrder, name, MaxQuantity)
		}
		sum, ok := addQuantity(items[name], line.Quantity)
		if !ok {
			return nil, fmt.Errorf("%w: total quantity for %q overflows", domain.ErrInvalidOrder, name)
		}
		items[name] = sum
	}

	return items, nil
}

// FormatItems renders items in the log's "name: qty, name: qty" form, sorted by name.
func FormatItems(items map[string]int) string {
	pairs := make([]string, 0, len(items))
	for _, name := range sortedKeys(items) {
		pairs = append(pairs, name+quantitySeparator+strconv.Itoa(items[name]))
	}
	return strings.Join(pairs, pairSeparator)
}

// addQuantity returns a+b for non-negative a and b, or false when the sum does not fit in an int.
func addQuantity(a, b int) (int, bool) {
	if a > math.MaxInt-b {
		return 0, false
	}
	return a + b, true
}
