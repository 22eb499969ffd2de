// Package cart holds the running order draft of one browser session.
package cart

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const MaxNoteLength = 200

var (
	ErrNoteTooLong   = errors.New("note exceeds 200 characters")
	ErrItemNotFound  = errors.New("item not in cart")
	ErrInvalidItem   = errors.New("invalid cart item")
	ErrTableNotBound = errors.New("cart is not bound to a table")
)

type Item struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Qty       int    `json:"qty"`
	Note      string `json:"note,omitempty"`
}

// Ledger is bound to at most one table. Prices are integer minor units.
type Ledger struct {
	Table string `json:"table"`
	Items []Item `json:"items"`
}

// SetTable binds the ledger to table and drops all items if it was bound elsewhere.
func (l *Ledger) SetTable(table string) {
	if l.Table != "" && l.Table != table {
		l.Items = nil
	}
	l.Table = table
}

// AddItem merges by product id: an existing line gets qty+1, a new line starts at 1.
func (l *Ledger) AddItem(item Item) error {
	if item.ProductID == "" || item.Price < 0 {
		return ErrInvalidItem
	}
	if utf8.RuneCountInString(item.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}

	for i := range l.Items {
		if l.Items[i].ProductID == item.ProductID {
			l.Items[i].Qty++
			return nil
		}
	}

	item.Qty = 1
	l.Items = append(l.Items, item)
	return nil
}

// UpdateQuantity removes the line when qty <= 0.
func (l *Ledger) UpdateQuantity(productID string, qty int) error {
	i := l.find(productID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, productID)
	}
	if qty <= 0 {
		l.Items = append(l.Items[:i], l.Items[i+1:]...)
		return nil
	}
	l.Items[i].Qty = qty
	return nil
}

func (l *Ledger) RemoveItem(productID string) error {
	return l.UpdateQuantity(productID, 0)
}

func (l *Ledger) UpdateNote(productID, note string) error {
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	i := l.find(productID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, productID)
	}
	l.Items[i].Note = note
	return nil
}

// Clear empties the items but keeps the table binding.
func (l *Ledger) Clear() {
	l.Items = nil
}

func (l *Ledger) Total() int64 {
	var total int64
	for _, it := range l.Items {
		total += it.Price * int64(it.Qty)
	}
	return total
}

func (l *Ledger) Empty() bool {
	return len(l.Items) == 0
}

// Snapshot returns a copy safe to keep after the ledger changes.
func (l *Ledger) Snapshot() []Item {
	out := make([]Item, len(l.Items))
	copy(out, l.Items)
	return out
}

func (l *Ledger) find(productID string) int {
	for i := range l.Items {
		if l.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
