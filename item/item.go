// Package item defines the stackable item model moved between containers.
// A Stack is the unit of routing: a quantity of one kind of item, carrying
// the category tag that destination labels are matched against.
package item

import (
	"fmt"
	"strconv"
)

// Stack is a quantity of a single item kind. Stacks of the same kind may be
// split and merged freely; quantity is always non-negative.
type Stack struct {
	// Name identifies the item kind (e.g., "apple").
	Name string `json:"name" msgpack:"name"`

	// Category is the classification tag matched against container labels.
	// May be empty for kinds with no representable category name.
	Category string `json:"category,omitempty" msgpack:"category,omitempty"`

	// CategoryNum is the numeric category identifier. It is the fallback
	// key source when Category is empty.
	CategoryNum int `json:"category_num,omitempty" msgpack:"category_num,omitempty"`

	// Qty is the number of units in this stack.
	Qty int `json:"qty" msgpack:"qty"`
}

// Tag returns the non-empty routing key for this stack. When Category is
// empty the key is derived from CategoryNum, so every stack always has a
// comparable key.
func (s Stack) Tag() string {
	if s.Category != "" {
		return s.Category
	}
	return "category#" + strconv.Itoa(s.CategoryNum)
}

// SameKind reports whether two stacks hold the same item kind and can be
// merged into one another.
func (s Stack) SameKind(o Stack) bool {
	return s.Name == o.Name && s.Category == o.Category && s.CategoryNum == o.CategoryNum
}

// IsEmpty reports whether the stack holds no units.
func (s Stack) IsEmpty() bool { return s.Qty <= 0 }

// WithQty returns a copy of the stack holding n units.
// It panics if n is negative (programming error).
func (s Stack) WithQty(n int) Stack {
	if n < 0 {
		panic(fmt.Sprintf("item: negative quantity %d for %q", n, s.Name))
	}
	s.Qty = n
	return s
}

// Split removes up to n units from the stack, returning the taken portion
// and the remainder. The sum of the two quantities always equals the
// original quantity.
func (s Stack) Split(n int) (taken, rest Stack) {
	if n < 0 {
		panic(fmt.Sprintf("item: split %q by negative quantity %d", s.Name, n))
	}
	if n > s.Qty {
		n = s.Qty
	}
	return s.WithQty(n), s.WithQty(s.Qty - n)
}

// String implements fmt.Stringer for logging.
func (s Stack) String() string {
	return fmt.Sprintf("%s x%d (%s)", s.Name, s.Qty, s.Tag())
}

// TotalQty sums the quantities of a slice of stacks.
func TotalQty(stacks []Stack) int {
	total := 0
	for _, s := range stacks {
		total += s.Qty
	}
	return total
}
