package ids

import (
	"strings"
	"testing"
)

func TestNewIsMonotonic(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("expected increasing ids, got %s after %s", next, prev)
		}
		prev = next
	}
}

func TestOrderNumber(t *testing.T) {
	number := OrderNumber()
	if !strings.HasPrefix(number, "ORD-") || len(number) != 4+26 {
		t.Fatalf("unexpected order number %q", number)
	}
}
