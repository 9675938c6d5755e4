package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("booking")

	first := gen.Next()
	second := gen.Next()

	if first != "booking-1" || second != "booking-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
}

func TestIDGeneratorCanReset(t *testing.T) {
	gen := NewIDGenerator("request")
	_ = gen.Next()
	gen.Reset("req")

	if next := gen.Next(); next != "req-1" {
		t.Fatalf("expected req-1 after reset, got %q", next)
	}
}
