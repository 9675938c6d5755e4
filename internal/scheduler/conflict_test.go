package scheduler

import "testing"

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name           string
		s1, e1, s2, e2 string
		want           bool
	}{
		{"identical", "10:00:00", "11:00:00", "10:00:00", "11:00:00", true},
		{"partial head", "09:30:00", "10:30:00", "10:00:00", "11:00:00", true},
		{"contained", "10:15:00", "10:45:00", "10:00:00", "11:00:00", true},
		{"back to back", "11:00:00", "12:00:00", "10:00:00", "11:00:00", false},
		{"before", "08:00:00", "09:00:00", "10:00:00", "11:00:00", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.s1, tc.e1, tc.s2, tc.e2); got != tc.want {
				t.Fatalf("Overlaps(%s,%s,%s,%s) = %v, want %v", tc.s1, tc.e1, tc.s2, tc.e2, got, tc.want)
			}
			if got := Overlaps(tc.s2, tc.e2, tc.s1, tc.e1); got != tc.want {
				t.Fatalf("Overlaps is not symmetric for %s", tc.name)
			}
		})
	}
}

func TestDetectConflicts(t *testing.T) {
	existing := []Slot{
		{BookingID: "b1", Date: "2025-03-10", Room: "A101", Start: "10:00:00", End: "11:00:00"},
		{BookingID: "b2", Date: "2025-03-10", Room: "B202", Start: "10:00:00", End: "11:00:00"},
		{BookingID: "b3", Date: "2025-03-11", Room: "A101", Start: "10:00:00", End: "11:00:00"},
	}

	t.Run("room overlap produces conflict", func(t *testing.T) {
		candidate := Slot{Date: "2025-03-10", Room: "A101", Start: "10:30:00", End: "11:30:00"}
		conflicts := DetectConflicts(existing, candidate, "")
		if len(conflicts) != 1 {
			t.Fatalf("expected one conflict, got %d", len(conflicts))
		}
		if conflicts[0].WithBookingID != "b1" {
			t.Fatalf("expected conflict with b1, got %s", conflicts[0].WithBookingID)
		}
	})

	t.Run("other rooms and dates are ignored", func(t *testing.T) {
		candidate := Slot{Date: "2025-03-10", Room: "C303", Start: "10:00:00", End: "11:00:00"}
		if HasConflict(existing, candidate, "") {
			t.Fatal("expected no conflict in an unused room")
		}
	})

	t.Run("back to back bookings are allowed", func(t *testing.T) {
		candidate := Slot{Date: "2025-03-10", Room: "A101", Start: "11:00:00", End: "12:00:00"}
		if HasConflict(existing, candidate, "") {
			t.Fatal("expected adjacent slot to be free")
		}
	})

	t.Run("excluded booking does not conflict with itself", func(t *testing.T) {
		candidate := Slot{BookingID: "b1", Date: "2025-03-10", Room: "A101", Start: "10:00:00", End: "10:45:00"}
		if HasConflict(existing, candidate, "b1") {
			t.Fatal("expected update of b1 to ignore its own slot")
		}
	})

	t.Run("no existing bookings", func(t *testing.T) {
		if HasConflict(nil, Slot{Date: "2025-03-10", Room: "A101", Start: "10:00:00", End: "11:00:00"}, "") {
			t.Fatal("expected empty store to report no conflict")
		}
	})
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("09:05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "09:05:00" {
		t.Fatalf("expected 09:05:00, got %s", got)
	}

	if _, err := ParseClock("25:00:00"); err == nil {
		t.Fatal("expected out of range hour to be rejected")
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2025-02-30"); err == nil {
		t.Fatal("expected impossible date to be rejected")
	}
	got, err := ParseDate(" 2025-02-28 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2025-02-28" {
		t.Fatalf("expected 2025-02-28, got %s", got)
	}
}
