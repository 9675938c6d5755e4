package scheduler

// Slot is the (date, room, time range) footprint of a booked or proposed seminar.
// Start and End are same-day clock times in HH:MM:SS form; they compare correctly
// as strings once normalised by ParseClock.
type Slot struct {
	BookingID string
	Date      string
	Room      string
	Start     string
	End       string
}

// Conflict details an existing booking that blocks a candidate slot.
type Conflict struct {
	WithBookingID string
	Room          string
	Date          string
	Start         string
	End           string
}

// Overlaps reports whether the half-open ranges [s1, e1) and [s2, e2) intersect.
// Touching endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 string) bool {
	return s1 < e2 && s2 < e1
}

// DetectConflicts returns every existing slot that shares the candidate's date and
// room and overlaps its time range. The slot whose BookingID equals excludeID is
// skipped so that an update can be checked against everything but itself.
func DetectConflicts(existing []Slot, candidate Slot, excludeID string) []Conflict {
	var conflicts []Conflict
	for _, slot := range existing {
		if excludeID != "" && slot.BookingID == excludeID {
			continue
		}
		if slot.Date != candidate.Date || slot.Room != candidate.Room {
			continue
		}
		if !Overlaps(slot.Start, slot.End, candidate.Start, candidate.End) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithBookingID: slot.BookingID,
			Room:          slot.Room,
			Date:          slot.Date,
			Start:         slot.Start,
			End:           slot.End,
		})
	}
	return conflicts
}

// HasConflict is the boolean form of DetectConflicts.
func HasConflict(existing []Slot, candidate Slot, excludeID string) bool {
	return len(DetectConflicts(existing, candidate, excludeID)) > 0
}
