// Package slotlock provides advisory locks keyed by booking slot. Services
// hold a lock for a (date, room) pair while they check for overlaps and write,
// so two writers cannot both pass the check for the same slot.
//
// Local serialises callers inside one process. Redis extends the same
// guarantee to several processes sharing the database file.
package slotlock
