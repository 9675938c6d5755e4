package application

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/example/seminar-scheduler/internal/persistence"
)

func newRequestServiceForTest(store *storeStub, notifier *notifierStub) *RequestService {
	return NewRequestService(store, store, notifier, &lockerStub{}, sequentialIDs("id"))
}

func TestRequestService_Submit(t *testing.T) {
	t.Run("stores a pending request and notifies the coordinator", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{}
		svc := newRequestServiceForTest(store, notifier)

		result, err := svc.Submit(context.Background(), sampleRequestInput())
		if err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
		if !result.Success() || result.Message != msgRequestSubmitted {
			t.Fatalf("expected success, got %+v", result)
		}

		stored, ok := store.requests[result.RequestID]
		if !ok {
			t.Fatalf("expected request %q to be stored", result.RequestID)
		}
		if stored.Status != persistence.StatusPending {
			t.Fatalf("expected pending status, got %q", stored.Status)
		}
		if stored.StartTime != "10:00:00" || stored.EndTime != "11:00:00" {
			t.Fatalf("expected canonical times, got %s-%s", stored.StartTime, stored.EndTime)
		}
		if stored.SpeakerName != "Dana Submitter" || stored.SpeakerEmail != "dana@example.com" {
			t.Fatalf("expected speaker to default to submitter, got %q <%s>", stored.SpeakerName, stored.SpeakerEmail)
		}
		if stored.Category != CategorySeminar {
			t.Fatalf("expected normalised category, got %q", stored.Category)
		}

		if len(notifier.notices) != 1 || notifier.notices[0].RequestID != result.RequestID {
			t.Fatalf("expected one coordinator notice for the request, got %+v", notifier.notices)
		}
	})

	t.Run("rejects missing mandatory fields", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{}
		svc := newRequestServiceForTest(store, notifier)

		in := sampleRequestInput()
		in.Topic = "  "
		in.SubmitterEmail = "not-an-email"
		in.EndTime = "09:00"

		result, err := svc.Submit(context.Background(), in)
		if err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
		if result.Outcome != OutcomeInvalid {
			t.Fatalf("expected invalid outcome, got %+v", result)
		}
		for _, field := range []string{"topic", "submitter_email", "end_time"} {
			if _, ok := result.Validation.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %v", field, result.Validation.FieldErrors)
			}
		}
		if len(store.requests) != 0 || len(notifier.notices) != 0 {
			t.Fatalf("expected nothing stored or sent")
		}
	})

	t.Run("refuses an identical pending request", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{}
		svc := newRequestServiceForTest(store, notifier)

		if _, err := svc.Submit(context.Background(), sampleRequestInput()); err != nil {
			t.Fatalf("first Submit returned error: %v", err)
		}
		result, err := svc.Submit(context.Background(), sampleRequestInput())
		if err != nil {
			t.Fatalf("second Submit returned error: %v", err)
		}
		if result.Outcome != OutcomeDuplicate {
			t.Fatalf("expected duplicate outcome, got %+v", result)
		}
		if !errors.Is(result.Err(), ErrDuplicateRequest) {
			t.Fatalf("expected ErrDuplicateRequest, got %v", result.Err())
		}
		if len(store.requests) != 1 {
			t.Fatalf("expected a single stored request, got %d", len(store.requests))
		}
		if len(notifier.notices) != 1 {
			t.Fatalf("expected coordinator to be notified once, got %d", len(notifier.notices))
		}
	})

	t.Run("keeps the request when the coordinator notice fails", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{coordinatorErr: errors.New("smtp unavailable")}
		svc := newRequestServiceForTest(store, notifier)

		result, err := svc.Submit(context.Background(), sampleRequestInput())
		if err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
		if !result.Success() {
			t.Fatalf("expected success despite notification failure, got %+v", result)
		}
		var nErr *NotificationError
		if !errors.As(result.NotificationErr, &nErr) {
			t.Fatalf("expected NotificationError, got %v", result.NotificationErr)
		}
		if len(store.requests) != 1 {
			t.Fatalf("expected request to remain stored")
		}
	})

	t.Run("surfaces store failures", func(t *testing.T) {
		store := newStoreStub(nil)
		store.insertErr = errors.New("disk full")
		svc := newRequestServiceForTest(store, &notifierStub{})

		if _, err := svc.Submit(context.Background(), sampleRequestInput()); err == nil {
			t.Fatalf("expected error from failing store")
		}
	})
}

func TestRequestService_Approve(t *testing.T) {
	t.Run("promotes a clean request and then notifies", func(t *testing.T) {
		events := &[]string{}
		store := newStoreStub(events)
		notifier := &notifierStub{events: events}
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, notifier)

		result, err := svc.Approve(context.Background(), "r1")
		if err != nil {
			t.Fatalf("Approve returned error: %v", err)
		}
		if !result.Success() || result.BookingID == "" {
			t.Fatalf("expected success with a booking id, got %+v", result)
		}
		if _, ok := store.requests["r1"]; ok {
			t.Fatalf("expected request to be removed")
		}
		booking, ok := store.bookings[result.BookingID]
		if !ok || booking.Topic != "Graph Neural Networks" {
			t.Fatalf("expected booking with request fields, got %+v", booking)
		}

		want := []string{"insert_booking:" + result.BookingID, "delete_request:r1", "notify_approved"}
		if !reflect.DeepEqual(*events, want) {
			t.Fatalf("expected events %v, got %v", want, *events)
		}
	})

	t.Run("leaves the request pending on conflict", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{}
		seedBooking(store, "b1", "2025-03-10", "A-101", "10:30:00", "11:30:00")
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, notifier)

		result, err := svc.Approve(context.Background(), "r1")
		if err != nil {
			t.Fatalf("Approve returned error: %v", err)
		}
		if result.Outcome != OutcomeConflict || result.Message != msgConflict {
			t.Fatalf("expected conflict, got %+v", result)
		}
		if len(result.Conflicts) != 1 || result.Conflicts[0].WithBookingID != "b1" {
			t.Fatalf("expected conflict with b1, got %+v", result.Conflicts)
		}
		if result.SiblingConflict {
			t.Fatalf("did not expect a sibling conflict")
		}
		if store.requests["r1"].Status != persistence.StatusPending {
			t.Fatalf("expected request to stay pending")
		}
		if len(store.bookings) != 1 || len(notifier.statusChanges) != 0 {
			t.Fatalf("expected no booking and no notification")
		}
	})

	t.Run("allows back to back sessions", func(t *testing.T) {
		store := newStoreStub(nil)
		seedBooking(store, "b1", "2025-03-10", "A-101", "09:00:00", "10:00:00")
		seedBooking(store, "b2", "2025-03-10", "A-101", "11:00:00", "12:00:00")
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, &notifierStub{})

		result, err := svc.Approve(context.Background(), "r1")
		if err != nil {
			t.Fatalf("Approve returned error: %v", err)
		}
		if !result.Success() {
			t.Fatalf("expected success, got %+v", result)
		}
	})

	t.Run("ignores overlaps in other rooms", func(t *testing.T) {
		store := newStoreStub(nil)
		seedBooking(store, "b1", "2025-03-10", "B-202", "10:00:00", "11:00:00")
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, &notifierStub{})

		result, err := svc.Approve(context.Background(), "r1")
		if err != nil || !result.Success() {
			t.Fatalf("expected success, got %+v, %v", result, err)
		}
	})

	t.Run("reports missing requests", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{}
		svc := newRequestServiceForTest(store, notifier)

		result, err := svc.Approve(context.Background(), "missing")
		if err != nil {
			t.Fatalf("Approve returned error: %v", err)
		}
		if result.Outcome != OutcomeNotFound {
			t.Fatalf("expected not_found, got %+v", result)
		}
		if len(notifier.statusChanges) != 0 {
			t.Fatalf("expected no notification")
		}
	})

	t.Run("maps a store overlap to a conflict", func(t *testing.T) {
		store := newStoreStub(nil)
		store.promoteErr = persistence.ErrOverlap
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, &notifierStub{})

		result, err := svc.Approve(context.Background(), "r1")
		if err != nil {
			t.Fatalf("Approve returned error: %v", err)
		}
		if result.Outcome != OutcomeConflict {
			t.Fatalf("expected conflict, got %+v", result)
		}
		if _, ok := store.requests["r1"]; !ok {
			t.Fatalf("expected request to remain")
		}
	})

	t.Run("re-reads bookings on every check", func(t *testing.T) {
		store := newStoreStub(nil)
		seedRequest(store, "r1", nil)
		seedRequest(store, "r2", func(r *persistence.Request) { r.Room = "C-303" })
		svc := newRequestServiceForTest(store, &notifierStub{})

		for _, id := range []string{"r1", "r2"} {
			if _, err := svc.Approve(context.Background(), id); err != nil {
				t.Fatalf("Approve(%s) returned error: %v", id, err)
			}
		}
		if store.slotReads != 2 {
			t.Fatalf("expected two slot reads, got %d", store.slotReads)
		}
	})

	t.Run("returns infrastructure errors", func(t *testing.T) {
		store := newStoreStub(nil)
		store.listErr = errors.New("database is locked")
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, &notifierStub{})

		if _, err := svc.Approve(context.Background(), "r1"); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestRequestService_Reject(t *testing.T) {
	t.Run("notifies before deleting", func(t *testing.T) {
		events := &[]string{}
		store := newStoreStub(events)
		notifier := &notifierStub{events: events}
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, notifier)

		result, err := svc.Reject(context.Background(), "r1")
		if err != nil {
			t.Fatalf("Reject returned error: %v", err)
		}
		if !result.Success() {
			t.Fatalf("expected success, got %+v", result)
		}
		want := []string{"notify_rejected", "delete_request:r1"}
		if !reflect.DeepEqual(*events, want) {
			t.Fatalf("expected events %v, got %v", want, *events)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{}
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, notifier)

		if _, err := svc.Reject(context.Background(), "r1"); err != nil {
			t.Fatalf("first Reject returned error: %v", err)
		}
		result, err := svc.Reject(context.Background(), "r1")
		if err != nil {
			t.Fatalf("second Reject returned error: %v", err)
		}
		if result.Outcome != OutcomeNotFound {
			t.Fatalf("expected not_found, got %+v", result)
		}
		if len(notifier.statusChanges) != 1 {
			t.Fatalf("expected a single notification, got %d", len(notifier.statusChanges))
		}
	})

	t.Run("completes when notification fails", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{statusErr: errors.New("mailbox full")}
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, notifier)

		result, err := svc.Reject(context.Background(), "r1")
		if err != nil {
			t.Fatalf("Reject returned error: %v", err)
		}
		if !result.Success() || result.NotificationErr == nil {
			t.Fatalf("expected success with notification error, got %+v", result)
		}
		if _, ok := store.requests["r1"]; ok {
			t.Fatalf("expected request to be deleted")
		}
	})
}

func TestRequestService_Edit(t *testing.T) {
	edited := func() RequestInput {
		in := sampleRequestInput()
		in.Topic = "Revised Topic"
		return in
	}

	t.Run("rejected uses the supplied fields", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{}
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, notifier)

		result, err := svc.Edit(context.Background(), "r1", edited(), "rejected")
		if err != nil {
			t.Fatalf("Edit returned error: %v", err)
		}
		if !result.Success() {
			t.Fatalf("expected success, got %+v", result)
		}
		if len(notifier.statusChanges) != 1 || notifier.statusChanges[0].Topic != "Revised Topic" {
			t.Fatalf("expected notification with supplied topic, got %+v", notifier.statusChanges)
		}
		if _, ok := store.requests["r1"]; ok {
			t.Fatalf("expected request to be deleted")
		}
	})

	t.Run("pending updates in place and notifies", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{}
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, notifier)

		result, err := svc.Edit(context.Background(), "r1", edited(), "Pending")
		if err != nil {
			t.Fatalf("Edit returned error: %v", err)
		}
		if !result.Success() || result.Message != msgRequestUpdated {
			t.Fatalf("expected update success, got %+v", result)
		}
		if got := store.requests["r1"]; got.Topic != "Revised Topic" || got.Status != persistence.StatusPending {
			t.Fatalf("expected updated pending row, got %+v", got)
		}
		if len(notifier.statusChanges) != 1 || notifier.statusChanges[0].Status != persistence.StatusPending {
			t.Fatalf("expected pending notification, got %+v", notifier.statusChanges)
		}
	})

	t.Run("approved materialises a booking", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{}
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, notifier)

		result, err := svc.Edit(context.Background(), "r1", edited(), "approved")
		if err != nil {
			t.Fatalf("Edit returned error: %v", err)
		}
		if !result.Success() || result.BookingID == "" {
			t.Fatalf("expected approval, got %+v", result)
		}
		if store.bookings[result.BookingID].Topic != "Revised Topic" {
			t.Fatalf("expected booking from edited fields")
		}
		if _, ok := store.requests["r1"]; ok {
			t.Fatalf("expected request to be removed")
		}
	})

	t.Run("approved with a conflict leaves the row untouched", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{}
		seedBooking(store, "b1", "2025-03-10", "A-101", "10:00:00", "11:00:00")
		original := seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, notifier)

		result, err := svc.Edit(context.Background(), "r1", edited(), "approved")
		if err != nil {
			t.Fatalf("Edit returned error: %v", err)
		}
		if result.Outcome != OutcomeConflict || len(result.Conflicts) != 1 {
			t.Fatalf("expected conflict, got %+v", result)
		}
		if got := store.requests["r1"]; got.Status != persistence.StatusPending || got.Topic != original.Topic {
			t.Fatalf("expected stored row unchanged, got %+v", got)
		}
		if len(notifier.statusChanges) != 0 {
			t.Fatalf("expected no status notification, got %+v", notifier.statusChanges)
		}
	})

	t.Run("rejected with invalid fields uses the stored row", func(t *testing.T) {
		store := newStoreStub(nil)
		notifier := &notifierStub{}
		original := seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, notifier)

		result, err := svc.Edit(context.Background(), "r1", RequestInput{}, "rejected")
		if err != nil {
			t.Fatalf("Edit returned error: %v", err)
		}
		if !result.Success() {
			t.Fatalf("expected rejection, got %+v", result)
		}
		if _, ok := store.requests["r1"]; ok {
			t.Fatalf("expected request to be deleted")
		}
		if len(notifier.statusChanges) != 1 || notifier.statusChanges[0].Topic != original.Topic || notifier.statusChanges[0].SubmitterEmail != original.SubmitterEmail {
			t.Fatalf("expected notification from the stored row, got %+v", notifier.statusChanges)
		}
	})

	t.Run("pending with invalid fields is refused", func(t *testing.T) {
		store := newStoreStub(nil)
		original := seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, &notifierStub{})

		result, err := svc.Edit(context.Background(), "r1", RequestInput{}, "pending")
		if err != nil {
			t.Fatalf("Edit returned error: %v", err)
		}
		if result.Outcome != OutcomeInvalid {
			t.Fatalf("expected invalid, got %+v", result)
		}
		if got := store.requests["r1"]; got.Topic != original.Topic {
			t.Fatalf("expected stored row unchanged, got %+v", got)
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		store := newStoreStub(nil)
		seedRequest(store, "r1", nil)
		svc := newRequestServiceForTest(store, &notifierStub{})

		result, err := svc.Edit(context.Background(), "r1", edited(), "archived")
		if err != nil {
			t.Fatalf("Edit returned error: %v", err)
		}
		if result.Outcome != OutcomeInvalid {
			t.Fatalf("expected invalid, got %+v", result)
		}
		if _, ok := result.Validation.FieldErrors["status"]; !ok {
			t.Fatalf("expected status error, got %v", result.Validation.FieldErrors)
		}
	})

	t.Run("reports missing requests", func(t *testing.T) {
		svc := newRequestServiceForTest(newStoreStub(nil), &notifierStub{})

		result, err := svc.Edit(context.Background(), "missing", edited(), "pending")
		if err != nil {
			t.Fatalf("Edit returned error: %v", err)
		}
		if result.Outcome != OutcomeNotFound {
			t.Fatalf("expected not_found, got %+v", result)
		}
	})
}

func TestRequestService_Groups(t *testing.T) {
	setup := func() (*storeStub, *RequestService) {
		store := newStoreStub(nil)
		seedRequest(store, "r1", nil)
		seedRequest(store, "other", func(r *persistence.Request) { r.Topic = "Unrelated" })
		seedRequest(store, "r2", nil)
		return store, newRequestServiceForTest(store, &notifierStub{})
	}

	t.Run("lists pending requests grouped by tuple", func(t *testing.T) {
		_, svc := setup()

		groups, err := svc.ListPending(context.Background())
		if err != nil {
			t.Fatalf("ListPending returned error: %v", err)
		}
		if len(groups) != 2 {
			t.Fatalf("expected two groups, got %d", len(groups))
		}
		if got := groups[0].IDs(); !reflect.DeepEqual(got, []string{"r1", "r2"}) {
			t.Fatalf("expected r1 and r2 grouped, got %v", got)
		}
		if got := groups[1].IDs(); !reflect.DeepEqual(got, []string{"other"}) {
			t.Fatalf("expected other alone, got %v", got)
		}
	})

	t.Run("approving a group approves the first and flags siblings", func(t *testing.T) {
		store, svc := setup()

		results, err := svc.ApproveGroup(context.Background(), "r2")
		if err != nil {
			t.Fatalf("ApproveGroup returned error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected two results, got %d", len(results))
		}
		if !results[0].Success() || results[0].RequestID != "r1" {
			t.Fatalf("expected r1 to be approved first, got %+v", results[0])
		}
		if results[1].Outcome != OutcomeConflict || !results[1].SiblingConflict {
			t.Fatalf("expected sibling conflict for r2, got %+v", results[1])
		}
		if store.requests["r2"].Status != persistence.StatusPending {
			t.Fatalf("expected r2 to stay pending")
		}
		if _, ok := store.requests["other"]; !ok {
			t.Fatalf("expected unrelated request untouched")
		}
	})

	t.Run("rejecting a group removes every member", func(t *testing.T) {
		store, svc := setup()

		results, err := svc.RejectGroup(context.Background(), "r1")
		if err != nil {
			t.Fatalf("RejectGroup returned error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected two results, got %d", len(results))
		}
		if len(store.requests) != 1 {
			t.Fatalf("expected only the unrelated request to remain, got %d", len(store.requests))
		}
	})

	t.Run("missing anchor yields not found", func(t *testing.T) {
		_, svc := setup()

		results, err := svc.ApproveGroup(context.Background(), "missing")
		if err != nil {
			t.Fatalf("ApproveGroup returned error: %v", err)
		}
		if len(results) != 1 || results[0].Outcome != OutcomeNotFound {
			t.Fatalf("expected single not_found result, got %+v", results)
		}
	})

	t.Run("batch keeps going after a missing id", func(t *testing.T) {
		store, svc := setup()

		results, err := svc.ApproveBatch(context.Background(), []string{"missing", "other"})
		if err != nil {
			t.Fatalf("ApproveBatch returned error: %v", err)
		}
		if len(results) != 2 || results[0].Outcome != OutcomeNotFound || !results[1].Success() {
			t.Fatalf("unexpected results %+v", results)
		}
		if _, ok := store.requests["other"]; ok {
			t.Fatalf("expected other to be approved")
		}
	})
}
