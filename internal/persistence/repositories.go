package persistence

import "context"

// BookingRepository exposes CRUD operations for confirmed bookings.
type BookingRepository interface {
	InsertBooking(ctx context.Context, booking Booking) error
	UpdateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	ListBookingsForSlot(ctx context.Context, date, room string) ([]Booking, error)
	ListBookingsOnOrAfter(ctx context.Context, date string) ([]ListedBooking, error)
	ListBookingsBefore(ctx context.Context, date string) ([]ListedBooking, error)
}

// RequestRepository stores pending seminar requests.
type RequestRepository interface {
	InsertRequest(ctx context.Context, request Request) error
	UpdateRequest(ctx context.Context, request Request) error
	GetRequest(ctx context.Context, id string) (Request, error)
	DeleteRequest(ctx context.Context, id string) error
	ListRequests(ctx context.Context) ([]Request, error)
	FindPendingDuplicate(ctx context.Context, key RequestKey) (Request, error)
	// PromoteRequest inserts booking and deletes the request in one transaction.
	PromoteRequest(ctx context.Context, requestID string, booking Booking) error
}

// AdminRepository reads administrator credentials.
type AdminRepository interface {
	GetAdminAccount(ctx context.Context, username string) (AdminAccount, error)
	// CreateAdminAccountIfMissing inserts account unless the username exists and
	// reports whether a row was written.
	CreateAdminAccountIfMissing(ctx context.Context, account AdminAccount) (bool, error)
	UpdateAdminPasswordHash(ctx context.Context, username, hash string) error
}
