package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/slotlock"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Locker      application.SlotLocker
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults. Services built
// by one factory share its in-process slot lock.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Locker:      slotlock.NewLocal(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Locker == nil {
		factory.Locker = slotlock.NewLocal()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocker overrides the slot lock shared by the factory's services.
func WithLocker(locker application.SlotLocker) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Locker = locker
	}
}

// RequestServiceDeps captures dependencies for constructing a request service.
type RequestServiceDeps struct {
	Requests    application.RequestRepository
	Bookings    application.BookingRepository
	Notifier    application.Notifier
	IDGenerator func() string
	Logger      *slog.Logger
}

// NewRequestService builds a request service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewRequestService(deps RequestServiceDeps) *application.RequestService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	return application.NewRequestServiceWithLogger(
		deps.Requests,
		deps.Bookings,
		deps.Notifier,
		f.Locker,
		idGen,
		deps.Logger,
	)
}

// BookingServiceDeps captures dependencies for constructing a booking service.
type BookingServiceDeps struct {
	Bookings    application.BookingRepository
	Notifier    application.Notifier
	IDGenerator func() string
	Location    *time.Location
	Logger      *slog.Logger
}

// NewBookingService builds a booking service using the supplied dependencies.
func (f *ServiceFactory) NewBookingService(deps BookingServiceDeps) *application.BookingService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return application.NewBookingServiceWithLogger(
		deps.Bookings,
		deps.Notifier,
		f.Locker,
		idGen,
		f.Clock.NowFunc(),
		loc,
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Admins   application.AdminRepository
	Secret   []byte
	TokenTTL time.Duration
	Logger   *slog.Logger
}

// NewAuthService builds an auth service with cheap hashing parameters.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	secret := deps.Secret
	if len(secret) == 0 {
		secret = []byte("fixture-secret")
	}
	svc := application.NewAuthServiceWithLogger(deps.Admins, secret, deps.TokenTTL, f.Clock.NowFunc(), deps.Logger)
	return svc.WithHashParams(FastHashParams)
}

// FastHashParams keeps argon2id cheap enough for tests.
var FastHashParams = application.Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}
