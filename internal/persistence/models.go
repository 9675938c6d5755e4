package persistence

// Booking represents a confirmed seminar occupying a room for a time range.
type Booking struct {
	ID           string `db:"id"`
	Date         string `db:"date"`
	StartTime    string `db:"start_time"`
	EndTime      string `db:"end_time"`
	Room         string `db:"room"`
	SpeakerName  string `db:"speaker_name"`
	SpeakerEmail string `db:"speaker_email"`
	SpeakerBio   string `db:"speaker_bio"`
	Topic        string `db:"topic"`
	Abstract     string `db:"abstract"`
	Category     string `db:"category"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

// ListedBooking is a booking annotated with its position in a listing.
// Ordinal is recomputed on every query and never identifies the row.
type ListedBooking struct {
	Booking
	Ordinal int `db:"ordinal"`
}

// Request statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Request represents a seminar proposal awaiting administrative review.
type Request struct {
	ID             string `db:"id"`
	Date           string `db:"date"`
	StartTime      string `db:"start_time"`
	EndTime        string `db:"end_time"`
	Room           string `db:"room"`
	SpeakerName    string `db:"speaker_name"`
	SpeakerEmail   string `db:"speaker_email"`
	SpeakerBio     string `db:"speaker_bio"`
	Topic          string `db:"topic"`
	Abstract       string `db:"abstract"`
	Category       string `db:"category"`
	SubmitterName  string `db:"submitter_name"`
	SubmitterEmail string `db:"submitter_email"`
	Status         string `db:"status"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

// RequestKey is the tuple that identifies duplicate or similar requests.
type RequestKey struct {
	Date        string
	StartTime   string
	EndTime     string
	SpeakerName string
	Topic       string
	Room        string
}

// Key returns the duplicate detection tuple for the request.
func (r Request) Key() RequestKey {
	return RequestKey{
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		SpeakerName: r.SpeakerName,
		Topic:       r.Topic,
		Room:        r.Room,
	}
}

// AdminAccount holds the credentials of an administrator.
type AdminAccount struct {
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}
