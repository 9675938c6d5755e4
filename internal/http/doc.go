// Package http exposes the seminar scheduler over a JSON API built on echo.
//
// Public endpoints:
//   - GET /healthz: dependency probes, 503 when any fails.
//   - POST /api/login: body {"username","password"}; response
//     {"token","token_type","expires_at"}. The token is sent back as
//     `Authorization: Bearer <token>` on admin routes.
//   - GET /api/bookings/upcoming, GET /api/bookings/past: confirmed seminars
//     with their listing ordinal.
//   - POST /api/requests: submit a seminar request (`requestPayload`).
//
// Administrator endpoints under /api/admin:
//   - GET /requests: pending requests grouped by identical tuple.
//   - PUT /requests/{id}: edit a request and set its status.
//   - POST /requests/{id}/approve, /reject, /approve-group, /reject-group.
//   - POST /requests/approve-batch: body {"request_ids": [...]}.
//   - POST /bookings, GET|PUT|DELETE /bookings/{id}.
//   - POST /bookings/{id}/invitations: body {"recipients": [...]}.
//
// Lifecycle and booking writes answer with `resultResponse`. The status code
// follows the outcome: 200/201 on success, 409 for conflicts and duplicates,
// 404 for unknown ids, 422 for invalid input and 502 when an invitation could
// not be delivered. A successful write whose notification failed still answers
// 2xx with "notification_failed": true.
package http
