// Package notify delivers lifecycle notifications for seminar requests and
// bookings. Mailer sends email over SMTP with calendar invitations attached,
// Publisher hands events to a RabbitMQ queue for Consumer to deliver later,
// and LogNotifier only records them.
package notify
