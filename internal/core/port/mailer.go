package port

import "context"

// Message is a rendered outbound mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers rendered messages. Send failure during registration is
// fatal to that registration; resend failures are recoverable.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
