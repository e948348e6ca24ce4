package alerts

import "time"

// Task type names routed through asynq.
const (
	TaskUserMessage  = "alerts:user_message"
	TaskManagerAlert = "alerts:manager_alert"
)

// EmailEnvelope is the rendered message handed to the mailer.
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// UserMessagePayload carries a message for one recipient.
type UserMessagePayload struct {
	UserID   string        `json:"user_id"`
	Kind     string        `json:"kind"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// ManagerAlertPayload carries an operational alert for the manager pool.
type ManagerAlertPayload struct {
	Message  string        `json:"message"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}
