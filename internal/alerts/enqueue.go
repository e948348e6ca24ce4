package alerts

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/RammasunW/tablefare/internal/db"
)

// Notification delivery is best effort and always issued after the owning
// transaction has committed. Failures are logged, never returned to callers.

// NotifyUser records an in-app notification and queues an email for the user.
func NotifyUser(userID, kind, title, body string) {
	notify(userID, kind, title, body, nil)
}

// NotifyCustomer is NotifyUser with a customer-facing kind label.
func NotifyCustomer(customerID, title, body string) {
	notify(customerID, "customer", title, body, nil)
}

// NotifyChef informs a chef about order activity on their dishes.
func NotifyChef(chefID, title, body string) {
	notify(chefID, "chef", title, body, nil)
}

// NotifyAgent informs a delivery agent about bid and assignment outcomes.
func NotifyAgent(agentID, title, body string) {
	notify(agentID, "delivery", title, body, nil)
}

// NotifyManagers fans a message out to every active manager.
func NotifyManagers(title, body string) {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT id::text FROM users WHERE role = 'manager' AND status = 'ACTIVE'`)
	if err != nil {
		log.Printf("manager pool lookup failed: %v", err)
		return
	}
	defer rows.Close()

	var managers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			log.Printf("manager pool scan failed: %v", err)
			return
		}
		managers = append(managers, id)
	}
	for _, id := range managers {
		notify(id, "manager", title, body, nil)
	}

	payload := ManagerAlertPayload{
		Message:  title,
		Envelope: EmailEnvelope{Subject: title, Body: body},
		SentAt:   time.Now(),
	}
	b, _ := json.Marshal(payload)
	if _, err := ensureClient().Enqueue(asynq.NewTask(TaskManagerAlert, b), asynq.Queue("alerts")); err != nil {
		log.Printf("enqueue manager alert failed: %v", err)
	}
}

func notify(userID, kind, title, body string, reference *string) {
	if err := CreateNotification(userID, kind, title, body, reference); err != nil {
		log.Printf("notification row for %s failed: %v", userID, err)
	}

	var email string
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT email FROM users WHERE id = $1`, userID).Scan(&email)

	payload := UserMessagePayload{
		UserID:   userID,
		Kind:     kind,
		Envelope: EmailEnvelope{To: email, Subject: title, Body: body},
		SentAt:   time.Now(),
	}
	b, _ := json.Marshal(payload)
	if _, err := ensureClient().Enqueue(asynq.NewTask(TaskUserMessage, b), asynq.Queue("emails")); err != nil {
		log.Printf("enqueue user message for %s failed: %v", userID, err)
	}
}
