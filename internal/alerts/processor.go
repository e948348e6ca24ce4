package alerts

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/hibiken/asynq"
)

var (
	client *asynq.Client
	server *asynq.Server
)

// Init starts the asynq server and initializes a shared client.
func Init() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		host := os.Getenv("REDIS_HOST")
		if host == "" {
			host = "127.0.0.1"
		}
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		redisAddr = host + ":" + port
	}

	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client = asynq.NewClient(opts)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskUserMessage, handleUserMessage)
	mux.HandleFunc(TaskManagerAlert, handleManagerAlert)

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails": 10,
			"alerts": 5,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			log.Printf("Asynq server stopped: %v", err)
		}
	}()

	log.Printf("Asynq initialized (addr=%s)", redisAddr)
}

func ensureClient() *asynq.Client {
	if client == nil {
		client = asynq.NewClient(asynq.RedisClientOpt{Addr: "127.0.0.1:6379"})
	}
	return client
}

func handleUserMessage(ctx context.Context, t *asynq.Task) error {
	var p UserMessagePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if p.Envelope.To == "" {
		log.Printf("user message for %s has no email, notification row only", p.UserID)
		return nil
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("send user message to %s failed: %v", p.Envelope.To, err)
	}
	return nil
}

func handleManagerAlert(ctx context.Context, t *asynq.Task) error {
	var p ManagerAlertPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if p.Envelope.To == "" {
		log.Printf("manager alert: %s", p.Message)
		return nil
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("send manager alert failed: %v", err)
	}
	return nil
}
