package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// LoadEventMessage announces a finished loader run to downstream consumers.
type LoadEventMessage struct {
	RunId         string    `json:"run_id"`
	Mode          string    `json:"mode"`
	Period        string    `json:"period"`
	FundsLoaded   int64     `json:"funds_loaded"`
	FactsLoaded   int64     `json:"facts_loaded"`
	QCExecuted    bool      `json:"qc_executed"`
	Status        string    `json:"status"`
	CorrelationId string    `json:"correlation_id"`
	FinishedAt    time.Time `json:"finished_at"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

// PubSubConfigured reports whether run events should be published (PUBSUB_TOPIC set).
func PubSubConfigured() bool {
	return strings.TrimSpace(os.Getenv("PUBSUB_TOPIC")) != ""
}

func getPubSubProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

// getPubSubClient uses Application Default Credentials unless PUBSUB_CREDENTIALS_JSON is provided.
func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}
	pubsubClient = c
	log.Printf("pubsub client ready (project_id=%s)", projectID)
	return c, nil
}

// PublishLoadEvent publishes msg to PUBSUB_TOPIC and returns the server-assigned message ID.
func PublishLoadEvent(ctx context.Context, msg LoadEventMessage) (string, error) {
	topicName := strings.TrimSpace(os.Getenv("PUBSUB_TOPIC"))
	if topicName == "" {
		return "", errors.New("PUBSUB_TOPIC is required")
	}
	client, err := getPubSubClient(ctx)
	if err != nil {
		return "", err
	}

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	t := client.Topic(topicName)
	defer t.Stop()
	result := t.Publish(ctx, &pubsub.Message{
		Data: msgJSON,
		Attributes: map[string]string{
			"mode":   msg.Mode,
			"status": msg.Status,
		},
	})
	return result.Get(ctx)
}

func ClosePubSub() error {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient == nil {
		return nil
	}
	err := pubsubClient.Close()
	pubsubClient = nil
	return err
}
