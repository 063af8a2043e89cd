package pubsub

import (
	"context"
	"testing"

	"github.com/communityhub/marketplace-backend/pkg/config"
	"github.com/communityhub/marketplace-backend/pkg/outbox"
)

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "demo"}
	if got := c.topicResourceName("domain-events"); got != "projects/demo/topics/domain-events" {
		t.Fatalf("unexpected topic name %q", got)
	}
	full := "projects/other/topics/x"
	if got := c.topicResourceName(full); got != full {
		t.Fatalf("full resource name should pass through, got %q", got)
	}
	if got := c.topicResourceName("  "); got != "" {
		t.Fatalf("blank name should stay blank, got %q", got)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	if _, err := NewClient(context.Background(), config.PubSubConfig{DomainTopic: "t"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.PubSubConfig{ProjectID: "p"}, nil); err != errTopicRequired {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	if err := c.Publish(context.Background(), outbox.Message{}); err == nil {
		t.Fatal("expected publish error")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close should be a no-op, got %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	if opts := clientOptions(config.PubSubConfig{}); len(opts) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(opts))
	}
	if opts := clientOptions(config.PubSubConfig{CredentialsFile: "/tmp/sa.json"}); len(opts) != 1 {
		t.Fatalf("expected credentials option, got %d", len(opts))
	}
	opts := clientOptions(config.PubSubConfig{Endpoint: "localhost:8085", CredentialsFile: "/tmp/sa.json"})
	if len(opts) != 2 {
		t.Fatalf("endpoint override should skip credentials, got %d options", len(opts))
	}
}
