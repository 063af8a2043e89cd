package outbox

// Message is the broker-neutral form of a resolved outbox row.
type Message struct {
	RoutingKey string
	Data       []byte
	Attributes map[string]string
}
