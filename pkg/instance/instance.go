package instance

import "os"

// GetID returns the publisher replica identifier, falling back to the hostname.
func GetID() string {
	if id := os.Getenv("MARKETPLACE_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "publisher-0"
}
