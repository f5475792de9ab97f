package topic

import (
	"errors"
	"fmt"
	"strings"
)

// Set groups the topics a device speaks on.
type Set struct {
	// Status is where door state reports are published.
	Status string
	// Command is the exact topic subscribed to for relay pulses.
	Command string
	// Hello receives the greeting published after each connect.
	Hello string
	// HelloPayload is the greeting body, usually "hello from <client id>".
	HelloPayload string
}

// NewSet returns the default topic set for the given client identity.
func NewSet(clientID string) Set {
	return Set{
		Status:       DefaultStatus,
		Command:      DefaultCommand,
		Hello:        DefaultHello,
		HelloPayload: HelloPayload(clientID),
	}
}

// HelloPayload builds the greeting announced after connecting.
func HelloPayload(clientID string) string {
	return fmt.Sprintf("hello from %s", clientID)
}

// Validate rejects empty topics and wildcards in topics used for publishing
// or exact-match subscriptions.
func (s Set) Validate() []error {
	var errs []error
	for _, t := range []struct{ name, value string }{
		{"status", s.Status},
		{"command", s.Command},
		{"hello", s.Hello},
	} {
		if t.value == "" {
			errs = append(errs, fmt.Errorf("%s topic must not be empty", t.name))
			continue
		}
		if HasWildcard(t.value) {
			errs = append(errs, fmt.Errorf("%s topic %q must not contain wildcards", t.name, t.value))
		}
	}
	if s.Status != "" && s.Status == s.Command {
		errs = append(errs, errors.New("status and command topics must differ"))
	}
	return errs
}

// HasWildcard reports whether the topic contains an MQTT wildcard.
func HasWildcard(t string) bool {
	return strings.Contains(t, Wildcard) || strings.Contains(t, MultiWildcard)
}

// Matches checks if a topic matches a filter (supports wildcards + and #).
func Matches(filter, topic string) bool {
	filter = stripShare(filter)
	if filter == topic {
		return true
	}

	if !HasWildcard(filter) {
		return false
	}

	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		if part == MultiWildcard {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != Wildcard && part != topicParts[i] {
			return false
		}
	}

	return len(filterParts) == len(topicParts)
}

func stripShare(filter string) string {
	if strings.HasPrefix(filter, "$share/") {
		// Format: $share/<group>/<topic>
		parts := strings.SplitN(filter, "/", 3)
		if len(parts) == 3 {
			return parts[2]
		}
	}
	return filter
}
