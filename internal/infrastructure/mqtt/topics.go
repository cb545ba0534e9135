package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic this service publishes.
const TopicPrefix = "safetymonitor"

// Topics builds the per-site topic tree:
//
//	safetymonitor/{site}/state   retained decision snapshot
//	safetymonitor/{site}/event   decision change events
//	safetymonitor/{site}/status  retained online/offline, also the LWT
type Topics struct {
	site string
}

// NewTopics returns topic builders for a site. The site id becomes a single
// topic level, so it must be non-empty and free of '/', '+' and '#'.
func NewTopics(site string) (Topics, error) {
	if site == "" || strings.ContainsAny(site, "/+#") {
		return Topics{}, fmt.Errorf("%w: site id %q is not a valid topic level", ErrInvalidTopic, site)
	}
	return Topics{site: site}, nil
}

// Site returns the site level.
func (t Topics) Site() string {
	return t.site
}

// State is the retained decision snapshot topic.
func (t Topics) State() string {
	return t.build("state")
}

// Event carries non-retained decision change events.
func (t Topics) Event() string {
	return t.build("event")
}

// Status is the retained availability topic, also used as the LWT.
func (t Topics) Status() string {
	return t.build("status")
}

// All matches every topic of the site, for subscribers and tests.
func (t Topics) All() string {
	return t.build("#")
}

func (t Topics) build(leaf string) string {
	return TopicPrefix + "/" + t.site + "/" + leaf
}
