package core

import "github.com/dkeye/Rota/internal/domain"

// Announcement types.
const (
	AnnounceJoined   = "joined"
	AnnounceLeft     = "left"
	AnnounceAdvanced = "advanced"
	AnnounceListing  = "listing"
	AnnounceGreeting = "greeting"
)

// Announcement is one committed event for a group. Listing carries the fresh
// rendered roster; AnnouncementID tells the chat adapter which posted
// message to edit instead of posting a new one.
type Announcement struct {
	Type           string         `json:"type"`
	Group          domain.GroupID `json:"group"`
	Kind           domain.Kind    `json:"kind,omitempty"`
	Text           string         `json:"text,omitempty"`
	Listing        string         `json:"listing,omitempty"`
	AnnouncementID string         `json:"announcement_id,omitempty"`
	Outgoing       *domain.Member `json:"outgoing,omitempty"`
	Incoming       *domain.Member `json:"incoming,omitempty"`
}

// Publisher delivers announcements to whoever listens for a group.
// Delivery is best effort and happens only after the state is committed.
type Publisher interface {
	Publish(Announcement) int
}
