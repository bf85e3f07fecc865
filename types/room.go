package types

import "time"

// RoomInfo is the core's normalized view of a media room. Provider fields
// outside this record are dropped at the facade boundary.
type RoomInfo struct {
	SID             string    `json:"sid"`
	Name            string    `json:"name"`
	MaxParticipants int       `json:"max_participants"`
	NumParticipants int       `json:"num_participants"`
	NumPublishers   int       `json:"num_publishers"`
	CreatedAt       time.Time `json:"created_at"`
	Metadata        string    `json:"metadata,omitempty"`
}

// ParticipantInfo is the normalized view of a room participant.
type ParticipantInfo struct {
	SID         string      `json:"sid"`
	Identity    string      `json:"identity"`
	Name        string      `json:"name,omitempty"`
	State       string      `json:"state,omitempty"`
	JoinedAt    time.Time   `json:"joined_at"`
	IsPublisher bool        `json:"is_publisher"`
	Metadata    string      `json:"metadata,omitempty"`
	Tracks      []TrackInfo `json:"tracks,omitempty"`
}

// TrackInfo describes a single published track.
type TrackInfo struct {
	SID    string `json:"sid"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type,omitempty"`
	Source string `json:"source,omitempty"`
	Muted  bool   `json:"muted"`
}

// RoomStats aggregates room occupancy derived from participant flags.
type RoomStats struct {
	Room         RoomInfo          `json:"room_info"`
	Participants []ParticipantInfo `json:"participants"`
	Publishers   int               `json:"publisher_count"`
	Subscribers  int               `json:"subscriber_count"`
	ActiveTracks int               `json:"active_tracks"`
}
