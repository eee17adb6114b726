package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session status lifecycle. A session is created as processing the moment a
// recording stops and finishes as completed or error; the in-memory recorder
// state is a separate thing (see internal/recorder).
const (
	SessionProcessing = "processing"
	SessionCompleted  = "completed"
	SessionError      = "error"
)

type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4
	OwnerID   string             `bson:"owner_id" json:"owner_id"`     // uuid

	Metadata Metadata `bson:"metadata" json:"metadata"`
	Status   string   `bson:"status" json:"status"` // processing|completed|error
	Error    string   `bson:"error,omitempty" json:"error,omitempty"`

	Results  *Results          `bson:"results,omitempty" json:"results,omitempty"`
	Speakers map[string]string `bson:"speakers,omitempty" json:"speakers,omitempty"` // label -> display name

	AudioRef        string `bson:"audio_ref,omitempty" json:"audio_ref,omitempty"`
	DurationSeconds int64  `bson:"duration_seconds" json:"duration_seconds"`
	Locale          string `bson:"locale" json:"locale"` // en|id

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
}

type Metadata struct {
	Title    string `bson:"title" json:"title"`
	Location string `bson:"location,omitempty" json:"location,omitempty"`
	MapURL   string `bson:"map_url,omitempty" json:"map_url,omitempty"`
}

type Results struct {
	Transcript  string   `bson:"transcript" json:"transcript"`
	Summary     string   `bson:"summary" json:"summary"`
	ActionItems []string `bson:"action_items" json:"action_items"`
}
