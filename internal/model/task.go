package model

import "time"

// EnrichTask asks the smart-crop advisor to look at a freshly created photo.
// Only the id travels through the queue; the image is read back from the store.
type EnrichTask struct {
	PhotoID   string    `json:"photo_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FaceLocation is the answer of the face-location query.
type FaceLocation struct {
	Found bool    `json:"found"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// CropDecision is the smart-crop outcome applied to a photo.
type CropDecision struct {
	Mode  CropMode `json:"crop_mode"`
	Focus Point    `json:"focus_point"`
}

// EventType names a store mutation.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event describes one store mutation. Photo is empty for deletions.
type Event struct {
	Type    EventType `json:"type"`
	PhotoID string    `json:"photo_id"`
	Photo   *Photo    `json:"photo,omitempty"`
}

// Layout is the live desk size in pixels, as measured by the client.
type Layout struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// StoredFile describes an artifact kept in file storage.
type StoredFile struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}
