// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum file upload size in bytes (32MB)
	MaxUploadSize = 32 << 20
)

// Upload form fields
const (
	// FieldPhoto is the multipart field of a single-photo upload
	FieldPhoto = "photo"

	// FieldPhoto1 and FieldPhoto2 are the two slots of a photo-vs-photo comparison
	FieldPhoto1 = "photo1"
	FieldPhoto2 = "photo2"
)
