package enums

import "fmt"

// PhotoStatus tracks a photo through the upload + watermark pipeline.
type PhotoStatus string

const (
	// PhotoStatusPending means the row exists but the original has not been confirmed uploaded.
	PhotoStatusPending PhotoStatus = "pending"
	// PhotoStatusUploaded means the original landed in storage and awaits processing.
	PhotoStatusUploaded PhotoStatus = "uploaded"
	// PhotoStatusProcessed means the watermarked preview is available.
	PhotoStatusProcessed PhotoStatus = "processed"
	// PhotoStatusFailed means preview generation failed and needs operator attention.
	PhotoStatusFailed PhotoStatus = "failed"
)

var validPhotoStatuses = []PhotoStatus{
	PhotoStatusPending,
	PhotoStatusUploaded,
	PhotoStatusProcessed,
	PhotoStatusFailed,
}

func (p PhotoStatus) String() string {
	return string(p)
}

// IsValid reports whether the status is known.
func (p PhotoStatus) IsValid() bool {
	for _, candidate := range validPhotoStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePhotoStatus converts raw input into a PhotoStatus.
func ParsePhotoStatus(value string) (PhotoStatus, error) {
	for _, candidate := range validPhotoStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid photo status %q", value)
}
