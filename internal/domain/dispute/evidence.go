package dispute

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentio/backend/internal/domain/shared"
)

// allowedEvidenceTypes lists the accepted evidence file types
var allowedEvidenceTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"video/mp4":  {},
}

// ViolationEvidence is an evidence image attached to a violation case.
// Records are append-only; they are never mutated after upload.
type ViolationEvidence struct {
	shared.BaseEntity
	ViolationID uuid.UUID
	ImageURL    string
	UploadedBy  Party
	FileType    string
	UploadedAt  time.Time
}

// TableName returns the database table name
func (ViolationEvidence) TableName() string {
	return "violation_evidence"
}

// NewViolationEvidence creates a new evidence record. The URL must point at
// an already-uploaded file; this engine does not perform uploads.
func NewViolationEvidence(violationID uuid.UUID, imageURL string, uploadedBy Party, fileType string) (*ViolationEvidence, error) {
	if violationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VIOLATION", "Violation ID cannot be empty")
	}
	if imageURL == "" {
		return nil, shared.NewDomainError("VALIDATION", "Evidence image URL is required")
	}
	if !uploadedBy.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "Evidence uploader must be provider or customer")
	}
	if _, ok := allowedEvidenceTypes[strings.ToLower(fileType)]; !ok {
		return nil, shared.NewDomainError("VALIDATION", "Unsupported evidence file type: "+fileType)
	}

	return &ViolationEvidence{
		BaseEntity:  shared.NewBaseEntity(),
		ViolationID: violationID,
		ImageURL:    imageURL,
		UploadedBy:  uploadedBy,
		FileType:    strings.ToLower(fileType),
		UploadedAt:  time.Now(),
	}, nil
}
