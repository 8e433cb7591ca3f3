package models

import (
	"time"
)

// ArtifactKind identifies what a file bound to a case is.
type ArtifactKind string

const (
	// ArtifactRegistry is a property registry document (등기부등본), uploaded or issued.
	ArtifactRegistry ArtifactKind = "registry"
	// ArtifactBuildingLedger is a building ledger document (건축물대장).
	ArtifactBuildingLedger ArtifactKind = "building_ledger"
	// ArtifactUserUpload is any other user-supplied file.
	ArtifactUserUpload ArtifactKind = "user_upload"
	// ArtifactReportFile is a generated report file.
	ArtifactReportFile ArtifactKind = "report_file"
)

// ArtifactSource records how a registry document entered the system.
type ArtifactSource string

const (
	SourceUpload ArtifactSource = "upload"
	SourceIssued ArtifactSource = "issued"
)

// Artifact is a file bound to a case. An artifact is immutable once parsed
// data is attached; re-parsing creates a new ParseRecord rather than mutating
// an existing one.
type Artifact struct {
	ID        string         `json:"id"`
	CaseID    string         `json:"case_id"`
	Kind      ArtifactKind   `json:"kind"`
	Source    ArtifactSource `json:"source"`
	FileRef   string         `json:"file_ref"`
	Parse     *ParseRecord   `json:"parse,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ParseRecord is the structured outcome of parsing an artifact. Confidence is
// in [0,1]; Method records which extraction source or strategy produced the
// data so low-confidence results can be debugged.
type ParseRecord struct {
	ID         string        `json:"id"`
	ArtifactID string        `json:"artifact_id"`
	Registry   *RegistryData `json:"registry,omitempty"`
	Confidence float64       `json:"confidence"`
	Method     string        `json:"method"`
	ParsedAt   time.Time     `json:"parsed_at"`
}
