// Package bus is the gateway to the durable message log that carries
// submissions between pipeline stages. Values are JSON; every message is
// keyed by submission id so one submission's stages land on one partition
// in order.
package bus

import "github.com/complementa/backend/internal/domain"

// Topic names, one per pipeline stage.
const (
	TopicIngest   = "certificate.ingest"
	TopicOcr      = "certificate.ocr"
	TopicMetadata = "certificate.metadata"
)

// Consumer group ids, one per stage worker.
const (
	GroupIngest   = "certificate-ingest-group"
	GroupOcr      = "certificate-ocr-group"
	GroupMetadata = "certificate-metadata-group"
)

// IngestMessage enqueues stage 1 after a submission row is committed.
type IngestMessage struct {
	SubmissionID     int64  `json:"submission_id"`
	EnrollmentNumber string `json:"enrollment_number"`
	ObjectKey        string `json:"object_key"`
	Checksum         string `json:"checksum"`
	OriginalFilename string `json:"original_filename"`
	Stage            string `json:"stage"`
	Timestamp        string `json:"timestamp"`
}

// OcrMessage enqueues stage 2 once OCR text is persisted.
type OcrMessage struct {
	SubmissionID  int64   `json:"submission_id"`
	OcrTextID     int64   `json:"ocr_text_id"`
	RawText       string  `json:"raw_text"`
	OcrConfidence float64 `json:"ocr_confidence"`
	Stage         string  `json:"stage"`
	Timestamp     string  `json:"timestamp"`
}

// MetadataMessage enqueues stage 3 once extracted metadata is persisted.
type MetadataMessage struct {
	SubmissionID  int64                  `json:"submission_id"`
	MetadataID    int64                  `json:"metadata_id"`
	ExtractedData domain.ExtractedFields `json:"extracted_data"`
	Stage         string                 `json:"stage"`
	Timestamp     string                 `json:"timestamp"`
}
