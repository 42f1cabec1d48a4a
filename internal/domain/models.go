// Package domain holds the entities of the certificate processing pipeline
// and the rules that govern their lifecycle.
package domain

import "time"

// Student is the owner of certificate submissions. Students are created only
// by explicit registration; the intake path never creates them.
type Student struct {
	ID                 int64      `json:"id"`
	EnrollmentNumber   string     `json:"enrollment_number"`
	Name               string     `json:"name"`
	Email              *string    `json:"email,omitempty"`
	TotalApprovedHours int        `json:"total_approved_hours"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// CertificateSubmission is the spine of the pipeline: one durable record per
// uploaded file, progressing through the status state machine.
//
// (StudentID, FileChecksum) is unique: the same content from the same student
// produces exactly one submission.
type CertificateSubmission struct {
	ID                    int64      `json:"id"`
	StudentID             int64      `json:"student_id"`
	OriginalFilename      string     `json:"original_filename"`
	ObjectKey             string     `json:"object_key"`
	FileChecksum          string     `json:"file_checksum"`
	FileSize              int64      `json:"file_size"`
	MimeType              string     `json:"mime_type"`
	Status                Status     `json:"status"`
	ErrorMessage          *string    `json:"error_message,omitempty"`
	SubmittedAt           time.Time  `json:"submitted_at"`
	ProcessingStartedAt   *time.Time `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at,omitempty"`
}

// CertificateOcrText is the stage-1 output, 1:1 with its submission and
// immutable once written.
type CertificateOcrText struct {
	ID               int64     `json:"id"`
	SubmissionID     int64     `json:"submission_id"`
	RawText          string    `json:"raw_text"`
	OcrConfidence    float64   `json:"ocr_confidence"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	ExtractedAt      time.Time `json:"extracted_at"`
}

// CertificateMetadata is the stage-2 output. The pipeline writes one record
// per submission but the schema permits more on reprocessing.
type CertificateMetadata struct {
	ID                   int64     `json:"id"`
	SubmissionID         int64     `json:"submission_id"`
	ParticipantName      *string   `json:"participant_name"`
	EventName            *string   `json:"event_name"`
	Location             *string   `json:"location"`
	EventDate            *string   `json:"event_date"`
	OriginalHours        *string   `json:"original_hours"`
	NumericHours         *int      `json:"numeric_hours"`
	ExtractionMethod     string    `json:"extraction_method"`
	ExtractionConfidence *float64  `json:"extraction_confidence,omitempty"`
	ProcessingTimeMs     int64     `json:"processing_time_ms"`
	ExtractedAt          time.Time `json:"extracted_at"`
}

// Calculation types for ActivityCategory.
const (
	CalcFixedPerSemester = "fixed_per_semester"
	CalcFixedPerActivity = "fixed_per_activity"
	CalcRatioHours       = "ratio_hours"
	CalcRatioDays        = "ratio_days"
	CalcRatioPages       = "ratio_pages"
)

// ActivityCategory is pre-seeded policy data defining how award hours are
// computed from a certificate's hours, days or pages.
type ActivityCategory struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	CalculationType string `json:"calculation_type"`
	HoursAwarded    *int   `json:"hours_awarded,omitempty"`
	InputUnit       string `json:"input_unit"`
	InputQuantity   *int   `json:"input_quantity,omitempty"`
	OutputHours     *int   `json:"output_hours,omitempty"`
	MaxTotalHours   int    `json:"max_total_hours"`
}

// ExtractedActivity is the reviewable record a coordinator approves, rejects
// or overrides. It carries a denormalized snapshot of the metadata so the
// review queue renders without joins back through the pipeline tables.
type ExtractedActivity struct {
	ID               int64   `json:"id"`
	SubmissionID     int64   `json:"submission_id"`
	MetadataID       *int64  `json:"metadata_id,omitempty"`
	StudentID        int64   `json:"student_id"`
	EnrollmentNumber string  `json:"enrollment_number"`
	Filename         string  `json:"filename"`
	ParticipantName  *string `json:"participant_name"`
	EventName        *string `json:"event_name"`
	Location         *string `json:"location"`
	EventDate        *string `json:"event_date"`
	OriginalHours    *string `json:"original_hours"`
	NumericHours     *int    `json:"numeric_hours"`
	CategoryID       int64   `json:"category_id"`
	CalculatedHours  int     `json:"calculated_hours"`
	LLMReasoning     *string `json:"llm_reasoning"`
	RawText          *string `json:"raw_text,omitempty"`

	ReviewStatus        ReviewStatus `json:"review_status"`
	CoordinatorID       *string      `json:"coordinator_id,omitempty"`
	CoordinatorComments *string      `json:"coordinator_comments,omitempty"`
	ReviewedAt          *time.Time   `json:"reviewed_at,omitempty"`

	OverrideCategoryID *int64  `json:"override_category_id,omitempty"`
	OverrideHours      *int    `json:"override_hours,omitempty"`
	OverrideReasoning  *string `json:"override_reasoning,omitempty"`

	FinalCategoryID *int64    `json:"final_category_id,omitempty"`
	FinalHours      *int      `json:"final_hours,omitempty"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// ExtractedFields is the LLM field-extraction result. The Portuguese JSON
// keys are the wire contract with both the LLM reply and the bus payloads.
type ExtractedFields struct {
	NomeParticipante *string `json:"nome_participante"`
	Evento           *string `json:"evento"`
	Local            *string `json:"local"`
	Data             *string `json:"data"`
	CargaHoraria     *string `json:"carga_horaria"`
}
