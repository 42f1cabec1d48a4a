package domain

// Status is a certificate submission's position in the pipeline.
type Status string

const (
	StatusUploaded                 Status = "uploaded"
	StatusQueued                   Status = "queued"
	StatusOcrProcessing            Status = "ocr_processing"
	StatusMetadataProcessing       Status = "metadata_processing"
	StatusCategorizationProcessing Status = "categorization_processing"
	StatusPendingReview            Status = "pending_review"
	StatusApproved                 Status = "approved"
	StatusRejected                 Status = "rejected"
	StatusFailed                   Status = "failed"
)

// transitions is the permitted-successor table. Progression is monotonic;
// failed is reachable from any pipeline state and is terminal alongside
// approved and rejected.
var transitions = map[Status][]Status{
	StatusUploaded:                 {StatusQueued, StatusFailed},
	StatusQueued:                   {StatusOcrProcessing, StatusFailed},
	StatusOcrProcessing:            {StatusMetadataProcessing, StatusFailed},
	StatusMetadataProcessing:       {StatusCategorizationProcessing, StatusFailed},
	StatusCategorizationProcessing: {StatusPendingReview, StatusFailed},
	StatusPendingReview:            {StatusApproved, StatusRejected},
	StatusApproved:                 {},
	StatusRejected:                 {},
	StatusFailed:                   {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// Valid reports whether s is a known submission status.
func Valid(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// ReviewStatus is the coordinator decision state of an extracted activity.
type ReviewStatus string

// An overridden approval stays approved; the override_* fields on the
// activity record what changed.
const (
	ReviewPending  ReviewStatus = "pending_review"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)
