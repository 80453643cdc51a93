package tracker

// Category is the classification label assigned to an email.
type Category string

const (
	CategoryApplicationConfirmation Category = "application_confirmation"
	CategoryRejection               Category = "rejection"
	CategoryInterviewInvitation     Category = "interview_invitation"
	CategoryOffer                   Category = "offer"
	CategoryFollowUp                Category = "follow_up"
	CategoryUnknown                 Category = "unknown"
)

// Status is the application state stored by the tracking backend.
type Status string

const (
	StatusApplied   Status = "Applied"
	StatusRejected  Status = "Rejected"
	StatusInterview Status = "Interview"
	StatusOffer     Status = "Offer"
)

var statuses = map[Category]Status{
	CategoryApplicationConfirmation: StatusApplied,
	CategoryRejection:               StatusRejected,
	CategoryInterviewInvitation:     StatusInterview,
	CategoryOffer:                   StatusOffer,
	CategoryFollowUp:                StatusApplied,
	CategoryUnknown:                 StatusApplied,
}

// Categories lists every category in classification priority order, unknown last.
func Categories() []Category {
	return []Category{
		CategoryOffer,
		CategoryInterviewInvitation,
		CategoryRejection,
		CategoryApplicationConfirmation,
		CategoryFollowUp,
		CategoryUnknown,
	}
}

// StatusFor maps a category to its application status.
// Values outside the known set are treated as unknown.
func StatusFor(c Category) Status {
	if status, ok := statuses[c]; ok {
		return status
	}
	return StatusApplied
}

// ParseCategory returns the category named by s.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	_, ok := statuses[c]
	return c, ok
}

func (c Category) String() string {
	return string(c)
}
