package crowd

// Status is the lifecycle state of a record, stored as text in the
// dataset's status field.
type Status string

const (
	StatusEmpty    Status = ""
	StatusDraft    Status = "Draft"
	StatusWorking  Status = "Working"
	StatusFinished Status = "Finished"
	StatusManual   Status = "Manual"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
	StatusError    Status = "Error"
)

func (s Status) String() string {
	if s == StatusEmpty {
		return "Empty"
	}
	return string(s)
}
