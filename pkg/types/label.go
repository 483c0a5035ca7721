package types

import "strings"

// Label is an email intent classification produced by the model.
type Label string

const (
	LabelInterested    Label = "Interested"
	LabelMeetingBooked Label = "Meeting Booked"
	LabelNotInterested Label = "Not Interested"
	LabelSpam          Label = "Spam"
	LabelOutOfOffice   Label = "Out of Office"

	// LabelUncategorized marks the absence of a usable label. It is never
	// persisted as a category value.
	LabelUncategorized Label = "Uncategorized"
)

// Labels is the fixed set of persistable classification labels.
var Labels = []Label{
	LabelInterested,
	LabelMeetingBooked,
	LabelNotInterested,
	LabelSpam,
	LabelOutOfOffice,
}

// ParseLabel matches s against the fixed label set, ignoring surrounding
// whitespace. Anything that does not match exactly is treated as absent.
func ParseLabel(s string) (Label, bool) {
	trimmed := strings.TrimSpace(s)
	for _, l := range Labels {
		if string(l) == trimmed {
			return l, true
		}
	}
	return LabelUncategorized, false
}

// String returns the label as a plain string.
func (l Label) String() string {
	return string(l)
}
