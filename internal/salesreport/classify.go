package salesreport

import "strings"

// Category is the display classification of an activity record.
type Category string

const (
	CategoryNote            Category = "Note"
	CategoryToDo            Category = "To-Do"
	CategoryEmail           Category = "Email"
	CategoryPhoneCall       Category = "Phone Call"
	CategoryInternalMeeting Category = "Internal Meeting"
	CategoryMeeting         Category = "Meeting"
	CategoryExternalMeeting Category = "External Meeting"
	CategoryActivity        Category = "Activity"
)

// Provider action type codes.
const (
	ActionNote            = 1
	ActionToDo            = 2
	ActionEmail           = 3
	ActionPhoneCall       = 4
	ActionInternalMeeting = 5
	ActionMeeting         = 6
	ActionExternalMeeting = 7
)

var categories = map[int]Category{
	ActionNote:            CategoryNote,
	ActionToDo:            CategoryToDo,
	ActionEmail:           CategoryEmail,
	ActionPhoneCall:       CategoryPhoneCall,
	ActionInternalMeeting: CategoryInternalMeeting,
	ActionMeeting:         CategoryMeeting,
	ActionExternalMeeting: CategoryExternalMeeting,
}

// Classify maps an action type code to its category. Unknown or missing codes are
// reported as the generic CategoryActivity.
func Classify(actionType *int) Category {
	if actionType == nil {
		return CategoryActivity
	}
	if c, ok := categories[*actionType]; ok {
		return c
	}
	return CategoryActivity
}

// Direction of a phone call.
type Direction string

const (
	DirectionUnknown  Direction = ""
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

const (
	directionCodeOutbound = 1
	directionCodeInbound  = 2
)

// CallDirection prefers the explicit direction code. Without one it falls back to a
// case-insensitive search for "outbound" or "inbound" in the description.
func CallDirection(a Activity) Direction {
	if a.Direction != nil {
		switch *a.Direction {
		case directionCodeOutbound:
			return DirectionOutbound
		case directionCodeInbound:
			return DirectionInbound
		}
	}
	desc := strings.ToLower(str(a.Description))
	switch {
	case strings.Contains(desc, "outbound"):
		return DirectionOutbound
	case strings.Contains(desc, "inbound"):
		return DirectionInbound
	}
	return DirectionUnknown
}

var outcomes = map[int]string{
	1: "New",
	2: "In Progress",
	3: "Qualified",
	4: "Meeting Scheduled",
	5: "Closed Won",
}

// OutcomeText renders an activity status. Records without a status are still in progress.
func OutcomeText(status *int) string {
	if status == nil {
		return "In Progress"
	}
	if text, ok := outcomes[*status]; ok {
		return text
	}
	return "Unknown"
}

// Funnel stage thresholds. Stage 4 deliberately has no bucket of its own.
const (
	StageContacted = 1
	StageQualified = 2
	StageProposal  = 3
	StageClosedWon = 5
)
