package salesreport

import "time"

// Display caps for the two sequences.
const (
	MaxUpcomingAppointments = 4
	MaxRecentActivity       = 10
)

// Counters holds every named counter of a MetricsRecord. Fields are plain ints so an
// absent provider field can only ever surface as zero.
type Counters struct {
	CallsMade             int `json:"callsMade"`
	ConversationsHad      int `json:"conversationsHad"`
	AppointmentsScheduled int `json:"appointmentsScheduled"`
	OutboundCalls         int `json:"outboundCalls"`
	InboundCalls          int `json:"inboundCalls"`
	EmailConversations    int `json:"emailConversations"`
	MeetingConversations  int `json:"meetingConversations"`
	Prospects             int `json:"prospects"`
	Contacted             int `json:"contacted"`
	Qualified             int `json:"qualified"`
	Proposal              int `json:"proposal"`
	ClosedWon             int `json:"closedWon"`
}

// Map flattens the counters into name → value.
func (c Counters) Map() map[string]int {
	return map[string]int{
		"callsMade":             c.CallsMade,
		"conversationsHad":      c.ConversationsHad,
		"appointmentsScheduled": c.AppointmentsScheduled,
		"outboundCalls":         c.OutboundCalls,
		"inboundCalls":          c.InboundCalls,
		"emailConversations":    c.EmailConversations,
		"meetingConversations":  c.MeetingConversations,
		"prospects":             c.Prospects,
		"contacted":             c.Contacted,
		"qualified":             c.Qualified,
		"proposal":              c.Proposal,
		"closedWon":             c.ClosedWon,
	}
}

// UpcomingAppointment is a future calendar entry ready for display.
type UpcomingAppointment struct {
	StartsAt time.Time `json:"startsAt"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	Contact  string    `json:"contact"`
	Type     string    `json:"type"`
	Notes    string    `json:"notes"`
}

// ActivityEntry is one row of the recent-activity table.
type ActivityEntry struct {
	CreatedAt time.Time `json:"createdAt"`
	DateTime  string    `json:"datetime"`
	Type      Category  `json:"type"`
	Direction Direction `json:"direction,omitempty"`
	Contact   string    `json:"contact"`
	Duration  string    `json:"duration"`
	Outcome   string    `json:"outcome"`
	NextSteps string    `json:"nextSteps"`
}

// MetricsRecord is the provider-agnostic output of the adapter.
type MetricsRecord struct {
	Counters             Counters              `json:"counters"`
	UpcomingAppointments []UpcomingAppointment `json:"upcomingAppointments"`
	RecentActivity       []ActivityEntry       `json:"recentActivity"`
}

// Context carries the values a transformation depends on besides the payload.
type Context struct {
	// Now decides which appointments are upcoming.
	Now time.Time
	// Location is used for display strings; defaults to Now's location.
	Location *time.Location
}
