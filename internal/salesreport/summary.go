package salesreport

import "math"

// Change compares a counter against the previous period.
type Change struct {
	Current  int     `json:"current"`
	Previous int     `json:"previous"`
	Delta    int     `json:"delta"`
	Percent  float64 `json:"percent"`
	// Comparable is false when there was no previous value to compare against.
	Comparable bool `json:"comparable"`
}

// Breakdown splits conversations by channel as percentages of their sum.
type Breakdown struct {
	OutboundPercent float64 `json:"outboundPercent"`
	InboundPercent  float64 `json:"inboundPercent"`
	EmailPercent    float64 `json:"emailPercent"`
	MeetingPercent  float64 `json:"meetingPercent"`
}

// Funnel expresses each stage as a percentage of all prospects.
type Funnel struct {
	ContactedPercent float64 `json:"contactedPercent"`
	QualifiedPercent float64 `json:"qualifiedPercent"`
	ProposalPercent  float64 `json:"proposalPercent"`
	ClosedWonPercent float64 `json:"closedWonPercent"`
}

// Summary holds the derived percentages shown next to the raw counters.
type Summary struct {
	ConversionRate float64           `json:"conversionRate"`
	Breakdown      Breakdown         `json:"breakdown"`
	Funnel         Funnel            `json:"funnel"`
	Changes        map[string]Change `json:"changes"`
}

// Summarize derives the conversion rate, breakdowns and period-over-period changes.
// previous may be nil when no comparison period was fetched.
func Summarize(current Counters, previous *Counters) Summary {
	activities := current.OutboundCalls + current.InboundCalls + current.EmailConversations + current.MeetingConversations

	s := Summary{
		ConversionRate: percent(current.ClosedWon, current.Prospects),
		Breakdown: Breakdown{
			OutboundPercent: percent(current.OutboundCalls, activities),
			InboundPercent:  percent(current.InboundCalls, activities),
			EmailPercent:    percent(current.EmailConversations, activities),
			MeetingPercent:  percent(current.MeetingConversations, activities),
		},
		Funnel: Funnel{
			ContactedPercent: percent(current.Contacted, current.Prospects),
			QualifiedPercent: percent(current.Qualified, current.Prospects),
			ProposalPercent:  percent(current.Proposal, current.Prospects),
			ClosedWonPercent: percent(current.ClosedWon, current.Prospects),
		},
		Changes: make(map[string]Change, 3),
	}

	var prev Counters
	if previous != nil {
		prev = *previous
	}
	s.Changes["callsMade"] = compare(current.CallsMade, prev.CallsMade)
	s.Changes["conversationsHad"] = compare(current.ConversationsHad, prev.ConversationsHad)
	s.Changes["appointmentsScheduled"] = compare(current.AppointmentsScheduled, prev.AppointmentsScheduled)
	return s
}

func compare(current, previous int) Change {
	c := Change{Current: current, Previous: previous, Delta: current - previous}
	if previous != 0 {
		c.Comparable = true
		c.Percent = round1(float64(c.Delta) / float64(previous) * 100)
	}
	return c
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round1(float64(part) / float64(whole) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
