package salesreport

// RawPayload is the provider response set the adapter consumes. A nil slice means the
// provider returned nothing (or the fetch failed) for that collection.
type RawPayload struct {
	Opportunities []Opportunity `json:"opportunities"`
	Activities    []Activity    `json:"activities"`
	Appointments  []Appointment `json:"appointments"`
	// Upcoming, when set, feeds the upcoming-appointments list instead of Appointments,
	// whose window usually ends before now.
	Upcoming []Appointment `json:"upcoming,omitempty"`
}

// Opportunity is a pipeline item as returned by the Opportunities entity.
type Opportunity struct {
	ID         *int64   `json:"id"`
	Title      *string  `json:"title"`
	Stage      *int     `json:"stage"`
	Status     *int     `json:"status"`
	Amount     *float64 `json:"amount"`
	CreateDate *string  `json:"createDate"`
}

// Activity is a call, email, meeting, note or to-do record.
type Activity struct {
	ID              *int64   `json:"id"`
	ActionType      *int     `json:"actionType"`
	Direction       *int     `json:"direction"`
	Description     *string  `json:"description"`
	Title           *string  `json:"title"`
	CompanyName     *string  `json:"companyName"`
	Status          *int     `json:"status"`
	HoursToComplete *float64 `json:"hoursToComplete"`
	CreateDateTime  *string  `json:"createDateTime"`
}

// Appointment is a scheduled calendar entry.
type Appointment struct {
	ID            *int64  `json:"id"`
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	CompanyName   *string `json:"companyName"`
	StartDateTime *string `json:"startDateTime"`
	EndDateTime   *string `json:"endDateTime"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
