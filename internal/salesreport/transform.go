package salesreport

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/totalcareit/partner-metrics/internal/utils"
)

// Transform reshapes a raw provider payload into a MetricsRecord. It never fails: missing
// collections or fields contribute zero counts and empty sequences, and the input slices
// are left untouched.
func Transform(raw RawPayload, ctx Context) MetricsRecord {
	loc := ctx.Location
	if loc == nil {
		loc = ctx.Now.Location()
	}

	record := MetricsRecord{
		Counters:             countAll(raw),
		UpcomingAppointments: upcomingAppointments(upcomingSource(raw), ctx.Now, loc),
		RecentActivity:       recentActivity(raw.Activities, loc),
	}
	return record
}

func countAll(raw RawPayload) Counters {
	var c Counters

	for _, a := range raw.Activities {
		switch Classify(a.ActionType) {
		case CategoryPhoneCall:
			c.CallsMade++
			switch CallDirection(a) {
			case DirectionOutbound:
				c.OutboundCalls++
			case DirectionInbound:
				c.InboundCalls++
			}
		case CategoryMeeting:
			c.MeetingConversations++
		case CategoryEmail:
			c.EmailConversations++
		}
	}
	c.ConversationsHad = c.CallsMade + c.MeetingConversations
	c.AppointmentsScheduled = len(raw.Appointments)

	c.Prospects = len(raw.Opportunities)
	for _, o := range raw.Opportunities {
		stage := intOr(o.Stage, 0)
		if stage >= StageContacted {
			c.Contacted++
		}
		if stage >= StageQualified {
			c.Qualified++
		}
		if stage >= StageProposal {
			c.Proposal++
		}
		if stage == StageClosedWon {
			c.ClosedWon++
		}
	}
	return c
}

func upcomingSource(raw RawPayload) []Appointment {
	if raw.Upcoming != nil {
		return raw.Upcoming
	}
	return raw.Appointments
}

func upcomingAppointments(appointments []Appointment, now time.Time, loc *time.Location) []UpcomingAppointment {
	type dated struct {
		start time.Time
		apt   Appointment
	}
	future := make([]dated, 0, len(appointments))
	for _, apt := range appointments {
		start, err := utils.ParseTimestamp(str(apt.StartDateTime), loc)
		if err != nil || start.Before(now) {
			continue
		}
		future = append(future, dated{start: start, apt: apt})
	}
	sort.SliceStable(future, func(i, j int) bool { return future[i].start.Before(future[j].start) })
	if len(future) > MaxUpcomingAppointments {
		future = future[:MaxUpcomingAppointments]
	}

	out := make([]UpcomingAppointment, 0, len(future))
	for _, d := range future {
		local := d.start.In(loc)
		out = append(out, UpcomingAppointment{
			StartsAt: d.start,
			Date:     local.Format("2006-01-02"),
			Time:     local.Format("3:04 PM"),
			Contact:  orDefault(str(d.apt.CompanyName), "Unknown"),
			Type:     orDefault(str(d.apt.Title), "Meeting"),
			Notes:    str(d.apt.Description),
		})
	}
	return out
}

func recentActivity(activities []Activity, loc *time.Location) []ActivityEntry {
	type dated struct {
		created time.Time
		act     Activity
	}
	rows := make([]dated, 0, len(activities))
	for _, a := range activities {
		created, _ := utils.ParseTimestamp(str(a.CreateDateTime), loc)
		rows = append(rows, dated{created: created, act: a})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].created.After(rows[j].created) })
	if len(rows) > MaxRecentActivity {
		rows = rows[:MaxRecentActivity]
	}

	out := make([]ActivityEntry, 0, len(rows))
	for _, r := range rows {
		category := Classify(r.act.ActionType)
		entry := ActivityEntry{
			CreatedAt: r.created,
			Type:      category,
			Contact:   orDefault(str(r.act.CompanyName), "Unknown"),
			Duration:  formatDuration(r.act.HoursToComplete),
			Outcome:   OutcomeText(r.act.Status),
			NextSteps: orDefault(str(r.act.Title), "-"),
		}
		if !r.created.IsZero() {
			entry.DateTime = r.created.In(loc).Format("01/02/2006, 3:04 PM")
		}
		if category == CategoryPhoneCall {
			entry.Direction = CallDirection(r.act)
		}
		out = append(out, entry)
	}
	return out
}

func formatDuration(hours *float64) string {
	if hours == nil || *hours == 0 {
		return "-"
	}
	return fmt.Sprintf("%d min", int(math.Round(*hours*60)))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
