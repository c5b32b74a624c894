package salesreport

import "time"

// SampleRecord returns the static dataset shown when no provider data is available.
// Appointment and activity dates are laid out relative to now so the sample never looks stale.
func SampleRecord(now time.Time) (current MetricsRecord, previous Counters) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	at := func(days, hour, minute int) time.Time {
		return day.AddDate(0, 0, days).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	appointments := []UpcomingAppointment{
		sampleAppointment(at(1, 10, 0), "ABC Manufacturing", "Discovery Call", "Initial consultation about AI automation"),
		sampleAppointment(at(1, 14, 0), "XYZ Solutions", "Proposal Review", "Present custom AI solution proposal"),
		sampleAppointment(at(2, 11, 30), "Tech Innovators Inc", "Demo", "Live demo of workflow automation"),
		sampleAppointment(at(2, 15, 0), "Global Services Ltd", "Follow-up", "Follow up on previous meeting"),
	}
	activity := []ActivityEntry{
		sampleActivity(at(0, 16, 30).AddDate(0, 0, -1), CategoryPhoneCall, DirectionOutbound, "John Smith - ABC Manufacturing", "23 min", "Qualified", "Send proposal by Friday"),
		sampleActivity(at(0, 14, 15).AddDate(0, 0, -1), CategoryEmail, "", "Sarah Johnson - XYZ Solutions", "-", "Meeting Scheduled", "Prepare demo for next week"),
		sampleActivity(at(0, 11, 0).AddDate(0, 0, -1), CategoryMeeting, "", "Michael Chen - Tech Innovators", "45 min", "Qualified", "Technical requirements review"),
	}

	current = MetricsRecord{
		Counters: Counters{
			CallsMade:             127,
			ConversationsHad:      89,
			AppointmentsScheduled: 34,
			OutboundCalls:         98,
			InboundCalls:          29,
			EmailConversations:    45,
			MeetingConversations:  44,
			Prospects:             250,
			Contacted:             195,
			Qualified:             78,
			Proposal:              42,
			ClosedWon:             18,
		},
		UpcomingAppointments: appointments,
		RecentActivity:       activity,
	}
	previous = Counters{CallsMade: 112, ConversationsHad: 76, AppointmentsScheduled: 28}
	return current, previous
}

func sampleAppointment(start time.Time, contact, kind, notes string) UpcomingAppointment {
	return UpcomingAppointment{
		StartsAt: start,
		Date:     start.Format("2006-01-02"),
		Time:     start.Format("3:04 PM"),
		Contact:  contact,
		Type:     kind,
		Notes:    notes,
	}
}

func sampleActivity(created time.Time, category Category, dir Direction, contact, duration, outcome, next string) ActivityEntry {
	return ActivityEntry{
		CreatedAt: created,
		DateTime:  created.Format("01/02/2006, 3:04 PM"),
		Type:      category,
		Direction: dir,
		Contact:   contact,
		Duration:  duration,
		Outcome:   outcome,
		NextSteps: next,
	}
}
