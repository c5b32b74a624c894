// Package ticketreport computes the service-desk scorecard from provider tickets.
package ticketreport

import (
	"errors"
	"math"
	"time"

	"github.com/totalcareit/partner-metrics/internal/daterange"
	"github.com/totalcareit/partner-metrics/internal/utils"
)

var errMissing = errors.New("missing timestamp")

// StaleAfterDays is the age, in whole days, beyond which a ticket counts as stale.
const StaleAfterDays = 7

// Ticket is the subset of the Tickets entity the scorecard reads.
type Ticket struct {
	ID            *int64  `json:"id"`
	TicketNumber  *string `json:"ticketNumber"`
	Title         *string `json:"title"`
	Status        *int    `json:"status"`
	QueueID       *int64  `json:"queueID"`
	CreateDate    *string `json:"createDate"`
	CompletedDate *string `json:"completedDate"`
}

// Context carries the window the tickets were fetched for.
type Context struct {
	Window daterange.DateRange
	// Now caps the age of still-open tickets when the window ends in the future.
	Now      time.Time
	Location *time.Location
}

// Scorecard is the provider-agnostic ticket summary.
type Scorecard struct {
	TicketsOpened       int     `json:"ticketsOpened"`
	TicketsClosed       int     `json:"ticketsClosed"`
	TicketsOver7Days    int     `json:"ticketsOver7Days"`
	SameDayClosed       int     `json:"sameDayClosed"`
	SameDayClosePercent float64 `json:"sameDayClosePercent"`
	AvgResolutionHours  float64 `json:"avgResolutionHours"`
	ResolvedCount       int     `json:"resolvedCount"`
}

// Calculate summarises tickets created inside ctx.Window. Tickets with unreadable
// timestamps only count towards TicketsOpened.
func Calculate(tickets []Ticket, ctx Context) Scorecard {
	loc := ctx.Location
	if loc == nil {
		loc = time.UTC
	}
	asOf := ctx.Window.End
	if !ctx.Now.IsZero() && (asOf.IsZero() || ctx.Now.Before(asOf)) {
		asOf = ctx.Now
	}

	card := Scorecard{TicketsOpened: len(tickets)}
	var resolutionHours float64
	for _, t := range tickets {
		created, createdErr := parse(t.CreateDate, loc)
		completed, completedErr := parse(t.CompletedDate, loc)
		closed := completedErr == nil

		if closed && ctx.Window.Contains(completed) {
			card.TicketsClosed++
		}
		if createdErr != nil {
			continue
		}
		if closed {
			if sameDay(created.In(loc), completed.In(loc)) {
				card.SameDayClosed++
			}
			if wholeDays(completed.Sub(created)) > StaleAfterDays {
				card.TicketsOver7Days++
			}
			resolutionHours += completed.Sub(created).Hours()
			card.ResolvedCount++
			continue
		}
		if !asOf.IsZero() && wholeDays(asOf.Sub(created)) > StaleAfterDays {
			card.TicketsOver7Days++
		}
	}

	if card.TicketsOpened > 0 {
		card.SameDayClosePercent = round1(float64(card.SameDayClosed) / float64(card.TicketsOpened) * 100)
	}
	if card.ResolvedCount > 0 {
		card.AvgResolutionHours = round1(resolutionHours / float64(card.ResolvedCount))
	}
	return card
}

func parse(value *string, loc *time.Location) (time.Time, error) {
	if value == nil {
		return time.Time{}, errMissing
	}
	return utils.ParseTimestamp(*value, loc)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
