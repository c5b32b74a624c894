package autotask

import (
	"context"

	"github.com/totalcareit/partner-metrics/internal/daterange"
	"github.com/totalcareit/partner-metrics/internal/ticketreport"
)

// TicketDateField is the field ticket reports are windowed on.
const TicketDateField = "createDate"

// FetchTickets returns the tickets created inside r, restricted to the configured
// queue when one is set. Only the first page of up to 500 records is read.
func (c *Client) FetchTickets(ctx context.Context, r daterange.DateRange) ([]ticketreport.Ticket, error) {
	return queryItems[ticketreport.Ticket](ctx, c, EntityTickets, TicketFilter(r, c.queueID))
}

// TicketFilter matches tickets created inside r, optionally in one queue.
func TicketFilter(r daterange.DateRange, queueID int64) *Filter {
	f := DateRangeFilter(TicketDateField, r)
	if queueID > 0 {
		f.Conditions = append([]Condition{{Field: "queueID", Op: OpEq, Value: queueID}}, f.Conditions...)
	}
	f.MaxRecords = 500
	return f
}
