package autotask

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/totalcareit/partner-metrics/internal/daterange"
	"github.com/totalcareit/partner-metrics/internal/salesreport"
	"github.com/totalcareit/partner-metrics/internal/utils"
)

// Date fields each sales collection is filtered on.
const (
	OpportunityDateField = "createDate"
	ActivityDateField    = "createDateTime"
	AppointmentDateField = "startDateTime"
)

// UpcomingDays is how far ahead the upcoming-appointments query looks.
const UpcomingDays = 30

type queryResponse[T any] struct {
	Items       []T `json:"items"`
	PageDetails struct {
		Count       int    `json:"count"`
		NextPageURL string `json:"nextPageUrl"`
	} `json:"pageDetails"`
}

// FetchSalesData runs the opportunity, activity and appointment queries for r
// concurrently, plus one appointment query over the next UpcomingDays days starting at
// today's midnight. A failed query leaves its collection nil; the other collections are
// still returned together with the joined error.
func (c *Client) FetchSalesData(ctx context.Context, r daterange.DateRange) (salesreport.RawPayload, error) {
	var (
		raw  salesreport.RawPayload
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		items, err := queryItems[salesreport.Opportunity](ctx, c, EntityOpportunities, DateRangeFilter(OpportunityDateField, r))
		if err != nil {
			record(err)
			return
		}
		raw.Opportunities = items
	}()
	go func() {
		defer wg.Done()
		items, err := queryItems[salesreport.Activity](ctx, c, EntityTasks, DateRangeFilter(ActivityDateField, r))
		if err != nil {
			record(err)
			return
		}
		raw.Activities = items
	}()
	go func() {
		defer wg.Done()
		items, err := queryItems[salesreport.Appointment](ctx, c, EntityAppointments, DateRangeFilter(AppointmentDateField, r))
		if err != nil {
			record(err)
			return
		}
		raw.Appointments = items
	}()
	go func() {
		defer wg.Done()
		items, err := queryItems[salesreport.Appointment](ctx, c, EntityAppointments, DateRangeFilter(AppointmentDateField, c.upcomingWindow(r)))
		if err != nil {
			record(err)
			return
		}
		raw.Upcoming = items
	}()
	wg.Wait()

	return raw, errors.Join(errs...)
}

func queryItems[T any](ctx context.Context, c *Client, entity string, filter *Filter) ([]T, error) {
	data, err := c.Query(ctx, entity, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entity, err)
	}
	var resp queryResponse[T]
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, utils.NewAppError(utils.KindMalformed, "autotask."+entity, "decode query response", err)
	}
	if resp.PageDetails.NextPageURL != "" {
		c.logger.Warn("autotask query truncated to first page",
			slog.String("entity", entity),
			slog.Int("count", resp.PageDetails.Count))
	}
	if resp.Items == nil {
		resp.Items = []T{}
	}
	return resp.Items, nil
}

// upcomingWindow starts at midnight so the query, and its cache key, stay stable
// through the day.
func (c *Client) upcomingWindow(r daterange.DateRange) daterange.DateRange {
	loc := r.Start.Location()
	now := c.clock.Now().In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return daterange.DateRange{Start: start, End: start.AddDate(0, 0, UpcomingDays).Add(-time.Millisecond)}
}
