// Command mock-autotask serves canned Autotask REST responses for local development.
// Point autotask.zoneInfoURL at http://localhost:8090/ATServicesRest/V1.0/zoneInformation.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type opportunity struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Stage      int     `json:"stage"`
	Status     int     `json:"status"`
	Amount     float64 `json:"amount"`
	CreateDate string  `json:"createDate"`
}

type task struct {
	ID              int64   `json:"id"`
	ActionType      int     `json:"actionType"`
	Direction       int     `json:"direction,omitempty"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	CompanyName     string  `json:"companyName"`
	Status          int     `json:"status"`
	HoursToComplete float64 `json:"hoursToComplete"`
	CreateDateTime  string  `json:"createDateTime"`
}

type appointment struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	CompanyName   string `json:"companyName"`
	StartDateTime string `json:"startDateTime"`
	EndDateTime   string `json:"endDateTime"`
}

type ticket struct {
	ID            int64   `json:"id"`
	TicketNumber  string  `json:"ticketNumber"`
	Title         string  `json:"title"`
	Status        int     `json:"status"`
	QueueID       int64   `json:"queueID"`
	CreateDate    string  `json:"createDate"`
	CompletedDate *string `json:"completedDate"`
}

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With(slog.String("component", "mock-autotask"))
	public := "http://localhost" + *addr

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/ATServicesRest/V1.0", func(r chi.Router) {
		r.Get("/zoneInformation", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("user") == "" {
				http.Error(w, "user is required", http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{
				"zoneName": "Mock Zone",
				"url":      public + "/ATServicesRest/",
				"webUrl":   public + "/",
			})
		})
		r.Group(func(r chi.Router) {
			r.Use(requireCredentials)
			r.Post("/{entity}/query", func(w http.ResponseWriter, r *http.Request) {
				items, ok := sampleItems(chi.URLParam(r, "entity"), time.Now().UTC())
				if !ok {
					writeJSON(w, http.StatusNotFound, map[string]any{"errors": []string{"unknown entity"}})
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{
					"items":       items,
					"pageDetails": map[string]any{"count": len(items), "nextPageUrl": nil},
				})
			})
			r.Get("/{entity}/{id}", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{
					"item": map[string]any{"id": chi.URLParam(r, "id"), "entity": chi.URLParam(r, "entity")},
				})
			})
		})
	})

	srv := &http.Server{Addr: *addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("listening", slog.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func requireCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range []string{"UserName", "Secret", "ApiIntegrationcode"} {
			if r.Header.Get(h) == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"errors": []string{"missing " + h + " header"}})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func sampleItems(entity string, now time.Time) (any, bool) {
	at := func(d time.Duration) string { return now.Add(d).Format(time.RFC3339) }
	switch entity {
	case "Opportunities":
		return []opportunity{
			{ID: 1, Title: "Managed services renewal", Stage: 1, Status: 1, Amount: 12000, CreateDate: at(-72 * time.Hour)},
			{ID: 2, Title: "Firewall refresh", Stage: 2, Status: 1, Amount: 8500, CreateDate: at(-48 * time.Hour)},
			{ID: 3, Title: "Backup upgrade", Stage: 3, Status: 1, Amount: 4300, CreateDate: at(-24 * time.Hour)},
			{ID: 4, Title: "M365 migration", Stage: 5, Status: 2, Amount: 21000, CreateDate: at(-6 * time.Hour)},
		}, true
	case "Tasks":
		items := make([]task, 0, 8)
		for i := 0; i < 8; i++ {
			items = append(items, task{
				ID:              int64(100 + i),
				ActionType:      []int{4, 4, 3, 6, 7, 1, 2, 5}[i],
				Direction:       []int{1, 2, 0, 0, 0, 0, 0, 0}[i],
				Title:           fmt.Sprintf("Follow-up %d", i+1),
				Description:     "Outbound call with prospect",
				CompanyName:     "Contoso Ltd",
				Status:          []int{5, 5, 5, 1, 5, 5, 1, 5}[i],
				HoursToComplete: 0.25 * float64(i+1),
				CreateDateTime:  at(-time.Duration(i+1) * 3 * time.Hour),
			})
		}
		return items, true
	case "Appointments":
		return []appointment{
			{ID: 200, Title: "Discovery call", CompanyName: "Fabrikam", StartDateTime: at(26 * time.Hour), EndDateTime: at(27 * time.Hour)},
			{ID: 201, Title: "Quarterly review", CompanyName: "Contoso Ltd", StartDateTime: at(50 * time.Hour), EndDateTime: at(51 * time.Hour)},
			{ID: 202, Title: "Kickoff", CompanyName: "Northwind", StartDateTime: at(-20 * time.Hour), EndDateTime: at(-19 * time.Hour)},
		}, true
	case "Tickets":
		done := func(d time.Duration) *string { v := at(d); return &v }
		return []ticket{
			{ID: 300, TicketNumber: "T20251020.0001", Title: "Printer offline", Status: 5, QueueID: 29683, CreateDate: at(-30 * time.Hour), CompletedDate: done(-28 * time.Hour)},
			{ID: 301, TicketNumber: "T20251021.0004", Title: "VPN drops", Status: 5, QueueID: 29683, CreateDate: at(-26 * time.Hour), CompletedDate: done(-2 * time.Hour)},
			{ID: 302, TicketNumber: "T20251022.0002", Title: "New starter laptop", Status: 1, QueueID: 29683, CreateDate: at(-5 * time.Hour)},
			{ID: 303, TicketNumber: "T20251010.0007", Title: "Mailbox quota", Status: 8, QueueID: 29684, CreateDate: at(-9 * 24 * time.Hour)},
		}, true
	case "TimeEntries", "Companies", "Contacts", "Contracts", "Resources":
		return []any{}, true
	default:
		return nil, false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
