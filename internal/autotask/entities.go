package autotask

import "sort"

// Entities exposed read-only by this client.
const (
	EntityTickets       = "Tickets"
	EntityTimeEntries   = "TimeEntries"
	EntityCompanies     = "Companies"
	EntityContacts      = "Contacts"
	EntityTasks         = "Tasks"
	EntityOpportunities = "Opportunities"
	EntityAppointments  = "Appointments"
	EntityContracts     = "Contracts"
	EntityResources     = "Resources"
)

var entities = map[string]struct{}{
	EntityTickets:       {},
	EntityTimeEntries:   {},
	EntityCompanies:     {},
	EntityContacts:      {},
	EntityTasks:         {},
	EntityOpportunities: {},
	EntityAppointments:  {},
	EntityContracts:     {},
	EntityResources:     {},
}

// KnownEntity reports whether name is part of the catalogue.
func KnownEntity(name string) bool {
	_, ok := entities[name]
	return ok
}

// Entities returns the catalogue sorted by name.
func Entities() []string {
	out := make([]string, 0, len(entities))
	for name := range entities {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
