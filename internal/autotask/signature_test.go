package autotask

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/totalcareit/partner-metrics/internal/daterange"
	"github.com/totalcareit/partner-metrics/internal/utils"
)

func TestSignatureIgnoresKeyOrder(t *testing.T) {
	a, err := Signature("Tickets/query", json.RawMessage(`{"filter":[{"field":"status","op":"eq","value":1}],"MaxRecords":50}`))
	if err != nil {
		t.Fatalf("signature a: %v", err)
	}
	b, err := Signature("Tickets/query", json.RawMessage(`{"MaxRecords":50,"filter":[{"value":1,"op":"eq","field":"status"}]}`))
	if err != nil {
		t.Fatalf("signature b: %v", err)
	}
	if a != b {
		t.Fatalf("signatures differ:\n%s\n%s", a, b)
	}

	typed, err := Signature("Tickets/query", &Filter{Conditions: []Condition{{Field: "status", Op: OpEq, Value: 1}}, MaxRecords: 50})
	if err != nil {
		t.Fatalf("typed signature: %v", err)
	}
	if typed != a {
		t.Fatalf("typed filter should share the signature:\n%s\n%s", typed, a)
	}
}

func TestSignatureDistinguishesEndpointAndFilter(t *testing.T) {
	filter := map[string]any{"filter": []any{map[string]any{"field": "id", "op": "gt", "value": 0}}}
	tickets, _ := Signature("Tickets/query", filter)
	contacts, _ := Signature("Contacts/query", filter)
	if tickets == contacts {
		t.Fatalf("different endpoints must not share a signature")
	}
	other, _ := Signature("Tickets/query", map[string]any{"filter": []any{map[string]any{"field": "id", "op": "gt", "value": 1}}})
	if tickets == other {
		t.Fatalf("different filters must not share a signature")
	}
	if !strings.HasPrefix(tickets, "Tickets/query_") {
		t.Fatalf("unexpected signature shape %s", tickets)
	}
}

func TestSignatureKeepsLargeIntegersDistinct(t *testing.T) {
	a, err := Signature("Tickets/query", &Filter{Conditions: []Condition{{Field: "id", Op: OpEq, Value: int64(9007199254740993)}}})
	if err != nil {
		t.Fatalf("signature a: %v", err)
	}
	b, err := Signature("Tickets/query", &Filter{Conditions: []Condition{{Field: "id", Op: OpEq, Value: int64(9007199254740992)}}})
	if err != nil {
		t.Fatalf("signature b: %v", err)
	}
	if a == b {
		t.Fatalf("ids above 2^53 must not share a signature: %s", a)
	}
	if !strings.Contains(a, "9007199254740993") {
		t.Fatalf("id should appear verbatim in %s", a)
	}
}

func TestSignatureRejectsUnencodableFilter(t *testing.T) {
	if _, err := Signature("Tickets/query", map[string]any{"bad": make(chan int)}); err == nil {
		t.Fatalf("expected error for unencodable filter")
	}
}

func TestDateRangeFilterUsesInclusiveBounds(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	r, err := daterange.Resolve(daterange.LastMonth, time.Date(2025, 3, 10, 9, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	f := DateRangeFilter("createDate", r)
	if len(f.Conditions) != 2 {
		t.Fatalf("expected two conditions, got %d", len(f.Conditions))
	}
	if f.Conditions[0].Op != OpGte || f.Conditions[0].Value != "2025-02-01T05:00:00.000Z" {
		t.Fatalf("unexpected lower bound %+v", f.Conditions[0])
	}
	if f.Conditions[1].Op != OpLte || f.Conditions[1].Value != utils.FormatISO(r.End) {
		t.Fatalf("unexpected upper bound %+v", f.Conditions[1])
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("date range filter should validate: %v", err)
	}
}

func TestFilterValidate(t *testing.T) {
	var nilFilter *Filter
	if err := nilFilter.Validate(); err != nil {
		t.Fatalf("nil filter is valid: %v", err)
	}
	grouped := &Filter{Conditions: []Condition{{Op: OpOr, Items: []Condition{
		{Field: "status", Op: OpEq, Value: 1},
		{Field: "status", Op: OpEq, Value: 2},
	}}}}
	if err := grouped.Validate(); err != nil {
		t.Fatalf("grouped filter should validate: %v", err)
	}
	if err := (&Filter{Conditions: []Condition{{Op: OpAnd}}}).Validate(); !utils.IsKind(err, utils.KindInvalidArgument) {
		t.Fatalf("expected invalid argument for empty group, got %v", err)
	}
	if err := (&Filter{MaxRecords: 501}).Validate(); !utils.IsKind(err, utils.KindInvalidArgument) {
		t.Fatalf("expected invalid argument for MaxRecords, got %v", err)
	}
}

func TestEntityCatalogue(t *testing.T) {
	names := Entities()
	if len(names) != 9 || names[0] != EntityAppointments {
		t.Fatalf("unexpected catalogue %v", names)
	}
	if KnownEntity("Invoices") {
		t.Fatalf("Invoices is not exposed")
	}
}
