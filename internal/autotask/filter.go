package autotask

import (
	"github.com/totalcareit/partner-metrics/internal/daterange"
	"github.com/totalcareit/partner-metrics/internal/utils"
)

// Filter operators understood by the query endpoints.
const (
	OpEq       = "eq"
	OpNotEq    = "noteq"
	OpGt       = "gt"
	OpGte      = "gte"
	OpLt       = "lt"
	OpLte      = "lte"
	OpContains = "contains"
	OpIn       = "in"
	OpExist    = "exist"
	OpAnd      = "and"
	OpOr       = "or"
)

// Condition is one clause of a query filter. Grouping operators (and/or) carry Items
// instead of a field.
type Condition struct {
	Op    string      `json:"op"`
	Field string      `json:"field,omitempty"`
	Value any         `json:"value,omitempty"`
	Items []Condition `json:"items,omitempty"`
}

// Filter is the JSON body posted to an entity's query endpoint.
type Filter struct {
	Conditions    []Condition `json:"filter"`
	IncludeFields []string    `json:"IncludeFields,omitempty"`
	MaxRecords    int         `json:"MaxRecords,omitempty"`
}

// Validate rejects conditions the API would refuse.
func (f *Filter) Validate() error {
	if f == nil {
		return nil
	}
	if f.MaxRecords < 0 || f.MaxRecords > 500 {
		return utils.InvalidArgument("autotask.filter", "MaxRecords must be between 0 and 500")
	}
	return validateConditions(f.Conditions)
}

func validateConditions(conditions []Condition) error {
	for _, c := range conditions {
		switch c.Op {
		case OpAnd, OpOr:
			if len(c.Items) == 0 {
				return utils.InvalidArgument("autotask.filter", c.Op+" condition without items")
			}
			if err := validateConditions(c.Items); err != nil {
				return err
			}
		case "":
			return utils.InvalidArgument("autotask.filter", "condition without operator")
		default:
			if c.Field == "" {
				return utils.InvalidArgument("autotask.filter", "condition "+c.Op+" without field")
			}
		}
	}
	return nil
}

// DateRangeFilter matches records whose field falls inside r, bounds inclusive.
func DateRangeFilter(field string, r daterange.DateRange) *Filter {
	var conditions []Condition
	if !r.Start.IsZero() {
		conditions = append(conditions, Condition{Field: field, Op: OpGte, Value: utils.FormatISO(r.Start)})
	}
	if !r.End.IsZero() {
		conditions = append(conditions, Condition{Field: field, Op: OpLte, Value: utils.FormatISO(r.End)})
	}
	return &Filter{Conditions: conditions}
}
