package condition

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-hr/internal/common/models"
)

// Evaluate reports whether cond holds for fields. A missing field, a nil value or
// operands that cannot be compared all evaluate to false.
func Evaluate(cond models.FlowCondition, fields map[string]interface{}) bool {
	actual, ok := lookup(fields, cond.Field)
	if !ok || actual == nil {
		return false
	}

	cmp, ok := compare(actual, cond.Value)
	if !ok {
		// Unordered values still support equality checks
		switch cond.Operator {
		case models.OperatorEQ:
			return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", cond.Value)
		case models.OperatorNE:
			return fmt.Sprintf("%v", actual) != fmt.Sprintf("%v", cond.Value)
		}
		return false
	}

	switch cond.Operator {
	case models.OperatorEQ:
		return cmp == 0
	case models.OperatorNE:
		return cmp != 0
	case models.OperatorGT:
		return cmp > 0
	case models.OperatorGTE:
		return cmp >= 0
	case models.OperatorLT:
		return cmp < 0
	case models.OperatorLTE:
		return cmp <= 0
	default:
		return false
	}
}

// EvaluateAll is AND over conds. An empty list is vacuously true.
func EvaluateAll(conds []models.FlowCondition, fields map[string]interface{}) bool {
	for _, c := range conds {
		if !Evaluate(c, fields) {
			return false
		}
	}
	return true
}

// ValidOperator reports whether op is one of the supported comparison operators.
func ValidOperator(op models.ConditionOperator) bool {
	switch op {
	case models.OperatorEQ, models.OperatorNE, models.OperatorGT,
		models.OperatorGTE, models.OperatorLT, models.OperatorLTE:
		return true
	}
	return false
}

// lookup resolves dotted paths such as "employee.grade" through nested maps.
func lookup(fields map[string]interface{}, path string) (interface{}, bool) {
	if fields == nil || path == "" {
		return nil, false
	}
	if v, ok := fields[path]; ok {
		return v, true
	}
	parts := strings.Split(path, ".")
	var cur interface{} = fields
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// compare returns -1, 0 or 1. ok is false when the operands have no common ordering.
func compare(a, b interface{}) (int, bool) {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}

	if at, aok := toTime(a); aok {
		if bt, bok := toTime(b); bok {
			return at.Compare(bt), true
		}
		return 0, false
	}

	if ab, aok := a.(bool); aok {
		bb, bok := b.(bool)
		if !bok {
			return 0, false
		}
		if ab == bb {
			return 0, true
		}
		// booleans have no order; let the caller fall back to equality
		return 0, false
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
