package option

import (
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption narrows or decorates a repository query.
type QueryOption func(*gorm.DB) *gorm.DB

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	IN  Operator = "IN"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	// Allow restricts SortBy to known columns. A nil map accepts any plain
	// column identifier.
	Allow map[string]bool
}

const defaultSortColumn = "id"

var identifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func Apply(db *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		if opt != nil {
			db = opt(db)
		}
	}
	return db
}

func WithSortBy(s QuerySortBy) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		column := s.SortBy
		if column == "" {
			column = defaultSortColumn
		}
		if s.Allow != nil && !s.Allow[column] && column != defaultSortColumn {
			return db
		}
		if !identifier.MatchString(column) {
			return db
		}

		desc := strings.EqualFold(s.OrderBy, "desc")
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc})
	}
}

// ApplyOperator adds a single column predicate. Unknown operators or
// malformed field names produce an error on the query.
func ApplyOperator(c Condition) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if !identifier.MatchString(c.Field) {
			_ = db.AddError(fmt.Errorf("invalid field %q", c.Field))
			return db
		}

		col := clause.Column{Name: c.Field}
		var expr clause.Expression
		switch c.Operator {
		case EQ:
			expr = clause.Eq{Column: col, Value: c.Value}
		case NEQ:
			expr = clause.Neq{Column: col, Value: c.Value}
		case GT:
			expr = clause.Gt{Column: col, Value: c.Value}
		case GTE:
			expr = clause.Gte{Column: col, Value: c.Value}
		case LT:
			expr = clause.Lt{Column: col, Value: c.Value}
		case LTE:
			expr = clause.Lte{Column: col, Value: c.Value}
		case IN:
			values, ok := c.Value.([]any)
			if !ok {
				_ = db.AddError(fmt.Errorf("IN on %q needs []any", c.Field))
				return db
			}
			expr = clause.IN{Column: col, Values: values}
		default:
			_ = db.AddError(fmt.Errorf("unsupported operator %q", c.Operator))
			return db
		}
		return db.Where(expr)
	}
}

// WithLockingUpdate takes row locks on the selected rows (SELECT ... FOR UPDATE).
func WithLockingUpdate() QueryOption {
	return LockingUpdate
}

// LockingUpdate is the scope form of WithLockingUpdate.
func LockingUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
