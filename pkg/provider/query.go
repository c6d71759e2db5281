package provider

import (
	"fmt"
	"net/url"
	"strings"
)

// Query builds the filter/order/projection parameters for one table request,
// in the hosted store's REST dialect.
type Query struct {
	table  string
	params url.Values
}

// NewQuery starts a query against the named table.
func NewQuery(table string) *Query {
	return &Query{table: table, params: url.Values{}}
}

// Table returns the table the query targets.
func (q *Query) Table() string {
	return q.table
}

// Columns sets the projection, including embedded relations,
// e.g. "*,user:users(*),comments(count)".
func (q *Query) Columns(cols string) *Query {
	q.params.Set("select", cols)
	return q
}

// Eq filters rows where column equals value.
func (q *Query) Eq(column, value string) *Query {
	q.params.Add(column, "eq."+value)
	return q
}

// Neq filters rows where column differs from value.
func (q *Query) Neq(column, value string) *Query {
	q.params.Add(column, "neq."+value)
	return q
}

// Gte filters rows where column is at least value.
func (q *Query) Gte(column, value string) *Query {
	q.params.Add(column, "gte."+value)
	return q
}

// Lt filters rows where column is below value.
func (q *Query) Lt(column, value string) *Query {
	q.params.Add(column, "lt."+value)
	return q
}

// Contains filters rows where an array column contains all given values.
func (q *Query) Contains(column string, values ...string) *Query {
	q.params.Add(column, fmt.Sprintf("cs.{%s}", strings.Join(values, ",")))
	return q
}

// Order sorts by column; ascending when asc is true.
func (q *Query) Order(column string, asc bool) *Query {
	dir := "desc"
	if asc {
		dir = "asc"
	}
	q.params.Add("order", column+"."+dir)
	return q
}

// Limit caps the number of rows returned.
func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", fmt.Sprint(n))
	return q
}

// Encode renders the query string, without a leading "?".
func (q *Query) Encode() string {
	return q.params.Encode()
}

// FilterExpr renders the filter parameters in the change-feed's
// "column=op.value" form. Used when subscribing to realtime inserts.
func (q *Query) FilterExpr() string {
	parts := make([]string, 0, len(q.params))
	for column, vals := range q.params {
		if column == "select" || column == "order" || column == "limit" {
			continue
		}
		for _, v := range vals {
			parts = append(parts, column+"="+v)
		}
	}
	return strings.Join(parts, "&")
}
