package supabase

import (
	"net/url"
	"strconv"
)

// filter builds PostgREST query strings.
type filter struct {
	v url.Values
}

func newFilter() *filter {
	return &filter{v: url.Values{}}
}

func (f *filter) sel(columns string) *filter {
	f.v.Set("select", columns)
	return f
}

func (f *filter) eq(column, value string) *filter {
	f.v.Add(column, "eq."+value)
	return f
}

func (f *filter) gte(column, value string) *filter {
	f.v.Add(column, "gte."+value)
	return f
}

func (f *filter) order(column string, ascending bool) *filter {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	f.v.Set("order", column+"."+dir)
	return f
}

func (f *filter) limit(n int) *filter {
	f.v.Set("limit", strconv.Itoa(n))
	return f
}

func (f *filter) values() url.Values {
	return f.v
}
