package query

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/icco/catalog/models"
)

// All is the filter value that matches every record.
const All = "all"

type Kind int

const (
	String Kind = iota
	Number
	Time
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder accepts asc/desc in any case. Anything else is ascending.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Field is one sortable and filterable attribute. Only the accessor matching
// Kind is used.
type Field[T any] struct {
	Kind Kind
	Str  func(T) string
	Num  func(T) float64
	At   func(T) time.Time
}

func StringField[T any](f func(T) string) Field[T] { return Field[T]{Kind: String, Str: f} }

func NumberField[T any](f func(T) float64) Field[T] { return Field[T]{Kind: Number, Num: f} }

func TimeField[T any](f func(T) time.Time) Field[T] { return Field[T]{Kind: Time, At: f} }

// Schema describes how an entity type is searched, filtered and sorted.
type Schema[T any] struct {
	Search func(T) []string
	Fields map[string]Field[T]
}

// Options are the inputs of one listing.
type Options struct {
	Query   string
	Filters map[string]string
	Sort    string
	Order   Order
	Page    int
	Size    int
}

// Page is one slice of a listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Run searches, filters, sorts and paginates items. The input is never
// modified.
func Run[T any](items []T, schema Schema[T], opts Options) Page[T] {
	out := Search(items, schema, opts.Query)
	out = Filter(out, schema, opts.Filters)
	out = Sort(out, schema, opts.Sort, opts.Order)
	return Paginate(out, opts.Page, opts.Size)
}

// Search keeps records where any search field contains the trimmed query,
// ignoring case and accents. An empty query keeps everything.
func Search[T any](items []T, schema Schema[T], query string) []T {
	q := models.Fold(strings.TrimSpace(query))
	if q == "" || schema.Search == nil {
		return slices.Clone(items)
	}
	var out []T
	for _, item := range items {
		for _, f := range schema.Search(item) {
			if strings.Contains(models.Fold(f), q) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// Filter keeps records matching every filter exactly. Empty values, the All
// sentinel and unknown fields are ignored.
func Filter[T any](items []T, schema Schema[T], filters map[string]string) []T {
	type pred func(T) bool
	var preds []pred
	for name, want := range filters {
		want = strings.TrimSpace(want)
		if want == "" || strings.EqualFold(want, All) {
			continue
		}
		f, ok := schema.Fields[name]
		if !ok {
			continue
		}
		preds = append(preds, func(item T) bool { return matches(f, item, want) })
	}
	if len(preds) == 0 {
		return slices.Clone(items)
	}

	var out []T
	for _, item := range items {
		keep := true
		for _, p := range preds {
			if !p(item) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, item)
		}
	}
	return out
}

func matches[T any](f Field[T], item T, want string) bool {
	switch f.Kind {
	case Number:
		n, err := strconv.ParseFloat(want, 64)
		return err == nil && f.Num(item) == n
	case Time:
		t, err := time.Parse(time.DateOnly, want)
		if err != nil {
			return false
		}
		y1, m1, d1 := f.At(item).Date()
		y2, m2, d2 := t.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	default:
		return strings.EqualFold(strings.TrimSpace(f.Str(item)), want)
	}
}

// Sort orders records by field with a stable sort, so ties keep their
// relative order. Strings compare case-folded. Unknown fields leave the order
// as is.
func Sort[T any](items []T, schema Schema[T], field string, order Order) []T {
	out := slices.Clone(items)
	f, ok := schema.Fields[field]
	if !ok {
		return out
	}
	compare := comparator(f)
	if order == Desc {
		asc := compare
		compare = func(a, b T) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

func comparator[T any](f Field[T]) func(a, b T) int {
	switch f.Kind {
	case Number:
		return func(a, b T) int { return cmp.Compare(f.Num(a), f.Num(b)) }
	case Time:
		return func(a, b T) int { return f.At(a).Compare(f.At(b)) }
	default:
		return func(a, b T) int {
			return cmp.Compare(strings.ToLower(f.Str(a)), strings.ToLower(f.Str(b)))
		}
	}
}

// Paginate returns the 1-based page of records [(page-1)*size, page*size).
// A size of zero or less puts everything on one page. TotalPages is never
// less than one.
func Paginate[T any](items []T, page, size int) Page[T] {
	total := len(items)
	if size <= 0 {
		size = max(total, 1)
	}
	if page < 1 {
		page = 1
	}
	pages := max((total+size-1)/size, 1)

	start := min((page-1)*size, total)
	end := min(start+size, total)
	return Page[T]{
		Items:      slices.Clone(items[start:end]),
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: pages,
	}
}

// Validate reports unknown sort or filter fields.
func (s Schema[T]) Validate(opts Options) error {
	if opts.Sort != "" {
		if _, ok := s.Fields[opts.Sort]; !ok {
			return fmt.Errorf("unknown sort field %q", opts.Sort)
		}
	}
	for name := range opts.Filters {
		if _, ok := s.Fields[name]; !ok {
			return fmt.Errorf("unknown filter field %q", name)
		}
	}
	return nil
}
