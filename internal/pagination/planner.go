package pagination

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Page size bounds for keyset listings.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// FieldKind tells the planner how to normalize a cursor's raw sort value
// back into a comparable BSON value.
type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
	KindTime
)

// Field describes one sortable field.
type Field struct {
	BSON string
	Kind FieldKind
}

// Fields is the closed allow-list of sortable fields for one collection.
// Requests naming anything else silently fall back to the default field,
// which keeps unindexed or unsafe sorts out of the query path.
type Fields struct {
	Default string
	ByKey   map[string]Field
}

// Resolve maps a requested sort key onto the allow-list, falling back to
// the default field for unknown keys.
func (f Fields) Resolve(sortBy string) (string, Field) {
	if fld, ok := f.ByKey[sortBy]; ok {
		return sortBy, fld
	}
	return f.Default, f.ByKey[f.Default]
}

// Params are the raw listing inputs as they arrive from the client.
type Params struct {
	SortBy  string
	SortDir string
	Cursor  string
	Limit   int64
}

// Query is a planned keyset query: filter and sort specs ready for the
// store, plus the resolved paging metadata. Limit includes the one-record
// probe used to detect a further page without a second query.
type Query struct {
	Filter   bson.D
	Sort     bson.D
	Limit    int64
	PageSize int64
	SortBy   string
	SortDir  string
}

// Plan builds a resumable keyset query over (sortField, _id). Results are
// strictly ordered by the pair; the identifier breaks ties in the same
// direction as the primary sort. A missing or undecodable cursor means
// first page: the filter is just base with no boundary.
func Plan(p Params, fields Fields, base bson.D) Query {
	sortBy, field := fields.Resolve(p.SortBy)

	dir := 1
	sortDir := "asc"
	if p.SortDir != "asc" {
		dir = -1
		sortDir = "desc"
	}

	pageSize := p.Limit
	if pageSize <= 0 {
		pageSize = DefaultLimit
	}
	if pageSize > MaxLimit {
		pageSize = MaxLimit
	}

	filter := bson.D{}
	filter = append(filter, base...)

	if boundary, ok := cursorBoundary(p.Cursor, field, dir); ok {
		filter = append(filter, boundary)
	}

	return Query{
		Filter:   filter,
		Sort:     bson.D{{Key: field.BSON, Value: dir}, {Key: "_id", Value: dir}},
		Limit:    pageSize + 1,
		PageSize: pageSize,
		SortBy:   sortBy,
		SortDir:  sortDir,
	}
}

func cursorBoundary(token string, field Field, dir int) (bson.E, bool) {
	cur := DecodeCursor(token)
	if cur == nil {
		return bson.E{}, false
	}

	id, err := primitive.ObjectIDFromHex(cur.ID)
	if err != nil {
		return bson.E{}, false
	}

	value, err := normalizeSortValue(cur.SortValue, field.Kind)
	if err != nil {
		return bson.E{}, false
	}

	op := "$gt"
	if dir < 0 {
		op = "$lt"
	}

	return bson.E{Key: "$or", Value: bson.A{
		bson.D{{Key: field.BSON, Value: bson.D{{Key: op, Value: value}}}},
		bson.D{
			{Key: field.BSON, Value: value},
			{Key: "_id", Value: bson.D{{Key: op, Value: id}}},
		},
	}}, true
}

func normalizeSortValue(raw string, kind FieldKind) (any, error) {
	switch kind {
	case KindTime:
		return time.Parse(time.RFC3339Nano, raw)
	case KindNumber:
		return decimal.NewFromString(raw)
	default:
		return raw, nil
	}
}

// FormatTime renders a time sort value the way cursors carry it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FormatNumber renders a numeric sort value the way cursors carry it.
func FormatNumber(d decimal.Decimal) string {
	return d.String()
}
