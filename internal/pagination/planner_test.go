package pagination

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testFields = Fields{
	Default: "created_at",
	ByKey: map[string]Field{
		"created_at": {BSON: "created_at", Kind: KindTime},
		"tag":        {BSON: "tag", Kind: KindString},
	},
}

func TestPlanDefaults(t *testing.T) {
	q := Plan(Params{}, testFields, bson.D{})

	assert.Equal(t, "created_at", q.SortBy)
	assert.Equal(t, "desc", q.SortDir)
	assert.Equal(t, int64(DefaultLimit), q.PageSize)
	assert.Equal(t, int64(DefaultLimit+1), q.Limit)
	assert.Empty(t, q.Filter)
	assert.Equal(t, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, q.Sort)
}

func TestPlanUnknownSortFieldFallsBack(t *testing.T) {
	q := Plan(Params{SortBy: "'; drop collection"}, testFields, bson.D{})

	assert.Equal(t, "created_at", q.SortBy)
	assert.Equal(t, "desc", q.SortDir)
}

func TestPlanLimitBounds(t *testing.T) {
	tests := []struct {
		name  string
		limit int64
		want  int64
	}{
		{"zero uses default", 0, DefaultLimit},
		{"negative uses default", -5, DefaultLimit},
		{"in range kept", 50, 50},
		{"above cap clamped", 500, MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Plan(Params{Limit: tt.limit}, testFields, bson.D{})
			assert.Equal(t, tt.want, q.PageSize)
			assert.Equal(t, tt.want+1, q.Limit)
		})
	}
}

func TestPlanCursorBoundaryShape(t *testing.T) {
	id := primitive.NewObjectID()
	token := EncodeCursor("COW-0042", id.Hex())

	q := Plan(Params{SortBy: "tag", SortDir: "asc", Cursor: token}, testFields, bson.D{})

	require.Len(t, q.Filter, 1)
	or := q.Filter[0]
	assert.Equal(t, "$or", or.Key)

	branches, ok := or.Value.(bson.A)
	require.True(t, ok)
	require.Len(t, branches, 2)

	primary := branches[0].(bson.D)
	assert.Equal(t, "tag", primary[0].Key)
	assert.Equal(t, bson.D{{Key: "$gt", Value: "COW-0042"}}, primary[0].Value)

	tie := branches[1].(bson.D)
	assert.Equal(t, bson.D{
		{Key: "tag", Value: "COW-0042"},
		{Key: "_id", Value: bson.D{{Key: "$gt", Value: id}}},
	}, tie)
}

func TestPlanDescendingUsesLt(t *testing.T) {
	id := primitive.NewObjectID()
	token := EncodeCursor("2024-03-01T10:00:00Z", id.Hex())

	q := Plan(Params{SortBy: "created_at", SortDir: "desc", Cursor: token}, testFields, bson.D{})

	require.Len(t, q.Filter, 1)
	branches := q.Filter[0].Value.(bson.A)
	primary := branches[0].(bson.D)

	bound := primary[0].Value.(bson.D)
	assert.Equal(t, "$lt", bound[0].Key)

	parsed, ok := bound[0].Value.(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), parsed.UTC())
}

func TestPlanBadCursorIgnored(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{"garbage token", "!!!not-a-cursor!!!"},
		{"bad object id", EncodeCursor("COW-0042", "not-an-oid")},
		{"bad time value", EncodeCursor("yesterday", primitive.NewObjectID().Hex())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Plan(Params{SortBy: "created_at", Cursor: tt.cursor}, testFields, bson.D{})
			assert.Empty(t, q.Filter, "invalid cursor must mean first page")
		})
	}
}

func TestPlanKeepsBaseFilter(t *testing.T) {
	base := bson.D{{Key: "status", Value: "alive"}}
	q := Plan(Params{SortBy: "tag"}, testFields, base)

	require.Len(t, q.Filter, 1)
	assert.Equal(t, base[0], q.Filter[0])
}

// walkDoc is an in-memory document for the pagination walk test.
type walkDoc struct {
	ID  primitive.ObjectID
	Tag string
}

// applyPlan evaluates a planned query against in-memory docs the way the
// store would: boundary filter, (tag, _id) ordering, limit+1 probe.
func applyPlan(docs []walkDoc, q Query, asc bool) []walkDoc {
	boundaryTag := ""
	var boundaryID primitive.ObjectID
	hasBoundary := false

	for _, e := range q.Filter {
		if e.Key != "$or" {
			continue
		}
		hasBoundary = true
		branches := e.Value.(bson.A)
		primary := branches[0].(bson.D)
		boundaryTag = primary[0].Value.(bson.D)[0].Value.(string)
		tie := branches[1].(bson.D)
		boundaryID = tie[1].Value.(bson.D)[0].Value.(primitive.ObjectID)
	}

	after := func(d walkDoc) bool {
		if !hasBoundary {
			return true
		}
		if d.Tag != boundaryTag {
			if asc {
				return d.Tag > boundaryTag
			}
			return d.Tag < boundaryTag
		}
		if asc {
			return d.ID.Hex() > boundaryID.Hex()
		}
		return d.ID.Hex() < boundaryID.Hex()
	}

	var matched []walkDoc
	for _, d := range docs {
		if after(d) {
			matched = append(matched, d)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Tag != matched[j].Tag {
			if asc {
				return matched[i].Tag < matched[j].Tag
			}
			return matched[i].Tag > matched[j].Tag
		}
		if asc {
			return matched[i].ID.Hex() < matched[j].ID.Hex()
		}
		return matched[i].ID.Hex() > matched[j].ID.Hex()
	})

	if int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched
}

// TestPaginationWalkIsStable checks the keyset property: following
// nextCursor until hasMore=false yields the same ordered sequence as one
// unpaginated query, with no duplicates and no omissions.
func TestPaginationWalkIsStable(t *testing.T) {
	var docs []walkDoc
	for i := 0; i < 23; i++ {
		docs = append(docs, walkDoc{ID: primitive.NewObjectID(), Tag: fmt.Sprintf("T-%02d", i%7)})
	}

	for _, dir := range []string{"asc", "desc"} {
		t.Run(dir, func(t *testing.T) {
			asc := dir == "asc"

			full := applyPlan(docs, Plan(Params{SortBy: "tag", SortDir: dir, Limit: 100}, testFields, bson.D{}), asc)
			require.Len(t, full, len(docs))

			var walked []walkDoc
			cursor := ""
			for {
				q := Plan(Params{SortBy: "tag", SortDir: dir, Cursor: cursor, Limit: 5}, testFields, bson.D{})
				page := applyPlan(docs, q, asc)

				hasMore := int64(len(page)) > q.PageSize
				if hasMore {
					page = page[:q.PageSize]
				}
				walked = append(walked, page...)

				if !hasMore {
					break
				}
				last := page[len(page)-1]
				cursor = EncodeCursor(last.Tag, last.ID.Hex())
			}

			assert.Equal(t, full, walked)
		})
	}
}
