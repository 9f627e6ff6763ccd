// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows in admin lists.
const PageSize = 50

// MaxLimit caps ?limit= on offset-paged endpoints.
const MaxLimit = 200

// LimitPlusOne returns PageSize+1 for look-ahead pagination.
func LimitPlusOne() int64 { return int64(PageSize + 1) }

// Offset holds ?limit= and ?offset= values.
type Offset struct {
	Limit  int64
	Offset int64
}

// ParseOffset reads ?limit= (default PageSize, capped at MaxLimit) and
// ?offset= (default 0) from r.
func ParseOffset(r *http.Request) Offset {
	out := Offset{Limit: PageSize}
	if n, err := strconv.Atoi(query.Get(r, "limit")); err == nil && n > 0 {
		if n > MaxLimit {
			n = MaxLimit
		}
		out.Limit = int64(n)
	}
	if n, err := strconv.Atoi(query.Get(r, "offset")); err == nil && n > 0 {
		out.Offset = int64(n)
	}
	return out
}

// Page is the JSON shape of a keyset-paged list.
type Page[T any] struct {
	Items      []T    `json:"items"`
	HasPrev    bool   `json:"hasPrev"`
	HasNext    bool   `json:"hasNext"`
	PrevCursor string `json:"prevCursor,omitempty"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// Keyset holds the decoded direction and cursor for ?before= / ?after=.
type Keyset struct {
	before    string
	after     string
	backward  bool
	sortOrder int
	cursor    *wafflemongo.Cursor
}

// ParseKeyset reads ?before= and ?after= from r. before wins when both are set.
func ParseKeyset(r *http.Request) Keyset {
	return NewKeyset(query.Get(r, "before"), query.Get(r, "after"))
}

// NewKeyset decodes the cursors. Undecodable cursors start from the top.
func NewKeyset(before, after string) Keyset {
	ks := Keyset{before: before, after: after, sortOrder: 1}
	if before != "" {
		ks.backward = true
		ks.sortOrder = -1
		if c, ok := wafflemongo.DecodeCursor(before); ok {
			ks.cursor = &c
		}
	} else if after != "" {
		if c, ok := wafflemongo.DecodeCursor(after); ok {
			ks.cursor = &c
		}
	}
	return ks
}

// Filter adds the cursor window on (sortField, _id) to base.
func (ks Keyset) Filter(base bson.M, sortField string) bson.M {
	if ks.cursor == nil {
		return base
	}
	dir := "gt"
	if ks.backward {
		dir = "lt"
	}
	window := wafflemongo.KeysetWindow(sortField, dir, ks.cursor.CI, ks.cursor.ID)
	if len(base) == 0 {
		return window
	}
	return bson.M{"$and": bson.A{base, window}}
}

// FindOptions sorts on (sortField, _id) and fetches one extra row.
func (ks Keyset) FindOptions(sortField string) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: sortField, Value: ks.sortOrder}, {Key: "_id", Value: ks.sortOrder}}).
		SetLimit(LimitPlusOne())
}

// Finish trims the look-ahead row, restores display order when paging
// backward, and builds the cursors.
func Finish[T any](ks Keyset, rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) Page[T] {
	var hasPrev, hasNext bool
	if ks.backward {
		if len(rows) > PageSize {
			rows = rows[:PageSize]
			hasPrev = true
		}
		hasNext = true
		reverse(rows)
	} else {
		if len(rows) > PageSize {
			rows = rows[:PageSize]
			hasNext = true
		}
		hasPrev = ks.after != ""
	}

	p := Page[T]{Items: rows, HasPrev: hasPrev, HasNext: hasNext}
	if p.Items == nil {
		p.Items = []T{}
	}
	if len(rows) > 0 {
		first, last := rows[0], rows[len(rows)-1]
		if hasPrev {
			p.PrevCursor = wafflemongo.EncodeCursor(keyFn(first), idFn(first))
		}
		if hasNext {
			p.NextCursor = wafflemongo.EncodeCursor(keyFn(last), idFn(last))
		}
	}
	return p
}

func reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
