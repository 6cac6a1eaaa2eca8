package domain

import (
	"fmt"
	"strings"
	"time"
)

// Search filters are assembled by transport layers from request parameters
// and compiled to parameterized SQL by the repositories. Values always travel
// as query arguments; only whitelisted column names reach the SQL text.

// FilterField names a filterable task attribute.
type FilterField string

const (
	FieldTaskID          FilterField = "id"
	FieldChallengeID     FilterField = "challenge_id"
	FieldProjectID       FilterField = "project_id"
	FieldTaskStatus      FilterField = "status"
	FieldPriority        FilterField = "priority"
	FieldReviewStatus    FilterField = "review_status"
	FieldRequestedBy     FilterField = "review_requested_by"
	FieldReviewedBy      FilterField = "reviewed_by"
	FieldReviewedAt      FilterField = "reviewed_at"
	FieldMappedOn        FilterField = "updated_at"
	FieldTaskName        FilterField = "name"
	FieldChallengeName   FilterField = "challenge_name"
	FieldLocationBounds  FilterField = "location"
	FieldReviewStartedAt FilterField = "review_started_at"
)

// filterColumns maps filter fields to the columns of the queue view. An
// unknown field never reaches the SQL text.
var filterColumns = map[FilterField]string{
	FieldTaskID:          "t.id",
	FieldChallengeID:     "t.challenge_id",
	FieldProjectID:       "c.project_id",
	FieldTaskStatus:      "t.status",
	FieldPriority:        "t.priority",
	FieldReviewStatus:    "t.review_status",
	FieldRequestedBy:     "t.review_requested_by",
	FieldReviewedBy:      "t.reviewed_by",
	FieldReviewedAt:      "t.reviewed_at",
	FieldMappedOn:        "t.updated_at",
	FieldTaskName:        "t.name",
	FieldChallengeName:   "c.name",
	FieldLocationBounds:  "t.location",
	FieldReviewStartedAt: "t.review_started_at",
}

// FilterKind tags the shape of a single predicate.
type FilterKind int

const (
	FilterIDList    FilterKind = iota // column = ANY(ids)
	FilterIntList                     // column = ANY(values)
	FilterDateRange                   // column BETWEEN from AND to
	FilterTextMatch                   // column ILIKE %value%
	FilterBounds                      // geo bounding box intersection
	FilterIsNull
	FilterNotNull
)

// Filter is one predicate over a whitelisted field.
type Filter struct {
	Kind   FilterKind
	Field  FilterField
	IDs    []int64
	Ints   []int
	From   time.Time
	To     time.Time
	Text   string
	Bounds [4]float64 // minLon, minLat, maxLon, maxLat
}

// FilterSet is an AND-combined list of predicates.
type FilterSet []Filter

// WithIDs appends an id-list predicate.
func (fs FilterSet) WithIDs(field FilterField, ids ...int64) FilterSet {
	if len(ids) == 0 {
		return fs
	}
	return append(fs, Filter{Kind: FilterIDList, Field: field, IDs: ids})
}

// WithInts appends an integer-list predicate (statuses, priorities).
func (fs FilterSet) WithInts(field FilterField, values ...int) FilterSet {
	if len(values) == 0 {
		return fs
	}
	return append(fs, Filter{Kind: FilterIntList, Field: field, Ints: values})
}

// WithDateRange appends a closed date-range predicate.
func (fs FilterSet) WithDateRange(field FilterField, from, to time.Time) FilterSet {
	if from.IsZero() && to.IsZero() {
		return fs
	}
	return append(fs, Filter{Kind: FilterDateRange, Field: field, From: from, To: to})
}

// WithTextMatch appends a case-insensitive substring predicate.
func (fs FilterSet) WithTextMatch(field FilterField, text string) FilterSet {
	if strings.TrimSpace(text) == "" {
		return fs
	}
	return append(fs, Filter{Kind: FilterTextMatch, Field: field, Text: text})
}

// WithBounds appends a bounding-box predicate on the task location.
func (fs FilterSet) WithBounds(minLon, minLat, maxLon, maxLat float64) FilterSet {
	return append(fs, Filter{
		Kind:   FilterBounds,
		Field:  FieldLocationBounds,
		Bounds: [4]float64{minLon, minLat, maxLon, maxLat},
	})
}

// Compile renders the set as an AND-joined SQL fragment with placeholders
// starting at argIndex. Unknown fields and empty predicates are dropped.
func (fs FilterSet) Compile(argIndex int) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	next := func() int { return argIndex + len(args) }

	for _, f := range fs {
		col, ok := filterColumns[f.Field]
		if !ok {
			continue
		}
		switch f.Kind {
		case FilterIDList:
			if len(f.IDs) == 0 {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", col, next()))
			args = append(args, f.IDs)
		case FilterIntList:
			if len(f.Ints) == 0 {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", col, next()))
			args = append(args, f.Ints)
		case FilterDateRange:
			switch {
			case !f.From.IsZero() && !f.To.IsZero():
				clauses = append(clauses, fmt.Sprintf("%s BETWEEN $%d AND $%d", col, next(), next()+1))
				args = append(args, f.From, f.To)
			case !f.From.IsZero():
				clauses = append(clauses, fmt.Sprintf("%s >= $%d", col, next()))
				args = append(args, f.From)
			case !f.To.IsZero():
				clauses = append(clauses, fmt.Sprintf("%s <= $%d", col, next()))
				args = append(args, f.To)
			}
		case FilterTextMatch:
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", col, next()))
			args = append(args, "%"+f.Text+"%")
		case FilterBounds:
			clauses = append(clauses, fmt.Sprintf(
				"%s && ST_MakeEnvelope($%d, $%d, $%d, $%d, 4326)",
				col, next(), next()+1, next()+2, next()+3))
			args = append(args, f.Bounds[0], f.Bounds[1], f.Bounds[2], f.Bounds[3])
		case FilterIsNull:
			clauses = append(clauses, col+" IS NULL")
		case FilterNotNull:
			clauses = append(clauses, col+" IS NOT NULL")
		}
	}

	if len(clauses) == 0 {
		return "TRUE", nil
	}
	return strings.Join(clauses, " AND "), args
}

// Sortable queue columns. The queue query only ever interpolates values from
// this map.
var sortColumns = map[string]string{
	"id":               "t.id",
	"name":             "t.name",
	"priority":         "t.priority",
	"mapped_on":        "t.updated_at",
	"status":           "t.status",
	"review_status":    "t.review_status",
	"reviewed_at":      "t.reviewed_at",
	"review_requested": "t.review_started_at",
	"challenge":        "t.challenge_id",
}

// SortColumn resolves a caller-supplied sort key to a queue column,
// defaulting to the task id.
func SortColumn(key string) string {
	if col, ok := sortColumns[strings.ToLower(strings.TrimSpace(key))]; ok {
		return col
	}
	return "t.id"
}

// SortDirection normalizes a caller-supplied direction to ASC or DESC.
func SortDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "desc") {
		return "DESC"
	}
	return "ASC"
}
