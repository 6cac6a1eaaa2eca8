package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterSet_CompileEmpty(t *testing.T) {
	clause, args := FilterSet{}.Compile(1)
	assert.Equal(t, "TRUE", clause)
	assert.Nil(t, args)
}

func TestFilterSet_CompileIDList(t *testing.T) {
	fs := FilterSet{}.WithIDs(FieldChallengeID, 1, 2, 3)

	clause, args := fs.Compile(1)
	assert.Equal(t, "t.challenge_id = ANY($1)", clause)
	require.Len(t, args, 1)
	assert.Equal(t, []int64{1, 2, 3}, args[0])
}

func TestFilterSet_CompilePlaceholderOffset(t *testing.T) {
	fs := FilterSet{}.
		WithIDs(FieldRequestedBy, 100).
		WithInts(FieldTaskStatus, 1, 2)

	clause, args := fs.Compile(5)
	assert.Equal(t, "t.review_requested_by = ANY($5) AND t.status = ANY($6)", clause)
	assert.Len(t, args, 2)
}

func TestFilterSet_CompileDateRange(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	clause, args := FilterSet{}.WithDateRange(FieldReviewedAt, from, to).Compile(1)
	assert.Equal(t, "t.reviewed_at BETWEEN $1 AND $2", clause)
	assert.Equal(t, []interface{}{from, to}, args)

	clause, args = FilterSet{}.WithDateRange(FieldReviewedAt, from, time.Time{}).Compile(1)
	assert.Equal(t, "t.reviewed_at >= $1", clause)
	assert.Len(t, args, 1)

	clause, args = FilterSet{}.WithDateRange(FieldReviewedAt, time.Time{}, to).Compile(1)
	assert.Equal(t, "t.reviewed_at <= $1", clause)
	assert.Len(t, args, 1)
}

func TestFilterSet_CompileTextMatch(t *testing.T) {
	clause, args := FilterSet{}.WithTextMatch(FieldTaskName, "bridge").Compile(1)
	assert.Equal(t, "t.name ILIKE $1", clause)
	assert.Equal(t, []interface{}{"%bridge%"}, args)
}

func TestFilterSet_CompileBounds(t *testing.T) {
	clause, args := FilterSet{}.WithBounds(-1.5, 50.0, 1.5, 52.0).Compile(1)
	assert.Equal(t, "t.location && ST_MakeEnvelope($1, $2, $3, $4, 4326)", clause)
	assert.Len(t, args, 4)
}

func TestFilterSet_UnknownFieldDropped(t *testing.T) {
	fs := FilterSet{{Kind: FilterIDList, Field: "password", IDs: []int64{1}}}

	clause, args := fs.Compile(1)
	assert.Equal(t, "TRUE", clause, "unknown fields never reach the SQL text")
	assert.Nil(t, args)
}

func TestFilterSet_EmptyPredicatesDropped(t *testing.T) {
	fs := FilterSet{}.
		WithIDs(FieldChallengeID).
		WithInts(FieldTaskStatus).
		WithTextMatch(FieldTaskName, "   ").
		WithDateRange(FieldReviewedAt, time.Time{}, time.Time{})

	clause, args := fs.Compile(1)
	assert.Equal(t, "TRUE", clause)
	assert.Nil(t, args)
}

func TestSortColumn_Whitelist(t *testing.T) {
	assert.Equal(t, "t.priority", SortColumn("priority"))
	assert.Equal(t, "t.updated_at", SortColumn("Mapped_On"))
	assert.Equal(t, "t.id", SortColumn(""))
	assert.Equal(t, "t.id", SortColumn("name; DROP TABLE tasks"))
}

func TestSortDirection_Normalized(t *testing.T) {
	assert.Equal(t, "DESC", SortDirection("desc"))
	assert.Equal(t, "DESC", SortDirection(" DESC "))
	assert.Equal(t, "ASC", SortDirection("asc"))
	assert.Equal(t, "ASC", SortDirection("sideways"))
}
