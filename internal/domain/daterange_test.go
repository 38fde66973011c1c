package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(value string) *time.Time {
	t := day(value)
	return &t
}

func TestDateRangeIsValid(t *testing.T) {
	assert.True(t, DateRange{Start: day("2024-01-01")}.IsValid())
	assert.True(t, DateRange{Start: day("2024-01-01"), End: dayPtr("2024-06-01")}.IsValid())
	assert.False(t, DateRange{Start: day("2024-06-01"), End: dayPtr("2024-01-01")}.IsValid())
	assert.False(t, DateRange{Start: day("2024-01-01"), End: dayPtr("2024-01-01")}.IsValid())
	assert.False(t, DateRange{}.IsValid())
}

func TestDateRangeOverlaps(t *testing.T) {
	closed := DateRange{Start: day("2024-01-01"), End: dayPtr("2024-06-01")}

	// half-open semantics: a range starting exactly at another's end does not overlap
	successor := DateRange{Start: day("2024-06-01"), End: dayPtr("2024-12-01")}
	assert.False(t, closed.Overlaps(successor))
	assert.False(t, successor.Overlaps(closed))

	inside := DateRange{Start: day("2024-02-01"), End: dayPtr("2024-03-01")}
	assert.True(t, closed.Overlaps(inside))
	assert.True(t, inside.Overlaps(closed))

	open := DateRange{Start: day("2024-05-01")}
	assert.True(t, closed.Overlaps(open))

	openAfter := DateRange{Start: day("2024-06-01")}
	assert.False(t, closed.Overlaps(openAfter))

	// two open ranges always overlap
	assert.True(t, open.Overlaps(openAfter))
}

func TestDateRangeContains(t *testing.T) {
	closed := DateRange{Start: day("2024-01-01"), End: dayPtr("2024-06-01")}
	assert.True(t, closed.Contains(day("2024-01-01")))
	assert.True(t, closed.Contains(day("2024-05-31")))
	assert.False(t, closed.Contains(day("2024-06-01")))
	assert.False(t, closed.Contains(day("2023-12-31")))

	open := DateRange{Start: day("2024-01-01")}
	assert.True(t, open.Contains(day("2030-01-01")))
}

func TestNewDateRangeTruncatesToDay(t *testing.T) {
	noisy := time.Date(2024, 3, 15, 17, 45, 12, 0, time.FixedZone("X", 3600))
	r := NewDateRange(noisy, nil)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), r.Start)
	assert.True(t, r.IsOpen())
}
