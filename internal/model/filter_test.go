package model

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddressFilter(t *testing.T) {
	tests := []struct {
		query         string
		wantAll       bool
		wantUnlocated bool
		wantID        string
	}{
		{"", true, false, ""},
		{"q=drill", true, false, ""},
		{"addressId=", false, true, ""},
		{"addressId", false, true, ""},
		{"addressId=a1", false, false, "a1"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)

			f := ParseAddressFilter(q)
			assert.Equal(t, tt.wantAll, f.IsAll())
			assert.Equal(t, tt.wantUnlocated, f.IsUnlocated())
			id, at := f.AddressID()
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantID != "", at)

			// encoding must round-trip through the same convention
			enc := url.Values{}
			f.Encode(enc)
			assert.Equal(t, f, ParseAddressFilter(enc))
		})
	}
}

func TestAddressFilterMatches(t *testing.T) {
	located := Item{AddressID: "a1"}
	loose := Item{}

	assert.True(t, AllAddresses().Matches(located))
	assert.True(t, AllAddresses().Matches(loose))
	assert.False(t, UnlocatedOnly().Matches(located))
	assert.True(t, UnlocatedOnly().Matches(loose))
	assert.True(t, AtAddress("a1").Matches(located))
	assert.False(t, AtAddress("a1").Matches(loose))
	assert.Equal(t, UnlocatedOnly(), AtAddress(""))
}

func TestAddressFilterTarget(t *testing.T) {
	assert.Equal(t, "", AllAddresses().TargetID())
	assert.Equal(t, "", UnlocatedOnly().TargetID())
	assert.Equal(t, "a1", AtAddress("a1").TargetID())
}

func TestPaginate(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}

	p := Paginate(all, 2, 2)
	assert.Equal(t, []int{3, 4}, p.Items)
	assert.Equal(t, 5, p.Total)

	last := Paginate(all, 3, 2)
	assert.Equal(t, []int{5}, last.Items)

	empty := Paginate(all, 4, 2)
	assert.Equal(t, []int{}, empty.Items)
}

func TestPaginateOutOfRange(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name     string
		page     int
		pageSize int
	}{
		{"huge page", math.MaxInt / 50, 50},
		{"max page", math.MaxInt, 200},
		{"huge page size second page", 2, math.MaxInt},
		{"zero page", 0, 2},
		{"negative page", -3, 2},
		{"zero page size", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Page[int]
			assert.NotPanics(t, func() { p = Paginate(all, tt.page, tt.pageSize) })
			assert.Equal(t, []int{}, p.Items)
			assert.Equal(t, 5, p.Total)
		})
	}

	first := Paginate(all, 1, math.MaxInt)
	assert.Equal(t, all, first.Items)
}
