package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"wot-api/internal/domain"
)

func TestParseFeedFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
		check   func(t *testing.T, f *domain.PollFilter)
	}{
		{
			name:  "empty query defaults",
			query: "",
			check: func(t *testing.T, f *domain.PollFilter) {
				assert.Equal(t, domain.TimeFilterAll, f.TimeFilter)
				assert.Empty(t, f.Genders)
				assert.Empty(t, f.ExcludeIDs)
			},
		},
		{
			name:  "multiple genders",
			query: "genders=female,nonbinary",
			check: func(t *testing.T, f *domain.PollFilter) {
				assert.Equal(t, []domain.Gender{domain.GenderFemale, domain.GenderNonbinary}, f.Genders)
			},
		},
		{
			name:    "invalid gender",
			query:   "genders=female,unknown",
			wantErr: true,
		},
		{
			name:  "expires bucket",
			query: "expires=soon",
			check: func(t *testing.T, f *domain.PollFilter) {
				assert.Equal(t, domain.TimeFilterSoon, f.TimeFilter)
			},
		},
		{
			name:    "invalid expires bucket",
			query:   "expires=tomorrow",
			wantErr: true,
		},
		{
			name:  "limit",
			query: "limit=25",
			check: func(t *testing.T, f *domain.PollFilter) {
				assert.Equal(t, 25, f.Limit)
			},
		},
		{
			name:    "limit too high",
			query:   "limit=500",
			wantErr: true,
		},
		{
			name:    "limit not a number",
			query:   "limit=lots",
			wantErr: true,
		},
		{
			name:  "exclude list",
			query: "exclude=p1,p2,%20p3",
			check: func(t *testing.T, f *domain.PollFilter) {
				assert.Equal(t, []string{"p1", "p2", "p3"}, f.ExcludeIDs)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/polls?"+tt.query, nil)

			filter, appErr := parseFeedFilter(r)
			if tt.wantErr {
				assert.NotNil(t, appErr)
				return
			}
			assert.Nil(t, appErr)
			tt.check(t, filter)
		})
	}
}
