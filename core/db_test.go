package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDBOrdering_String(t *testing.T) {
	tests := []struct {
		ord  DBOrdering
		want string
	}{
		{ord: DBOrdering{Field: "name", Ascending: true}, want: "name ASC"},
		{ord: DBOrdering{Field: "created_at"}, want: "created_at DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ord.String())
		})
	}
}
