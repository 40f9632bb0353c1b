package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSQLiteConflictError(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":              {nil, false},
		"busy text":        {errors.New("SQLITE_BUSY: cannot commit"), true},
		"locked text":      {errors.New("database is locked (5)"), true},
		"wrapped locked":   {fmt.Errorf("save progress p: %w", errors.New("database is locked")), true},
		"unrelated":        {errors.New("no such table: users"), false},
		"constraint error": {errors.New("UNIQUE constraint failed"), false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsSQLiteConflictError(tc.err))
		})
	}
}
