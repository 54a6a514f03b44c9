package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	cases := []struct {
		name       string
		page, size int
		from, lim  int
	}{
		{"defaults", 0, 0, 0, 10},
		{"first page", 1, 10, 0, 10},
		{"third page", 3, 20, 40, 20},
		{"negative page", -5, 10, 0, 10},
		{"size over cap", 1, 500, 0, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			from, lim := Calculate(tc.page, tc.size)
			require.Equal(t, tc.from, from)
			require.Equal(t, tc.lim, lim)
		})
	}
}
