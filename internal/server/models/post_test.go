package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostPage_TotalPages(t *testing.T) {
	tests := []struct {
		total int64
		size  int
		want  int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 5, 5},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PostPage{TotalElements: tt.total, Size: tt.size}.TotalPages(), "total=%d size=%d", tt.total, tt.size)
	}
}
