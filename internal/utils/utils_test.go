package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInteger(t *testing.T) {
	assert.Equal(t, 42, ParseInteger("42", 0))
	assert.Equal(t, 7, ParseInteger("", 7))
	assert.Equal(t, 7, ParseInteger("not-a-number", 7))
}

func TestParseFloat(t *testing.T) {
	assert.InDelta(t, 0.029, ParseFloat("0.029", 0), 0.0001)
	assert.InDelta(t, 1.5, ParseFloat("", 1.5), 0.0001)
	assert.InDelta(t, 1.5, ParseFloat("abc", 1.5), 0.0001)
}

func TestParseBoolean(t *testing.T) {
	assert.True(t, ParseBoolean("true", false))
	assert.False(t, ParseBoolean("0", true))
	assert.True(t, ParseBoolean("", true))
	assert.True(t, ParseBoolean("yes", true))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitAndTrim(" a, b ,c ", ","))
	assert.Equal(t, []string{"a"}, SplitAndTrim("a,,  ,", ","))
	assert.Nil(t, SplitAndTrim("", ","))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Easton Town Center", "easton-town-center"},
		{"Short North!", "short-north"},
		{"  Polaris  Fashion   Place  ", "polaris-fashion-place"},
		{"Store #42 (Main)", "store-42-main"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "hel...", TruncateString("hello world", 3))
	assert.Equal(t, "", TruncateString("hello", 0))
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.False(t, IsDuplicateKeyError(nil))
	assert.True(t, IsDuplicateKeyError(errors.New("UNIQUE constraint failed: orders.platform")))
	assert.True(t, IsDuplicateKeyError(fmt.Errorf("Error 1062: Duplicate entry '42' for key 'idx'")))
	assert.True(t, IsDuplicateKeyError(errors.New(`duplicate key value violates unique constraint "idx_orders_platform_external"`)))
	assert.False(t, IsDuplicateKeyError(errors.New("connection refused")))
}

func TestIsTransientDBError(t *testing.T) {
	assert.True(t, IsTransientDBError(context.DeadlineExceeded))
	assert.True(t, IsTransientDBError(errors.New("database is locked")))
	assert.True(t, IsTransientDBError(errors.New("Deadlock found when trying to get lock")))
	assert.False(t, IsTransientDBError(errors.New("syntax error")))
	assert.False(t, IsTransientDBError(nil))
}
