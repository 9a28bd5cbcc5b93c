package cmd

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCodeOfCategorizesCodedErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("plain"), 1},
		{ioErrorf("io"), 2},
		{parseErrorf("parse"), 3},
		{fsErrorf("fs"), 4},
		{fmt.Errorf("wrapped: %w", parseErrorf("inner")), 3},
	}
	for _, c := range cases {
		if got := exitCodeOf(c.err); got != c.want {
			t.Errorf("exitCodeOf(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
