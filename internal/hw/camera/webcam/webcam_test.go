package webcam

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestRotateFlag(t *testing.T) {
	cases := []struct {
		deg    int
		want   gocv.RotateFlag
		rotate bool
	}{
		{0, 0, false},
		{90, gocv.Rotate90Clockwise, true},
		{180, gocv.Rotate180Clockwise, true},
		{270, gocv.Rotate90CounterClockwise, true},
		{45, 0, false},
		{-90, 0, false},
	}
	for _, tc := range cases {
		got, ok := rotateFlag(tc.deg)
		if ok != tc.rotate || (ok && got != tc.want) {
			t.Errorf("rotateFlag(%d) = %v, %v; want %v, %v", tc.deg, got, ok, tc.want, tc.rotate)
		}
	}
}
