package math

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Length(t *testing.T) {
	v := Vec3{3, 4, 0}
	if got := v.Length(); got != 5 {
		t.Errorf("Vec3.Length() = %v, want 5", got)
	}
	if got := v.LengthSq(); got != 25 {
		t.Errorf("Vec3.LengthSq() = %v, want 25", got)
	}
}

func TestVec3NormalizeZero(t *testing.T) {
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("Normalize of zero vector = %v, want zero", got)
	}

	n := Vec3{0, 3, 4}.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
}

func TestVec3AddScaled(t *testing.T) {
	got := Vec3{1, 1, 1}.AddScaled(Vec3{1, 2, 3}, 2)
	want := Vec3{3, 5, 7}
	if got != want {
		t.Errorf("AddScaled() = %v, want %v", got, want)
	}
}

func TestVec3IsFinite(t *testing.T) {
	tests := []struct {
		name string
		v    Vec3
		want bool
	}{
		{"finite", Vec3{1, -2, 3}, true},
		{"nan", Vec3{math32.NaN(), 0, 0}, false},
		{"inf", Vec3{0, math32.Inf(1), 0}, false},
		{"neg inf", Vec3{0, 0, math32.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsFinite(); got != tt.want {
				t.Errorf("IsFinite(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestSignedTetraVolume(t *testing.T) {
	a := Vec3{1, 0, 0}
	b := Vec3{0, 1, 0}
	c := Vec3{0, 0, 1}
	got := SignedTetraVolume(a, b, c)
	want := float32(1.0 / 6.0)
	if math32.Abs(got-want) > 1e-6 {
		t.Errorf("SignedTetraVolume() = %v, want %v", got, want)
	}
	if flipped := SignedTetraVolume(b, a, c); math32.Abs(flipped+want) > 1e-6 {
		t.Errorf("flipped winding = %v, want %v", flipped, -want)
	}
}

func TestTriangleNormal(t *testing.T) {
	n := TriangleNormal(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0})
	if n != (Vec3{0, 0, 1}) {
		t.Errorf("TriangleNormal() = %v, want (0,0,1)", n)
	}

	degenerate := TriangleNormal(Vec3{1, 1, 1}, Vec3{1, 1, 1}, Vec3{2, 2, 2})
	if degenerate != (Vec3{}) {
		t.Errorf("degenerate TriangleNormal() = %v, want zero", degenerate)
	}
}
