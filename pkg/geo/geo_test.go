package geo

import (
	"math"
	"testing"
)

func TestDistanceZeroForSamePoint(t *testing.T) {
	p := Point{Lat: 12.90, Lng: 77.60}
	if d := Distance(p, p); d != 0 {
		t.Fatalf("expected zero distance, got %f", d)
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := Point{Lat: 12.90, Lng: 77.60}
	b := Point{Lat: 13.10, Lng: 77.75}
	if da, db := Distance(a, b), Distance(b, a); math.Abs(da-db) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", da, db)
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// ~1.5 km apart in Bengaluru.
	a := Point{Lat: 12.90, Lng: 77.60}
	b := Point{Lat: 12.91, Lng: 77.61}
	d := Distance(a, b)
	if d < 1.0 || d > 2.0 {
		t.Fatalf("expected roughly 1.5 km, got %f", d)
	}
}

func TestWithinRadius(t *testing.T) {
	p := Point{Lat: 12.90, Lng: 77.60}
	if !WithinRadius(p, p, 0) {
		t.Fatal("a point must be within a zero radius of itself")
	}
	if WithinRadius(p, p, -1) {
		t.Fatal("negative radius must never match")
	}
	far := Point{Lat: 28.61, Lng: 77.21}
	if WithinRadius(p, far, 100) {
		t.Fatal("Delhi should not be within 100 km of Bengaluru")
	}
}

func TestParsePoint(t *testing.T) {
	if _, ok := ParsePoint("", "77.60"); ok {
		t.Fatal("missing latitude must not parse")
	}
	if _, ok := ParsePoint("12.90", "not-a-number"); ok {
		t.Fatal("malformed longitude must not parse")
	}
	p, ok := ParsePoint(" 12.90 ", "77.60")
	if !ok {
		t.Fatal("expected trimmed coordinates to parse")
	}
	if p.Lat != 12.90 || p.Lng != 77.60 {
		t.Fatalf("unexpected point %+v", p)
	}
}
