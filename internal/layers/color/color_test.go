package color

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func Test_Water_EndsDistinct_AlphaMonotonic(t *testing.T) {
	e := NewEncoder(nil)
	lo, hi := e.ColorFor("water", 0), e.ColorFor("water", 100)
	if lo == hi {
		t.Fatalf("water 0 and 100 both %v", lo)
	}
	prev := -1.0
	for _, p := range []float64{0, 25, 50, 75, 100} {
		c := e.ColorFor("water", p)
		if c.A <= prev {
			t.Fatalf("alpha at %v got=%v want > %v", p, c.A, prev)
		}
		prev = c.A
	}
}

func Test_NoData_IndependentOfMetric(t *testing.T) {
	e := NewEncoder(nil)
	for _, m := range []string{"water", "soil", "unknown", ""} {
		for _, p := range []float64{9999, 10000, math.NaN()} {
			if got := e.ColorFor(m, p); got != NoData {
				t.Fatalf("%s/%v got=%v want %v", m, p, got, NoData)
			}
		}
	}
}

func Test_Clamp(t *testing.T) {
	e := NewEncoder(nil)
	if got, want := e.ColorFor("soil", -20), e.ColorFor("soil", 0); got != want {
		t.Fatalf("got=%v want %v", got, want)
	}
	if got, want := e.ColorFor("soil", 250), e.ColorFor("soil", 100); got != want {
		t.Fatalf("got=%v want %v", got, want)
	}
}

func Test_FallbackRamp(t *testing.T) {
	e := NewEncoder(nil)
	lo, hi := e.ColorFor("ozone", 0), e.ColorFor("ozone", 100)
	if lo.R != 0 || lo.G != 255 || hi.R != 255 || hi.G != 0 {
		t.Fatalf("lo=%v hi=%v", lo, hi)
	}
	if lo.B != hi.B {
		t.Fatalf("blue not fixed: %d vs %d", lo.B, hi.B)
	}
	if hi.A <= lo.A {
		t.Fatalf("alpha lo=%v hi=%v", lo.A, hi.A)
	}
}

func Test_String(t *testing.T) {
	if got := (RGBA{R: 1, G: 2, B: 3, A: 0.5}).String(); got != "rgba(1,2,3,0.5)" {
		t.Fatalf("got=%s", got)
	}
}

func Test_LoadRamps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "styles.yaml")
	doc := "ramps:\n  water:\n    from: \"rgba(0,0,0,0.1)\"\n    to: \"rgba(255,255,255,0.9)\"\n  ozone:\n    from: rgba(0,10,0,0.2)\n    to: rgba(0,200,0,0.8)\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	ramps, err := LoadRamps(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	e := NewEncoder(ramps)
	if got := e.ColorFor("water", 100); got != (RGBA{R: 255, G: 255, B: 255, A: 0.9}) {
		t.Fatalf("water got=%v", got)
	}
	if got := e.ColorFor("ozone", 0); got.G != 10 {
		t.Fatalf("ozone got=%v", got)
	}
	if _, ok := ramps["soil"]; !ok {
		t.Fatalf("defaults not kept")
	}
}

func Test_ParseRamps_Invalid(t *testing.T) {
	if _, err := ParseRamps([]byte("ramps:\n  water:\n    from: red\n    to: blue\n"), nil); err == nil {
		t.Fatalf("expected error for named colors")
	}
	if _, err := ParseRamps([]byte("palette: {}\n"), nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}
