package effect

import "testing"

func TestPoolEvictsOldestFirst(t *testing.T) {
	p := NewPool(3)
	for i := range 5 {
		p.Add(Particle{Data: float64(i)})
	}
	if p.Len() != 3 {
		t.Fatalf("expected 3 particles, got %d", p.Len())
	}
	var got []float64
	p.Each(func(pt *Particle) { got = append(got, pt.Data) })
	want := []float64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestPoolUpdateCullsInOrder(t *testing.T) {
	p := NewPool(10)
	for i := range 6 {
		p.Add(Particle{Data: float64(i), Life: 1})
	}
	p.Update(func(pt *Particle) bool { return int(pt.Data)%2 == 0 })
	if p.Len() != 3 {
		t.Fatalf("expected 3 survivors, got %d", p.Len())
	}
	i := 0
	p.Each(func(pt *Particle) {
		if pt.Data != float64(i*2) {
			t.Fatalf("expected survivor %d to be %d, got %v", i, i*2, pt.Data)
		}
		i++
	})
	p.Reset()
	if p.Len() != 0 {
		t.Fatalf("expected empty pool after reset, got %d", p.Len())
	}
}

func TestParticleNormalizedAge(t *testing.T) {
	p := Particle{Age: 0.5, Life: 2}
	if p.T() != 0.25 {
		t.Fatalf("expected 0.25, got %v", p.T())
	}
	p.Age = 3
	if p.T() != 1 {
		t.Fatalf("expected age clamped to 1, got %v", p.T())
	}
}

func TestAnchorIndexCoversRange(t *testing.T) {
	const n = 9
	if anchorIndex("right", 0, n) != n-1 {
		t.Fatal("expected right anchor to start at the top bin")
	}
	if anchorIndex("center", n/2, n) != 0 {
		t.Fatal("expected center anchor to put the lowest bin in the middle")
	}
	for i := range n {
		if k := anchorIndex("center", i, n); k < 0 || k >= n {
			t.Fatalf("index %d out of range: %d", i, k)
		}
	}
}
