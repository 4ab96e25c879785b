package foundry

import "testing"

func TestRowBitsetSetClearGet(t *testing.T) {
	bs := newRowBitset(10)
	if bs.Get(3) {
		t.Fatalf("expected bit 3 clear initially")
	}
	bs.Set(3)
	if !bs.Get(3) {
		t.Errorf("expected bit 3 set")
	}
	bs.Clear(3)
	if bs.Get(3) {
		t.Errorf("expected bit 3 clear after Clear")
	}
}

func TestRowBitsetGrowsPastInitialCapacity(t *testing.T) {
	bs := newRowBitset(4)
	bs.Set(200)
	if !bs.Get(200) {
		t.Errorf("expected bit 200 set after growing past initial capacity")
	}
	if bs.Get(199) {
		t.Errorf("expected neighboring bit to remain clear")
	}
}

func TestRowBitsetCountAndAnySet(t *testing.T) {
	bs := newRowBitset(128)
	if bs.AnySet() {
		t.Fatalf("expected no bits set initially")
	}
	for _, row := range []int{0, 5, 64, 127} {
		bs.Set(row)
	}
	if !bs.AnySet() {
		t.Errorf("expected AnySet true after setting bits")
	}
	if got := bs.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
}

func TestRowBitsetClearAll(t *testing.T) {
	bs := newRowBitset(64)
	bs.Set(1)
	bs.Set(2)
	bs.ClearAll()
	if bs.AnySet() {
		t.Errorf("expected no bits set after ClearAll")
	}
}

func TestRowBitsetForEach(t *testing.T) {
	bs := newRowBitset(128)
	want := []int{2, 10, 65, 100}
	for _, row := range want {
		bs.Set(row)
	}
	var got []int
	bs.ForEach(func(row int) { got = append(got, row) })
	if len(got) != len(want) {
		t.Fatalf("ForEach visited %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ForEach order[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRowBitsetResizePreservesBits(t *testing.T) {
	bs := newRowBitset(8)
	bs.Set(3)
	bs.Resize(256)
	if !bs.Get(3) {
		t.Errorf("expected bit 3 preserved after Resize")
	}
	bs.Set(255)
	if !bs.Get(255) {
		t.Errorf("expected bit 255 settable after Resize")
	}
}
