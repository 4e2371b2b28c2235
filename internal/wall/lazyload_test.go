package wall

import "testing"

func TestEagerTilesMaterializeImmediately(t *testing.T) {
	l := NewTileLoader(1000)

	for i := 0; i < EagerTiles; i++ {
		if !l.Materialized(i) {
			t.Fatalf("tile %d not eager", i)
		}
	}
	if l.Materialized(EagerTiles) {
		t.Fatalf("tile %d materialized without visibility", EagerTiles)
	}
	if got := l.MaterializedCount(); got != EagerTiles {
		t.Fatalf("materialized = %d", got)
	}
}

func TestMarkVisibleIsOneShot(t *testing.T) {
	l := NewTileLoader(1000)

	if !l.MarkVisible(600) {
		t.Fatal("first sighting ignored")
	}
	if l.MarkVisible(600) {
		t.Fatal("second sighting triggered again")
	}
	if !l.Materialized(600) {
		t.Fatal("tile not materialized after sighting")
	}

	// eager tiles already count as seen
	if l.MarkVisible(0) {
		t.Fatal("eager tile re-triggered")
	}
}

func TestTileStateLifecycle(t *testing.T) {
	l := NewTileLoader(100)

	if got := l.State(60); got != TileUnloaded {
		t.Fatalf("state = %d", got)
	}
	l.MarkVisible(60)
	if got := l.State(60); got != TileLoading {
		t.Fatalf("state = %d", got)
	}
	l.MarkLoaded(60)
	if got := l.State(60); got != TileLoaded {
		t.Fatalf("state = %d", got)
	}

	// MarkLoaded without a prior sighting is ignored
	l.MarkLoaded(61)
	if got := l.State(61); got != TileUnloaded {
		t.Fatalf("state = %d", got)
	}
}

func TestLoaderBounds(t *testing.T) {
	l := NewTileLoader(10)
	if l.MarkVisible(-1) || l.MarkVisible(10) {
		t.Fatal("out-of-range sighting accepted")
	}
	if l.Materialized(-1) || l.Materialized(10) {
		t.Fatal("out-of-range materialized")
	}
}

func TestSmallPageAllEager(t *testing.T) {
	l := NewTileLoader(20)
	if got := l.MaterializedCount(); got != 20 {
		t.Fatalf("materialized = %d", got)
	}
}
