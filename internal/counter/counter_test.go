package counter

import "testing"

func TestCounterBasics(t *testing.T) {
	c := NewCounter()
	c.Add("a", 2)
	c.Add("b", 1)
	c.Add("a", 1)
	if c.Get("a") != 3 || c.Get("b") != 1 {
		t.Fatalf("counts wrong: a=%d b=%d", c.Get("a"), c.Get("b"))
	}
	if c.Len() != 2 || c.Card() != 4 {
		t.Fatalf("len=%d card=%d", c.Len(), c.Card())
	}
	c.Remove("a")
	if c.Get("a") != 0 || c.Card() != 1 {
		t.Fatalf("remove failed: card=%d", c.Card())
	}
}

func TestFreezeIsSnapshot(t *testing.T) {
	c := NewCounter()
	c.Add(1, 1)
	f := c.Freeze()
	c.Add(1, 10)
	if f.Get(1) != 1 {
		t.Fatal("frozen snapshot mutated through builder")
	}
}

func TestMostCommon(t *testing.T) {
	f := FrozenOf("x", "y", "y", "z", "z", "z")
	items := f.MostCommon(0)
	if len(items) != 3 || items[0].Value != "z" || items[0].Count != 3 {
		t.Fatalf("most common wrong: %v", items)
	}
	top := f.MostCommon(1)
	if len(top) != 1 || top[0].Value != "z" {
		t.Fatalf("top-1 wrong: %v", top)
	}
}

func TestAddSub(t *testing.T) {
	a := FrozenOf("x", "x", "y")
	b := FrozenOf("x", "z")
	sum := a.Add(b)
	if sum.Get("x") != 3 || sum.Get("y") != 1 || sum.Get("z") != 1 || sum.Card() != 5 {
		t.Fatalf("add wrong: %v", sum)
	}
	diff := sum.Sub(b)
	if !diff.Eq(a) {
		t.Fatalf("sub wrong: %v", diff)
	}
}

func TestEq(t *testing.T) {
	a := FrozenOf(1, 1, 2)
	b := FrozenOf(1, 2, 1)
	if !a.Eq(b) {
		t.Fatal("equal multisets compared unequal")
	}
	c := NewCounter()
	c.Add(1, 2)
	c.Add(2, 1)
	if !a.EqCounter(c) {
		t.Fatal("frozen/counter equality failed")
	}
	if a.Eq(FrozenOf(1, 2)) {
		t.Fatal("unequal multisets compared equal")
	}
}

func TestHashStable(t *testing.T) {
	a := FrozenOf("p", "q", "q")
	b := FrozenOf("q", "p", "q")
	if a.Hash() != b.Hash() {
		t.Fatal("hash should be order independent")
	}
	if a.Hash() == FrozenOf("p").Hash() {
		t.Fatal("distinct multisets should (almost surely) hash differently")
	}
}

func TestHashable(t *testing.T) {
	if !Hashable(1) || !Hashable("s") || !Hashable(nil) {
		t.Fatal("scalars should be hashable")
	}
	if Hashable([]any{1}) || Hashable(map[string]any{}) {
		t.Fatal("slices and maps are not hashable")
	}
}
