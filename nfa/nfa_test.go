package nfa

import (
	"testing"

	"github.com/coregx/uregex/colormap"
)

func newTestNFA() (*NFA, *colormap.Colormap) {
	cm := colormap.New(colormap.DefaultWidth, 0x110000)
	return New(cm), cm
}

func TestNewAllocatesFourSentinelStates(t *testing.T) {
	n, _ := newTestNFA()
	if n.NStates() != 4 {
		t.Fatalf("NStates() = %d, want 4", n.NStates())
	}
	if !n.State(n.Post).isPost || !n.State(n.Pre).isPre {
		t.Fatal("Post/Pre sentinel flags not set")
	}
}

func TestAddArcAndOutArcs(t *testing.T) {
	n, cm := newTestNFA()
	co := cm.Subcolor('a')
	lp, rp := n.NewFragment()
	n.PlainArc(lp, rp, co)

	var seen []ArcIdx
	n.OutArcs(lp, func(idx ArcIdx) { seen = append(seen, idx) })
	if len(seen) != 1 {
		t.Fatalf("got %d out-arcs, want 1", len(seen))
	}
	a := n.Arc(seen[0])
	if a.To != rp || a.Co != co || a.Type != Plain {
		t.Errorf("arc = %+v, want To=%d Co=%d Type=Plain", a, rp, co)
	}
}

func TestFreeArcUnlinksFromAllChains(t *testing.T) {
	n, cm := newTestNFA()
	co := cm.Subcolor('a')
	lp, rp := n.NewFragment()
	idx := n.PlainArc(lp, rp, co)
	n.FreeArc(idx)

	if n.NOuts(lp) != 0 {
		t.Errorf("NOuts(lp) = %d after free, want 0", n.NOuts(lp))
	}
	if n.NIns(rp) != 0 {
		t.Errorf("NIns(rp) = %d after free, want 0", n.NIns(rp))
	}
	var colArcs int
	n.ColorArcs(co, func(ArcIdx) { colArcs++ })
	if colArcs != 0 {
		t.Errorf("color chain still has %d arcs after free, want 0", colArcs)
	}
}

func TestFreedArcSlotIsReused(t *testing.T) {
	n, cm := newTestNFA()
	co := cm.Subcolor('a')
	lp, rp := n.NewFragment()
	idx := n.PlainArc(lp, rp, co)
	before := len(n.arcs)
	n.FreeArc(idx)
	n.PlainArc(lp, rp, co)
	if len(n.arcs) != before {
		t.Errorf("arc arena grew from %d to %d; expected free slot reuse", before, len(n.arcs))
	}
}

func TestRainbowCoversEveryRealColor(t *testing.T) {
	n, cm := newTestNFA()
	cm.Subcolor('a')
	cm.Subcolor('b')
	lp, rp := n.NewFragment()
	n.Rainbow(Plain, lp, rp, nil)

	var want int
	cm.EachRealColor(func(co colormap.Color, d *colormap.ColorDesc) {
		if !d.IsSubcolor() {
			want++
		}
	})
	var got int
	n.OutArcs(lp, func(ArcIdx) { got++ })
	if got != want {
		t.Errorf("Rainbow produced %d arcs, want %d (one per live real color)", got, want)
	}
	_ = rp
}

func TestColorComplementExcludesExistingColors(t *testing.T) {
	n, cm := newTestNFA()
	co := cm.Subcolor('a')
	lp, rp := n.NewFragment()
	n.PlainArc(lp, rp, co)

	comp := n.NewState()
	n.ColorComplement(Plain, lp, comp)

	n.OutArcs(lp, func(idx ArcIdx) {
		a := n.Arc(idx)
		if a.To == comp && a.Co == co {
			t.Errorf("ColorComplement should not re-target co=%d, the color already out of lp", co)
		}
	})
}

func TestWordChrsMemoizes(t *testing.T) {
	n, _ := newTestNFA()
	a := n.WordChrs()
	b := n.WordChrs()
	if len(a) != len(b) {
		t.Fatal("WordChrs should return the same memoized set")
	}
}

func TestMarkInitMarkFinal(t *testing.T) {
	n, _ := newTestNFA()
	s := n.NewState()
	if n.IsInit(s) || n.IsFinal(s) {
		t.Fatal("fresh state should not be init/final")
	}
	n.MarkInit(s)
	n.MarkFinal(s)
	if !n.IsInit(s) || !n.IsFinal(s) {
		t.Fatal("MarkInit/MarkFinal did not set flags")
	}
}

func TestRelabelArcMovesColorChain(t *testing.T) {
	n, cm := newTestNFA()
	coA := cm.Subcolor('a')
	cm.OkColors(n) // close the subcolor so 'b' gets a color of its own
	coB := cm.Subcolor('b')
	cm.OkColors(n)
	lp, rp := n.NewFragment()
	idx := n.PlainArc(lp, rp, coA)

	n.RelabelArc(int32(idx), coB)

	if n.Arc(idx).Co != coB {
		t.Fatalf("arc color = %d after relabel, want %d", n.Arc(idx).Co, coB)
	}
	var onOld, onNew int
	n.ColorArcs(coA, func(ArcIdx) { onOld++ })
	n.ColorArcs(coB, func(ArcIdx) { onNew++ })
	if onOld != 0 {
		t.Errorf("old color chain still has %d arcs, want 0", onOld)
	}
	if onNew != 1 {
		t.Errorf("new color chain has %d arcs, want 1", onNew)
	}
}

func TestDuplicateArcAddsSiblingOnNewColor(t *testing.T) {
	n, cm := newTestNFA()
	coA := cm.Subcolor('a')
	cm.OkColors(n) // close the subcolor so 'b' gets a color of its own
	coB := cm.Subcolor('b')
	cm.OkColors(n)
	lp, rp := n.NewFragment()
	idx := n.PlainArc(lp, rp, coA)

	n.DuplicateArc(int32(idx), coB)

	var outs int
	n.OutArcs(lp, func(ArcIdx) { outs++ })
	if outs != 2 {
		t.Fatalf("lp has %d out-arcs after duplicate, want 2", outs)
	}
}

func TestLaconColorIsAboveRealColorRange(t *testing.T) {
	if got := LaconColor(5, 1); got != 6 {
		t.Errorf("LaconColor(5,1) = %d, want 6", got)
	}
}

func TestFinishLaconsCompactsSub(t *testing.T) {
	n, cm := newTestNFA()
	sub := New(cm)
	lp, rp := sub.NewFragment()
	sub.PlainArc(lp, rp, cm.Subcolor('x'))
	sub.EmptyArc(sub.Pre, lp)
	sub.EmptyArc(rp, sub.Post)

	idx := n.NewLacon(true, sub)
	if idx != 1 {
		t.Fatalf("first NewLacon index = %d, want 1", idx)
	}
	if n.Lacons[0].CNFA != nil {
		t.Fatal("constraint body should stay uncompacted until FinishLacons")
	}
	if !n.HasLacons {
		t.Error("HasLacons not set")
	}

	n.SpecialColors(false)
	n.FinishLacons(false)
	if n.Lacons[0].CNFA == nil {
		t.Fatal("FinishLacons did not compact the sub-NFA")
	}
	if n.Lacons[0].Sub.BOS != n.BOS {
		t.Error("constraint body should share the parent's anchor pseudocolors")
	}
}
