// Package correspond pairs the footprints of a saved sub-assembly with the
// footprints of its destination instance and derives the net mapping
// between them.
package correspond

import (
	"sort"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/errkind"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/hierarchy"
)

// Pair is a saved footprint and the destination footprint it maps onto.
type Pair struct {
	Saved hierarchy.Footprint
	Dest  hierarchy.Footprint
}

// Tie records a destination footprint for which several saved candidates
// scored equally. The first candidate was chosen.
type Tie struct {
	Dest       string
	Candidates []string
	Score      int
}

// NetPair links a saved net name to a destination net name.
type NetPair struct {
	Saved string
	Dest  string
}

// Result is the outcome of Resolve.
type Result struct {
	Pairs  []Pair
	Anchor Pair
	// Nets maps a saved net name to the destination net connected to the
	// corresponding pad. The first pad pair seen for a saved net wins.
	Nets map[string]*pcb.Net
	// NetPairs lists every distinct net pairing observed, sorted.
	NetPairs []NetPair
	Ties     []Tie
}

// Resolve pairs every destination footprint with a saved footprint of the
// same leaf id. Candidates from repeated sheet instances are ranked by how
// many ancestor sheet names they share with the destination footprint.
// The pair whose reference equals anchorRef becomes the anchor.
func Resolve(saved, dest []hierarchy.Footprint, anchorRef string) (*Result, error) {
	if len(saved) != len(dest) {
		return nil, errkind.New(errkind.Cardinality,
			"saved layout has %d footprints, destination level has %d", len(saved), len(dest))
	}

	saved, dest = sorted(saved), sorted(dest)

	byID := make(map[string][]hierarchy.Footprint)
	for _, s := range saved {
		byID[s.ID] = append(byID[s.ID], s)
	}

	res := &Result{Nets: make(map[string]*pcb.Net)}
	for _, d := range dest {
		candidates := byID[d.ID]
		switch len(candidates) {
		case 0:
			return nil, errkind.New(errkind.HierarchyMismatch,
				"could not find a saved footprint matching %s, make sure schematic and layout are in sync", d.Ref)
		case 1:
			res.Pairs = append(res.Pairs, Pair{Saved: candidates[0], Dest: d})
		default:
			best, tie := closest(d, candidates)
			if tie != nil {
				res.Ties = append(res.Ties, *tie)
			}
			res.Pairs = append(res.Pairs, Pair{Saved: best, Dest: d})
		}
	}

	seen := make(map[NetPair]bool)
	for _, p := range res.Pairs {
		if err := res.pairNets(p, seen); err != nil {
			return nil, err
		}
	}
	sort.Slice(res.NetPairs, func(i, j int) bool {
		a, b := res.NetPairs[i], res.NetPairs[j]
		if a.Saved != b.Saved {
			return a.Saved < b.Saved
		}
		return a.Dest < b.Dest
	})

	anchor, ok := findAnchor(res.Pairs, anchorRef)
	if !ok {
		return nil, errkind.New(errkind.Internal, "anchor footprint %s is not part of the matched footprints", anchorRef)
	}
	res.Anchor = anchor

	return res, nil
}

func sorted(fps []hierarchy.Footprint) []hierarchy.Footprint {
	out := append([]hierarchy.Footprint(nil), fps...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Ref < out[j].Ref
	})
	return out
}

// closest returns the candidate sharing the most ancestor sheet names with
// d, the first one on a tie, and describes the tie if there was one.
func closest(d hierarchy.Footprint, candidates []hierarchy.Footprint) (hierarchy.Footprint, *Tie) {
	names := make(map[string]bool, len(d.Names))
	for _, n := range d.Names {
		names[n] = true
	}

	scores := make([]int, len(candidates))
	best := 0
	for i, c := range candidates {
		shared := make(map[string]bool)
		for _, n := range c.Names {
			if names[n] {
				shared[n] = true
			}
		}
		scores[i] = len(shared)
		if scores[i] > scores[best] {
			best = i
		}
	}

	var tied []string
	for i, c := range candidates {
		if scores[i] == scores[best] {
			tied = append(tied, c.Ref)
		}
	}
	if len(tied) > 1 {
		return candidates[best], &Tie{Dest: d.Ref, Candidates: tied, Score: scores[best]}
	}
	return candidates[best], nil
}

// pairNets zips the name-sorted pads of a pair and records their nets. It
// also requires both footprints to own the same number of texts.
func (r *Result) pairNets(p Pair, seen map[NetPair]bool) error {
	sp, dp := sortedPads(p.Saved.FP.Pads), sortedPads(p.Dest.FP.Pads)
	if len(sp) != len(dp) {
		return errkind.New(errkind.Cardinality,
			"footprint %s has %d pads, saved %s has %d", p.Dest.Ref, len(dp), p.Saved.Ref, len(sp))
	}
	if ns, nd := len(p.Saved.FP.Texts), len(p.Dest.FP.Texts); ns != nd {
		return errkind.New(errkind.Cardinality,
			"footprint %s has %d text items, saved %s has %d", p.Dest.Ref, nd, p.Saved.Ref, ns)
	}

	for i := range sp {
		from, to := sp[i].NetName(), dp[i].NetName()
		if from == "" {
			continue
		}
		np := NetPair{Saved: from, Dest: to}
		if !seen[np] {
			seen[np] = true
			r.NetPairs = append(r.NetPairs, np)
		}
		if _, ok := r.Nets[from]; !ok && dp[i].Net != nil {
			r.Nets[from] = dp[i].Net
		}
	}
	return nil
}

func sortedPads(pads []*pcb.Pad) []*pcb.Pad {
	out := append([]*pcb.Pad(nil), pads...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func findAnchor(pairs []Pair, ref string) (Pair, bool) {
	for _, p := range pairs {
		if p.Dest.Ref == ref {
			return p, true
		}
	}
	for _, p := range pairs {
		if p.Saved.Ref == ref {
			return p, true
		}
	}
	return Pair{}, false
}

// Conflicts returns the saved nets that map onto more than one destination
// net. Only the first mapping is used when replicating.
func (r *Result) Conflicts() []string {
	count := make(map[string]int)
	for _, np := range r.NetPairs {
		count[np.Saved]++
	}
	var out []string
	for name, n := range count {
		if n > 1 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
