package mutation

import "sort"

// Sample is a group of cells sharing one genotype.
type Sample struct {
	Genotype NodeID
	Cells    int64
}

// Frequencies returns, for every mutation present in the samples, the
// fraction of all sampled cells that carry it. Cells are summed per node and
// pushed up the ancestor chain once per distinct node.
func (a *Arena) Frequencies(samples []Sample) map[Mutation]float64 {
	perNode := make(map[NodeID]int64)
	var total int64
	for _, s := range samples {
		if s.Cells <= 0 {
			continue
		}
		a.mustLive(s.Genotype)
		perNode[s.Genotype] += s.Cells
		total += s.Cells
	}
	out := make(map[Mutation]float64)
	if total == 0 {
		return out
	}

	carriers := make(map[Mutation]int64)
	for id, cells := range perNode {
		for cur := id; cur != noParent; cur = a.nodes[cur].parent {
			for _, m := range a.nodes[cur].mutations {
				carriers[m] += cells
			}
		}
	}
	for m, cells := range carriers {
		out[m] = float64(cells) / float64(total)
	}
	return out
}

// Frequency pairs a mutation with its cell fraction.
type Frequency struct {
	Mutation Mutation
	Fraction float64
}

// SortedFrequencies orders a frequency map by mutation ID.
func SortedFrequencies(freqs map[Mutation]float64) []Frequency {
	out := make([]Frequency, 0, len(freqs))
	for m, f := range freqs {
		out = append(out, Frequency{Mutation: m, Fraction: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mutation.ID < out[j].Mutation.ID })
	return out
}

// CountByType tallies the distinct mutations of each type in freqs.
func CountByType(freqs map[Mutation]float64) map[Type]int {
	out := make(map[Type]int)
	for m := range freqs {
		out[m.Type]++
	}
	return out
}

// Spectrum bins mutation frequencies into equal-width bins over (0, 1].
// Bin i counts fractions in (i/bins, (i+1)/bins].
func Spectrum(freqs map[Mutation]float64, bins int) []int {
	if bins <= 0 {
		return nil
	}
	out := make([]int, bins)
	for _, f := range freqs {
		if f <= 0 {
			continue
		}
		i := int(f*float64(bins) - 1e-12)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		out[i]++
	}
	return out
}
