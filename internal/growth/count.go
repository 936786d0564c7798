package growth

import "fmt"

// Count holds the births and deaths realized by one carrier in one step.
type Count struct {
	Births int64
	Deaths int64
}

// NetChange is Births - Deaths.
func (c Count) NetChange() int64 { return c.Births - c.Deaths }

// EventCount is Births + Deaths.
func (c Count) EventCount() int64 { return c.Births + c.Deaths }

// Add returns the component-wise sum.
func (c Count) Add(o Count) Count {
	return Count{Births: c.Births + o.Births, Deaths: c.Deaths + o.Deaths}
}

// Sum totals a collection of counts.
func Sum(counts []Count) Count {
	var total Count
	for _, c := range counts {
		total = total.Add(c)
	}
	return total
}

func (c Count) String() string {
	return fmt.Sprintf("Count{births=%d, deaths=%d}", c.Births, c.Deaths)
}
