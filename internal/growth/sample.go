package growth

import "github.com/nvandessel/tumor-lattice/internal/rng"

// Sample draws births and deaths for an aggregate of n identical cells.
// Births and deaths are independent binomial draws over n, so a cell drawn
// to divide may or may not also die. Both counts are in [0, n].
func Sample(s *rng.Stream, r Rate, n int64) Count {
	if n <= 0 {
		return Count{}
	}
	return Count{
		Births: s.Binomial(n, r.Birth),
		Deaths: s.Binomial(n, r.Death),
	}
}

// CapBirths limits births so that occupancy - deaths + births stays within
// capacity. spare is the site's free capacity before this carrier's events.
func CapBirths(c Count, spare int64) Count {
	room := spare + c.Deaths
	if room < 0 {
		room = 0
	}
	if c.Births > room {
		c.Births = room
	}
	return c
}
