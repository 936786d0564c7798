package growth

import (
	"fmt"
	"strings"
)

// Context is the occupancy a carrier sees when its rate is evaluated.
type Context struct {
	SiteOccupancy int64
	SiteCapacity  int64
}

// Model chooses the rate a carrier uses this step. Implementations must not
// modify the intrinsic rate they are given.
type Model interface {
	Rate(intrinsic Rate, ctx Context) Rate
}

// Type names a growth policy.
type Type int

const (
	TypeIntrinsic Type = iota
	TypeLocalOccupancy
)

func (t Type) String() string {
	switch t {
	case TypeIntrinsic:
		return "INTRINSIC"
	case TypeLocalOccupancy:
		return "LOCAL_OCCUPANCY"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType maps a configuration value to a growth Type.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INTRINSIC":
		return TypeIntrinsic, nil
	case "LOCAL_OCCUPANCY":
		return TypeLocalOccupancy, nil
	default:
		return 0, fmt.Errorf("unknown growth model %q (valid: INTRINSIC, LOCAL_OCCUPANCY)", s)
	}
}

// New returns the Model for t.
func New(t Type) (Model, error) {
	switch t {
	case TypeIntrinsic:
		return Intrinsic{}, nil
	case TypeLocalOccupancy:
		return LocalOccupancy{}, nil
	default:
		return nil, fmt.Errorf("unknown growth model %v", t)
	}
}

// Intrinsic returns the carrier's own rate unmodified.
type Intrinsic struct{}

func (Intrinsic) Rate(intrinsic Rate, _ Context) Rate { return intrinsic }

// LocalOccupancy scales the birth probability by the site's remaining
// capacity fraction. Death is unaffected.
type LocalOccupancy struct{}

func (LocalOccupancy) Rate(intrinsic Rate, ctx Context) Rate {
	if ctx.SiteCapacity <= 0 {
		return intrinsic
	}
	free := 1 - float64(ctx.SiteOccupancy)/float64(ctx.SiteCapacity)
	return intrinsic.ScaleBirth(free)
}
