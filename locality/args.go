package locality

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/neighbors/box"
)

// ErrConfiguration is returned (wrapped) for invalid query arguments and for
// indices which cannot be built. It is the same value as
// box.ErrConfiguration.
var ErrConfiguration = box.ErrConfiguration

// Mode selects the kind of neighbor query.
type Mode int

const (
	ModeUnset Mode = iota
	ModeBall
	ModeNearest
)

func (m Mode) String() string {
	switch m {
	case ModeUnset:
		return "Unset"
	case ModeBall:
		return "Ball"
	case ModeNearest:
		return "Nearest"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Sentinel values marking Args fields which the index should fill in.
const (
	DefaultRMax         = -1.0
	DefaultScale        = -1.0
	DefaultNumNeighbors = 0
)

const (
	// defaultGuessFraction is the fraction of the smallest box edge used as
	// the first search radius of a nearest neighbor query.
	defaultGuessFraction = 0.1
	defaultScale         = 1.1
)

// Args describes a single neighbor query.
//
// Ball queries need RMax. Nearest neighbor queries need NumNeighbors and
// treat RMax as the initial search radius and Scale as the factor it grows
// by; both may be left at their Default* sentinels.
type Args struct {
	Mode         Mode
	RMax         float64
	NumNeighbors int
	Scale        float64
	ExcludeSelf  bool
	// Types restricts the query to particles of the listed types. An empty
	// list means all types.
	Types []int
}

// BallArgs returns the arguments for a fixed radius query.
func BallArgs(rMax float64, excludeSelf bool) Args {
	return Args{
		Mode: ModeBall, RMax: rMax, NumNeighbors: DefaultNumNeighbors,
		Scale: DefaultScale, ExcludeSelf: excludeSelf,
	}
}

// NearestArgs returns the arguments for a k-nearest neighbor query with a
// default radius guess and scale.
func NearestArgs(k int, excludeSelf bool) Args {
	return Args{
		Mode: ModeNearest, RMax: DefaultRMax, NumNeighbors: k,
		Scale: DefaultScale, ExcludeSelf: excludeSelf,
	}
}

// Validate checks that the arguments describe a possible query. It does not
// modify a and is cheap enough to run before every query.
func (a *Args) Validate() error {
	if math.IsNaN(a.RMax) {
		return fmt.Errorf("%w: r_max is NaN", ErrConfiguration)
	}
	for _, typ := range a.Types {
		if typ < 0 {
			return fmt.Errorf(
				"%w: particle types must be non-negative, got %d",
				ErrConfiguration, typ,
			)
		}
	}

	switch a.Mode {
	case ModeBall:
		if a.RMax == DefaultRMax {
			return fmt.Errorf("%w: ball queries require r_max", ErrConfiguration)
		} else if a.RMax < 0 {
			return fmt.Errorf(
				"%w: r_max must be non-negative, got %g",
				ErrConfiguration, a.RMax,
			)
		}

	case ModeNearest:
		if a.NumNeighbors <= 0 {
			return fmt.Errorf(
				"%w: k-NN queries require a positive number of neighbors, "+
					"got %d", ErrConfiguration, a.NumNeighbors,
			)
		}
		if a.Scale != DefaultScale && !(a.Scale > 1) {
			return fmt.Errorf(
				"%w: k-NN scale must be greater than 1, got %g",
				ErrConfiguration, a.Scale,
			)
		}
		if a.RMax != DefaultRMax && !(a.RMax > 0) {
			return fmt.Errorf(
				"%w: k-NN radius guess must be positive, got %g",
				ErrConfiguration, a.RMax,
			)
		}

	case ModeUnset:
		return fmt.Errorf("%w: query mode is not set", ErrConfiguration)
	default:
		return fmt.Errorf("%w: unknown query mode %v", ErrConfiguration, a.Mode)
	}

	return nil
}

// resolve validates a and replaces any sentinels with values appropriate
// for the box b.
func (a Args) resolve(b *box.Box) (Args, error) {
	if err := a.Validate(); err != nil { return a, err }

	if a.Mode == ModeNearest {
		if a.Scale == DefaultScale { a.Scale = defaultScale }
		if a.RMax == DefaultRMax { a.RMax = defaultGuessFraction * b.MinEdge() }
	}
	return a, nil
}
