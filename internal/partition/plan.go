package partition

import (
	"cmp"
	"encoding/binary"
	"hash/fnv"
	"math"
	"slices"

	"github.com/tphakala/scenestore/internal/conf"
	"github.com/tphakala/scenestore/internal/datastore/entities"
)

// floorEpsilon keeps n*ratio from flooring one short when the product is an
// integer that float arithmetic lands just below, as with 20*0.7.
const floorEpsilon = 1e-9

// Plan maps each split to its scene ids, in ascending order.
type Plan map[entities.DatasetType][]uint64

// Len returns the number of planned scenes.
func (p Plan) Len() int {
	var n int
	for _, sceneIDs := range p {
		n += len(sceneIDs)
	}
	return n
}

// Split returns the planned split of each scene.
func (p Plan) Split() map[uint64]entities.DatasetType {
	out := make(map[uint64]entities.DatasetType, p.Len())
	for dt, sceneIDs := range p {
		for _, id := range sceneIDs {
			out[id] = dt
		}
	}
	return out
}

// NewPlan partitions sceneIDs by ratios. The result depends only on the
// seed and the set of ids, never on their order or on the Go version.
//
// Scenes are ranked by a seeded hash of their id. Each split takes
// floor(n*ratio) scenes from the ranking in train, val, test order. The
// scenes left over by rounding are assigned in ascending id order to
// train, then val, then test, cycling and skipping splits with a zero ratio.
//
// sceneIDs must be free of duplicates and ratios must be valid.
func NewPlan(sceneIDs []uint64, ratios conf.SplitRatios, seed int64) Plan {
	ranked := slices.Clone(sceneIDs)
	keys := make(map[uint64]uint64, len(ranked))
	for _, id := range ranked {
		keys[id] = rankKey(seed, id)
	}
	slices.SortFunc(ranked, func(a, b uint64) int {
		return cmp.Or(cmp.Compare(keys[a], keys[b]), cmp.Compare(a, b))
	})

	splits := entities.DatasetTypes()
	weights := []float64{ratios.Train, ratios.Val, ratios.Test}
	n := float64(len(ranked))

	plan := make(Plan, len(splits))
	next := 0
	for i, dt := range splits {
		take := int(math.Floor(n*weights[i] + floorEpsilon))
		take = min(take, len(ranked)-next)
		plan[dt] = append(plan[dt], ranked[next:next+take]...)
		next += take
	}

	remainder := slices.Clone(ranked[next:])
	slices.Sort(remainder)

	var eligible []entities.DatasetType
	for i, dt := range splits {
		if weights[i] > 0 {
			eligible = append(eligible, dt)
		}
	}
	if len(eligible) == 0 {
		eligible = splits[:1]
	}
	for i, id := range remainder {
		dt := eligible[i%len(eligible)]
		plan[dt] = append(plan[dt], id)
	}

	for dt := range plan {
		slices.Sort(plan[dt])
	}
	return plan
}

func rankKey(seed int64, id uint64) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(seed))
	binary.BigEndian.PutUint64(buf[8:], id)
	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return h.Sum64()
}
