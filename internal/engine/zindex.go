package engine

import (
	"slices"
	"sort"
)

// zLevel is one bucket of the z-index: the ids drawn at level z, in insertion order.
type zLevel struct {
	z   int
	ids []ID
}

// zIndex orders ids for drawing. It never owns objects; the store does.
// Levels are kept sorted ascending and are never empty.
type zIndex struct {
	levels []zLevel
	byID   map[ID]int
}

func newZIndex() *zIndex {
	return &zIndex{byID: make(map[ID]int)}
}

// search returns the position of level z, or where it would be inserted.
func (zi *zIndex) search(z int) (int, bool) {
	i := sort.Search(len(zi.levels), func(i int) bool { return zi.levels[i].z >= z })
	return i, i < len(zi.levels) && zi.levels[i].z == z
}

// set moves id to level z, appending it after any ids already there.
func (zi *zIndex) set(id ID, z int) {
	if _, ok := zi.byID[id]; ok {
		zi.unset(id)
	}

	i, found := zi.search(z)
	if !found {
		zi.levels = slices.Insert(zi.levels, i, zLevel{z: z})
	}
	zi.levels[i].ids = append(zi.levels[i].ids, id)
	zi.byID[id] = z
}

// unset removes id, dropping its level if it becomes empty.
func (zi *zIndex) unset(id ID) {
	z, ok := zi.byID[id]
	if !ok {
		return
	}
	delete(zi.byID, id)

	i, found := zi.search(z)
	if !found {
		return
	}
	level := &zi.levels[i]
	if j := slices.Index(level.ids, id); j >= 0 {
		level.ids = slices.Delete(level.ids, j, j+1)
	}
	if len(level.ids) == 0 {
		zi.levels = slices.Delete(zi.levels, i, i+1)
	}
}

// level reports the z-level of id.
func (zi *zIndex) level(id ID) (int, bool) {
	z, ok := zi.byID[id]
	return z, ok
}

// order returns every id in draw order.
func (zi *zIndex) order() []ID {
	out := make([]ID, 0, len(zi.byID))
	for _, l := range zi.levels {
		out = append(out, l.ids...)
	}
	return out
}

func (zi *zIndex) size() int { return len(zi.byID) }
