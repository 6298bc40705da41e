package geometry

import (
	"time"

	"github.com/paulmach/orb"
)

// PairKey indexes a geometry by the scan locations at its two ends.
type PairKey struct {
	From string
	To   string
}

// Snapshot is an immutable set of road geometries. It is built once by a Source and never
// modified after being handed to the Cache.
type Snapshot struct {
	roads    map[string]orb.LineString
	pairs    map[PairKey]orb.LineString
	loadedAt time.Time
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		roads: make(map[string]orb.LineString),
		pairs: make(map[PairKey]orb.LineString),
	}
}

// Add indexes line under roadID and, when both are set, under the (from, to) pair.
// Lines with fewer than two points are rejected.
func (s *Snapshot) Add(roadID, from, to string, line orb.LineString) bool {
	if len(line) < 2 || (roadID == "" && (from == "" || to == "")) {
		return false
	}
	if roadID != "" {
		s.roads[roadID] = line
	}
	if from != "" && to != "" {
		s.pairs[PairKey{From: from, To: to}] = line
	}
	return true
}

func (s *Snapshot) Road(roadID string) (orb.LineString, bool) {
	if s == nil || roadID == "" {
		return nil, false
	}
	line, ok := s.roads[roadID]
	return line, ok && len(line) >= 2
}

func (s *Snapshot) Pair(from, to string) (orb.LineString, bool) {
	if s == nil || from == "" || to == "" {
		return nil, false
	}
	line, ok := s.pairs[PairKey{From: from, To: to}]
	return line, ok && len(line) >= 2
}

func (s *Snapshot) RoadCount() int {
	if s == nil {
		return 0
	}
	return len(s.roads)
}

func (s *Snapshot) PairCount() int {
	if s == nil {
		return 0
	}
	return len(s.pairs)
}
