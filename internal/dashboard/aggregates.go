package dashboard

import (
	"sort"
	"time"

	"chainscope.io/dashboard/internal/models"
)

// Aggregates are the chart series derived from a session's anomaly list.
type Aggregates struct {
	FileID            string         `json:"fileId"`
	ByAnomalyType     []models.Count `json:"byAnomalyType"`
	ByStageTransition []models.Count `json:"byStageTransition"`
	ByWeekday         []models.Count `json:"byWeekday"`
	Version           uint64         `json:"version"`
}

type aggregatesMemo struct {
	valid   bool
	version uint64
	value   Aggregates
}

// Aggregates returns the derived series for the current view, recomputed only when the
// state version has moved since the last call.
func (a *Aggregator) Aggregates() Aggregates {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.memo.valid && a.memo.version == a.version {
		return a.memo.value
	}
	trips := a.st.anomalies.trips
	value := Aggregates{
		FileID:            a.st.fileID,
		ByAnomalyType:     CountByAnomalyType(trips),
		ByStageTransition: CountByStageTransition(trips, a.st.nodes),
		ByWeekday:         CountByWeekday(trips, a.deps.Location),
		Version:           a.version,
	}
	a.memo = aggregatesMemo{valid: true, version: a.version, value: value}
	return value
}

// CountByAnomalyType counts trips per anomaly code. A trip with several codes counts once
// for each. Sorted by count, then label.
func CountByAnomalyType(trips []models.MergedTrip) []models.Count {
	counts := map[string]int{}
	for _, t := range trips {
		for _, code := range t.AnomalyTypeList {
			counts[string(code)]++
		}
	}
	out := toCounts(counts)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// CountByStageTransition counts trips per "From→To" business step pair. An endpoint without
// a business step takes the step of the node at its scan location. Sorted by pipeline order.
func CountByStageTransition(trips []models.MergedTrip, nodes []models.LocationNode) []models.Count {
	stepByLocation := make(map[string]models.BusinessStep, len(nodes))
	for _, n := range nodes {
		if n.BusinessStep != "" {
			stepByLocation[n.ScanLocation] = n.BusinessStep
		}
	}
	resolve := func(e models.TripEndpoint) models.BusinessStep {
		if e.BusinessStep != "" {
			return e.BusinessStep
		}
		if step, ok := stepByLocation[e.ScanLocation]; ok {
			return step
		}
		return models.UnknownStep
	}

	type transition struct{ from, to models.BusinessStep }
	counts := map[transition]int{}
	for _, t := range trips {
		counts[transition{resolve(t.From), resolve(t.To)}]++
	}

	keys := make([]transition, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if ri, rj := stepRank(keys[i].from), stepRank(keys[j].from); ri != rj {
			return ri < rj
		}
		if ri, rj := stepRank(keys[i].to), stepRank(keys[j].to); ri != rj {
			return ri < rj
		}
		return transitionLabel(keys[i].from, keys[i].to) < transitionLabel(keys[j].from, keys[j].to)
	})

	out := make([]models.Count, len(keys))
	for i, k := range keys {
		out[i] = models.Count{Label: transitionLabel(k.from, k.to), Count: counts[k]}
	}
	return out
}

func transitionLabel(from, to models.BusinessStep) string {
	return string(from) + "→" + string(to)
}

// stepRank places unknown steps after the pipeline.
func stepRank(s models.BusinessStep) int {
	if r := s.Rank(); r >= 0 {
		return r
	}
	return len(models.PipelineOrder)
}

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// CountByWeekday counts trips by the weekday of their departure in loc. All seven days are
// present, Monday first.
func CountByWeekday(trips []models.MergedTrip, loc *time.Location) []models.Count {
	if loc == nil {
		loc = time.UTC
	}
	var counts [7]int
	for _, t := range trips {
		counts[time.Unix(t.From.EventTime, 0).In(loc).Weekday()]++
	}
	out := make([]models.Count, len(weekdayOrder))
	for i, d := range weekdayOrder {
		out[i] = models.Count{Label: d.String()[:3], Count: counts[d]}
	}
	return out
}

func toCounts(m map[string]int) []models.Count {
	out := make([]models.Count, 0, len(m))
	for label, n := range m {
		out = append(out, models.Count{Label: label, Count: n})
	}
	return out
}
