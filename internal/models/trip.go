package models

import (
	"github.com/paulmach/orb"
)

// BusinessStep is a stage of the supply-chain pipeline.
type BusinessStep string

const (
	StepFactory    BusinessStep = "Factory"
	StepWMS        BusinessStep = "WMS"
	StepLogiHub    BusinessStep = "LogiHub"
	StepWholesaler BusinessStep = "Wholesaler"
	StepReseller   BusinessStep = "Reseller"
	StepPOS        BusinessStep = "POS"
)

// PipelineOrder lists the business steps in the order goods move through them.
var PipelineOrder = []BusinessStep{StepFactory, StepWMS, StepLogiHub, StepWholesaler, StepReseller, StepPOS}

// Rank returns the position of s in PipelineOrder, or -1 for an unknown step.
func (s BusinessStep) Rank() int {
	for i, step := range PipelineOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// AnomalyType is a detection code attached to a trip by the backend.
type AnomalyType string

const (
	AnomalyFake   AnomalyType = "fake"
	AnomalyTamper AnomalyType = "tamper"
	AnomalyClone  AnomalyType = "clone"
	AnomalyOther  AnomalyType = "other"
)

// TripEndpoint is one scan event bounding a trip.
type TripEndpoint struct {
	ScanLocation string       `json:"scanLocation"`
	Coord        orb.Point    `json:"coord"`
	EventTime    int64        `json:"eventTime"`
	BusinessStep BusinessStep `json:"businessStep"`
}

// AnalyzedTrip is one shipment leg as returned by the detection backend.
type AnalyzedTrip struct {
	ID                 string        `json:"id,omitempty"`
	RoadID             RoadID        `json:"roadId,omitempty"`
	From               TripEndpoint  `json:"from"`
	To                 TripEndpoint  `json:"to"`
	EpcCode            string        `json:"epcCode"`
	ProductName        string        `json:"productName"`
	EpcLot             string        `json:"epcLot"`
	EventType          string        `json:"eventType"`
	AnomalyTypeList    []AnomalyType `json:"anomalyTypeList"`
	AnomalyDescription string        `json:"anomalyDescription,omitempty"`
}

// IsAnomalous reports whether the backend flagged the trip.
func (t AnalyzedTrip) IsAnomalous() bool {
	return len(t.AnomalyTypeList) > 0
}

// MergedTrip is an AnalyzedTrip with a map-ready path. Timestamps has one entry per path point.
type MergedTrip struct {
	AnalyzedTrip
	Path            orb.LineString `json:"path"`
	Timestamps      []float64      `json:"timestamps"`
	GeometryMatched bool           `json:"geometryMatched"`
}

// TripPage is one page of a cursor-paginated trip listing.
type TripPage struct {
	Data       []AnalyzedTrip `json:"data"`
	NextCursor *Cursor        `json:"nextCursor"`
}
