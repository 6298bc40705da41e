package models

import "github.com/paulmach/orb"

// KPI is the summary block shown at the top of the dashboard.
type KPI struct {
	TotalTripCount     int64   `json:"totalTripCount"`
	UniqueProductCount int64   `json:"uniqueProductCount"`
	CodeCount          int64   `json:"codeCount"`
	AnomalyCount       int64   `json:"anomalyCount"`
	AnomalyRate        float64 `json:"anomalyRate"`
	SalesRate          float64 `json:"salesRate"`
	DispatchRate       float64 `json:"dispatchRate"`
	InventoryRate      float64 `json:"inventoryRate"`
	AvgLeadTime        float64 `json:"avgLeadTime"`
}

type InventoryItem struct {
	BusinessStep BusinessStep `json:"businessStep"`
	Value        int64        `json:"value"`
}

// InventoryResponse is the backend body of the inventory distribution endpoint.
type InventoryResponse struct {
	InventoryDistribution []InventoryItem `json:"inventoryDistribution"`
}

// LocationNode is a hub in the supply-chain network.
type LocationNode struct {
	HubID        int64        `json:"hubId"`
	ScanLocation string       `json:"scanLocation"`
	BusinessStep BusinessStep `json:"businessStep"`
	HubType      string       `json:"hubType"`
	Coord        orb.Point    `json:"coord"`
}

type ProductAnomalyCount struct {
	ProductName string `json:"productName"`
	Fake        int64  `json:"fake"`
	Tamper      int64  `json:"tamper"`
	Clone       int64  `json:"clone"`
	Other       int64  `json:"other"`
	Total       int64  `json:"total"`
}

// Count is one labelled bar of a chart series.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}
