// Package traffic fetches, caches and parses roadway AADT segments from an
// ArcGIS-style REST query endpoint.
package traffic

import "encoding/json"

// Feature is one raw record from the traffic query endpoint. Raw features
// are what the disk cache stores, so manual downloads of the service's
// JSON output drop in unchanged.
type Feature struct {
	Attributes Attributes `json:"attributes"`
	Geometry   *Geometry  `json:"geometry,omitempty"`
}

// Attributes carries the traffic fields requested via outFields. Optional
// fields are pointers so an absent value is distinguishable from zero.
type Attributes struct {
	ObjectID      int64       `json:"OBJECTID"`
	CurrentAADT   *int        `json:"CUR_AADT"`
	TruckPct      *float64    `json:"TRK_PCT"`
	SegLengthFeet *float64    `json:"SEG_LNGTH_FEET"`
	StateRouteNo  json.Number `json:"ST_RT_NO"`
}

// Geometry holds projected polyline paths: each path is a sequence of
// (x, y) pairs in the spatial reference requested from the service.
type Geometry struct {
	Paths [][][2]float64 `json:"paths"`
}

// queryResponse is the page envelope of the ArcGIS query operation.
type queryResponse struct {
	Features              []Feature `json:"features"`
	ExceededTransferLimit bool      `json:"exceededTransferLimit"`
	Error                 *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
