// Package domain models ground observations of land cover and the feature
// table the flowering-risk classifier is trained on.
//
// # Data Source
//
// Observations come from a citizen-science land cover export: a JSON document
// with a top-level "count" and a "results" array. Each record carries a
// "measuredDate" and a "data" block with the land cover answers:
//
//	{
//	  "latitude": 40.1, "longitude": -122.2, "elevation": 100,
//	  "measuredDate": "2020-04-01",
//	  "data": {
//	    "landcoversDryGround": "false",
//	    "landcoversLeavesOnTrees": true,
//	    "landcoversStandingWater": "false"
//	  }
//	}
//
// Coordinates may be missing from the top level; the measurement coordinates
// in the data block (landcoversMeasurementLatitude, ...Longitude, ...Elevation)
// are used instead. Elevation defaults to 0.
//
// # Indicator Coercion
//
// Answers arrive as booleans, strings, or not at all:
//
//	true, "true", "TRUE"          -> 1
//	false, "false", "yes", 1, nil -> 0
//
// # Target Label
//
// flowering_risk is 1 when leaves are on the trees and the ground is not dry:
//
//	leaves_on_trees == 1 && dry_ground == 0
//
// # Climatology
//
// Climate features are monthly climatological means: every sample of a
// variable falling in a calendar month, across all years of the query window,
// is averaged into one value. Rows are joined to the climatology on month;
// months without coverage leave the climate features unset.
package domain
