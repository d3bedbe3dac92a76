// Package domain models campus air-quality readings and the rules used to
// present them.
//
// # Data Sources
//
// Readings come from an air-quality API exposing two endpoints:
//
//	GET {base}/latest                        → [{node_id, ts, lat, lng, pm2_5, pm10, co2, temp, rh}, ...]
//	GET {base}/series?node_id=<id>&minutes=N → {node_id, points: [{ts, pm2_5}, ...]}
//
// When the API cannot be reached the service may substitute synthetic data
// for the fixed node roster (NODE-A, NODE-B).
//
// DHT temperature/humidity records come from a separate spreadsheet CSV
// export with the column order (timestamp, device, temp, humidity).
//
// # Missing Values
//
// Every reading field other than node_id and ts is optional. An absent value
// is a nil pointer and means "no data"; it is never treated as zero except
// where stated (the alert check counts an absent PM2.5 as 0).
//
// # Severity Classification
//
// PM2.5 (µg/m³) maps onto six ordinal tiers. Upper bounds are inclusive:
//
//	absent  Unknown    (158,158,158)
//	≤ 12    Good       (46,204,113)
//	≤ 35    Moderate   (241,196,15)
//	≤ 55    High       (230,126,34)
//	≤ 150   VeryHigh   (231,76,60)
//	> 150   Hazardous  (142,68,173)
//
// The node-status badge uses a separate, coarser split and is not derived
// from the tiers:
//
//	absent  —
//	≤ 35    ✅ ok
//	≤ 55    🟧 warn
//	> 55    🟥 danger
package domain
