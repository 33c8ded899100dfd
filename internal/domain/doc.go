// Package domain models Global Weather Repository observations.
//
// # Data Source
//
// Observations come from the Global Weather Repository dataset (Kaggle), a
// daily-refreshed CSV of current weather for cities worldwide. Each row is
// one reading for a (location, timestamp) pair: geography, the free-text
// local update time, core weather metrics, and air-quality sub-indices.
//
// # Column Conventions
//
// Headers are normalized before schema binding: lowercased, with spaces,
// hyphens, and dots replaced by underscores. "air_quality_PM2.5" therefore
// binds as "air_quality_pm2_5" and "air_quality_us-epa-index" as
// "air_quality_us_epa_index". Unknown columns are rejected at bind time
// rather than silently ignored; the three identity columns (country,
// location_name, last_updated) are required.
//
// Timestamps:
//
//	last_updated is free text. Accepted layouts, tried in order:
//	"2006-01-02 15:04", RFC 3339, "2006-01-02T15:04", "2006-01-02".
//	A row whose timestamp matches none of them is dropped and counted;
//	this is the only way cleaning loses a row under the default policy.
//
// Missing values:
//
//	Blank or unparseable numeric cells parse to NaN and are later imputed
//	with the column median. Blank categorical cells are imputed with the
//	column mode. Imputation is global per column, not per group.
//
// Valid ranges:
//
//	Each numeric metric has a documented physical range (temperature
//	−50..60 °C, humidity 0..100 %, pressure 800..1100 mb, wind 0..400 kph,
//	precipitation 0..1000 mm, cloud 0..100 %, UV 0..15, air-quality fields
//	non-negative). Out-of-range values are clipped to the nearest bound by
//	default; the drop policy removes the row instead. Some negative sensor
//	values in the source are documented as likely data errors, which is why
//	the policy is configurable.
//
// Seasons use the Northern-Hemisphere convention: Dec-Feb Winter, Mar-May
// Spring, Jun-Aug Summer, Sep-Nov Fall.
//
// # Derived Metrics
//
// Heat index uses the simplified humidity adjustment
//
//	HI = T + (RH/100)·(T − 15)
//
// and wind chill the Environment Canada formulation
//
//	WC = 13.12 + 0.6215·T − 11.37·V^0.16 + 0.3965·T·V^0.16
//
// applied only when T ≤ 10 °C and V ≥ 4.8 kph, otherwise WC = T.
//
// # ID Generation
//
// Observation IDs are deterministic SHA-256 hashes of location|timestamp,
// the dataset's natural key. Reprocessing the same input produces the same
// IDs, which keeps SQLite upserts and topic replays idempotent. See
// [generateID].
package domain
