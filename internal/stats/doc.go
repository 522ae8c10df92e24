// Package stats is the aggregation engine behind the dashboard and the
// daily report.
//
// Every function here is a pure transformation over a materialized record
// collection: records are filtered (Filter), folded into per-key buckets
// (GroupBy), rolled up by recommendation (ExtractSavings, ExtractByType) and
// shaped into rows (Assembler). Bad records are dropped rather than
// reported, and empty input yields empty slices or zero totals.
//
// Output ordering is deterministic regardless of input order:
//   - group rows: sites descending, then name ascending
//   - type rows: savings descending, then type ascending
//   - period rows: chronological
//   - daily breakdown: date descending, then name ascending
package stats
