// Package domain defines the core value types of the carbon site-activity dashboard.
//
// Types in this package are pure value objects with no I/O, no database
// dependencies, and no HTTP concerns. They are the shared language between
// the upstream client, the aggregation engine, and the report generator.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON tags mirror the site-activity API field names
//   - Small accessors are allowed (they're pure functions on the type)
package domain
