// Package telemetry instruments a live.Registry with Prometheus metrics and
// OpenTelemetry tracing.
//
// A Monitor implements live.Monitor. Pass it to the registry:
//
//	mon := telemetry.New(telemetry.WithRegistry(prometheus.DefaultRegisterer))
//	reg := live.NewRegistry(doc, live.WithMonitor(mon))
//
// Metrics collected:
//   - liveset_sets_open: Gauge of open sets
//   - liveset_groups_open: Gauge of open predicate groups
//   - liveset_membership_changes_total: Counter of joins and leaves by direction
//   - liveset_transform_failures_total: Counter of recovered transform panics
//   - liveset_teardowns_total: Counter of teardowns by status
//   - liveset_dispatch_records_total: Counter of dispatched records by kind
//   - liveset_dispatch_duration_seconds: Histogram of batch dispatch duration
//
// Every dispatched batch is also traced as a "liveset.dispatch" span on the
// global tracer provider unless WithTracer is used.
package telemetry
