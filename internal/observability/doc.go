// Package observability provides logging and metrics support for the hybrid
// paper service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger, closer, err := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/papers.log",
//	})
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//
// Scope a logger to a store call:
//
//	logger = observability.WithStoreContext(logger, "document", "find_by_id")
//
// # Metrics
//
//	metrics := observability.NewMetrics("hybrid_papers")
//	metrics.RecordStoreQuery("relational", "advanced_search", "ok", elapsed.Seconds())
//	metrics.RecordDualWrite("create", "partial")
//
// # Standard Fields
//
//   - request_id: chi request identifier
//   - correlation_id: caller-supplied correlation identifier
//   - store: relational or document
//   - operation: adapter or router operation name
//   - paper_id: cross-store paper identifier
//
// All components are safe for concurrent use from multiple goroutines.
package observability
