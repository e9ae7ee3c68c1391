// Package internaldefs holds the metric families shared by the exporters.
//
// Both the Prometheus and OTel exporters render the same family names, label keys
// and bucket bounds from these tables, so renaming a metric here renames it
// everywhere.
package internaldefs
