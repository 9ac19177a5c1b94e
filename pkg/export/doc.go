// Package export writes accumulated results as CSV or XLSX.
package export
