// Package trace holds the measurement data model used by the detector: a
// single 1D trace (values against a coordinate axis) and a 2D charge
// stability diagram (rows of values sharing one column axis).
//
// # Layout
//
// Diagrams are row-major. Values[r][c] is the measurement of row r at the
// column coordinate X[c]. Every row must have exactly len(X) samples.
//
// # File Format
//
// Diagrams are exchanged as normalized CSV files produced by the raw data
// converters:
//
//	# optional comment lines
//	x0,x1,x2,...,xN      <- column coordinates
//	v00,v01,...,v0N      <- row 0
//	v10,v11,...,v1N      <- row 1
//
// Lines starting with '#' are ignored. Blank cells are rejected.
//
// # Thread Safety
//
// Trace and Diagram values are treated as immutable once built. The
// DiagramCache type is safe for concurrent use.
package trace
