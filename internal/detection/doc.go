// Package detection extracts straight line segments from transition masks.
//
// A transition mask marks, per diagram row, the columns where a charge
// transition was confirmed. Transitions of one charge state form lines that
// cross many rows, so grouping mask pixels into segments separates real
// transitions from isolated detections.
//
// # Pipeline
//
//  1. Clustering: group 8-connected mask pixels and drop clusters smaller
//     than MinCluster
//  2. Voting: accumulate the remaining pixels in (rho, theta) Hough space
//  3. Peaks: keep local maxima with at least MinLength/2 votes, strongest first
//  4. Segments: gather unclaimed pixels within Tolerance of each peak line and
//     keep the segment when it is at least MinLength long
//
// Each pixel belongs to at most one segment.
//
// # Coordinate System
//
// Mask cell (row, col) is pixel Point{X: col, Y: row}:
//   - Origin (0, 0) at the first sample of the first row
//   - X increases with the column (sweep) coordinate
//   - Y increases with the row index
//
// # Output
//
// LinesResult carries the segments, the pixels of each segment, a label image
// (segment number per pixel, 0 elsewhere) and the cleaned binary image with 1
// on segment pixels. The cleaned image is the final transition map of a
// diagram.
//
// # Alternative Extractors
//
// Extractor is the contract consumed by the scan pipeline. Hough is the
// built-in implementation; an EDLines binding or any other segment detector
// can be substituted as long as it honours the same label and image layout.
package detection
