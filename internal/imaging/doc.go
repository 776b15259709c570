// Package imaging renders diagrams, transition masks and traces as images.
//
// Diagram renderings follow the plotting convention of charge stability
// diagrams: row 0 is drawn at the bottom and column 0 at the left, so a
// rendered image is the vertically flipped array. Each diagram cell becomes
// a scale x scale block of pixels.
//
// # Outputs
//
//   - Heatmap: diagram values mapped through a colour palette
//   - MaskImage: transitions in white on black, optionally thickened
//   - Overlay: heatmap with transitions painted in a marker colour
//   - LinesImage: extracted segments, one colour per label
//   - PlotTrace: one trace with its confirmed transitions marked
//
// # Encoding
//
// Images are returned as image.Image for saving with Save, or wrapped by
// Encode into an ImageResult carrying a base64 PNG for protocol responses.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package imaging
