// Package detector implements the adaptive transition detector for charge
// stability diagram traces.
//
// A Detector streams one trace sample by sample and decides, for every
// sample, whether an abrupt change (a charge transition) occurred. The
// decision compares the latest working derivative against the previous
// smoothed derivative and sizes the acceptance threshold from a noise floor
// that is seeded by calibration and keeps growing with every sample judged
// to be noise.
//
// # Pipeline
//
//  1. Calibration: CalibrateDiagram (or CalibrateTrace for 1D data) picks a
//     region assumed free of transitions (row at 80% of the vertical extent,
//     first half of the columns), differentiates it and subtracts a lagged
//     EWMA. The residuals seed the noise floor.
//
//  2. Working value: the forward derivative against the previous sample, or
//     the raw value itself in transconductance mode.
//
//  3. Filtering: an EWMA (decay 0.2 by default) seeded with the first
//     working value.
//
//  4. Residual: working[i] - filtered[i-1]. The one-step lag makes a sudden
//     change stand out against a filter that has not seen it yet.
//
//  5. Threshold: sigma times the root mean square of the noise history.
//
//  6. Gating: a residual beyond the threshold is confirmed only when the
//     working value opposes the trend reference, the mean filtered value
//     over the last 30 samples minus the two most recent. Rising crossings
//     need a negative background; falling crossings a positive one.
//
//  7. Feedback: every residual that is not a confirmed transition is added
//     to the noise history. Confirmed transitions never inflate it.
//
// # Warm-up
//
// The first three samples (two in transconductance mode) are buffered. The
// first four positions of every output are always false, and so is every
// position of a trace shorter than four samples.
//
// # Errors
//
// Non-finite working values are reported instead of silently producing
// spurious transitions: ErrDegenerateAxis when two adjacent coordinates are
// equal, ErrNonFiniteSample when an input value is NaN or infinite.
//
// # Thread Safety
//
// A Detector is not safe for concurrent use. A Calibration is read-only after
// creation and may be shared by any number of detectors.
package detector
