// Package analysis post-processes the series and histograms a run leaves
// behind.
//
//   - [Summarize]: mean, naive and blocked standard errors of a correlated series
//   - [BlockingError]: Flyvbjerg-Petersen estimate of the error of the mean
//   - [IntegratedTime]: autocorrelation time with a self-consistent window
//   - [SigmaDistance]: distance between two estimates in combined standard errors
//   - [RadialProfile]: azimuthally averaged density from a 2D histogram
//
// # Comparing with a reference
//
//	s := analysis.Summarize(series, 0)
//	if analysis.SigmaDistance(s.Mean, s.BlockedErr, 6.9951, 0.0037) > 5 {
//	    // the chain disagrees with the reference value
//	}
package analysis
