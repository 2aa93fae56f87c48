// Package soundings loads logged sonar soundings from CSV and filters them
// into a PointSet ready for interpolation.
//
// Depth columns are recorded in centimetres by the logger and converted to
// metres here. Filtering removes shallow outliers, low-confidence pings and
// points outside the surveyed area of interest.
package soundings
