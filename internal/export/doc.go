// Package export renders board elements to documents for download.
//
// PDF output draws pencil lines, rectangles, ellipses, straight lines and
// text, scaled to fit one page.
package export
