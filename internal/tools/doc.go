// Package tools implements the built-in drawing tools.
//
// Every tool draws on a local canvas (an element store mirroring what the
// participant sees) and sends its messages through a Sender. Continuous
// gestures are throttled: points arriving faster than the emit interval
// are drawn locally but not sent.
package tools
