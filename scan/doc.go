// Package scan reads remote delimited objects in bounded byte-range windows.
//
// RangeReader fetches one window at a time. Scanner.ScanAll walks the whole
// object sequentially, parsing and filtering each window and carrying the
// trailing partial line into the next, until end-of-object or the safety
// ceiling. A failed window is logged and skipped. Scanner.ReadSample reads
// a bounded sample from the head of the object and, for objects larger than
// one window, from its midpoint.
package scan
