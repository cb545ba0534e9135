// Package roof reads and interprets roof status endpoints.
//
// Roof controllers publish a line of free-form text such as
//
//	2025-07-11 10:47:42PM Roof Status: OPEN
//
// The parser turns that into a safe/unsafe boolean, an optional timestamp
// and a short label. The fetcher retrieves it over HTTP with a bounded
// timeout and size.
package roof
