// Package discovery implements the ASCOM Alpaca UDP discovery responder.
//
// A client broadcasts "alpacadiscovery1" to port 32227; the responder answers
// {"AlpacaPort":<port>} so the client can find the HTTP API. Other payloads,
// including other protocol versions, get no answer.
package discovery
