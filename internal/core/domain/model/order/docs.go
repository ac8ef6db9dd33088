// Package order implements the Order aggregate as seen by the dispatch
// engine: the delivery lifecycle of a marketplace order from ready-for-pickup
// through rider assignment to delivery or cancellation.
//
// The aggregate enforces its status state machine and the consistency
// between status and rider assignment. The wider marketplace (menus,
// payment, refunds) is out of scope; only the fields the dispatch engine
// reads and writes are modeled here.
package order
