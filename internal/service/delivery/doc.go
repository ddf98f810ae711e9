// Package delivery implements the campaign delivery pipeline: fanning a
// personalized message out to a resolved audience through an injected
// provider, recording one durable Message/CommunicationLog pair per
// recipient, and folding the outcomes into campaign metrics.
//
// The dispatcher guarantees partial-failure isolation (a failing
// recipient never aborts the batch), exactly one attempt per resolved
// recipient, and a join barrier before metrics aggregation so observers
// never see a transient undercount. Campaign status is advanced only by
// this package: draft → sending exactly once per send, then a single
// terminal flip to sent.
package delivery
