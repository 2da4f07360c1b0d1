// Package saga wires the participants' event handlers to the bus. The
// routing table is the single place that knows the full subscription
// set: adding a reactive behavior means adding one entry here.
package saga

import (
	"orderflow/internal/event"
	"orderflow/internal/eventbus"
	"orderflow/internal/saga/fulfillment"
	"orderflow/internal/saga/inventory"
)

// Consumer group names; on AMQP each maps to its own durable queue.
const (
	GroupInventory   = "inventory"
	GroupFulfillment = "fulfillment"
)

type route struct {
	group   string
	subject string
	handler eventbus.Handler
}

type Router struct {
	routes []route
}

func NewRouter(inv *inventory.Participant, ful *fulfillment.Participant) *Router {
	return &Router{
		routes: []route{
			{GroupInventory, event.SourceOrderService + "." + event.TypeOrderCreated, inv.HandleOrderCreated},
			{GroupInventory, event.SourcePaymentService + "." + event.TypePaymentCompleted, inv.HandlePaymentCompleted},
			{GroupInventory, event.SourceOrderService + "." + event.TypeOrderCanceled, inv.HandleOrderCanceled},

			{GroupFulfillment, event.SourceTaxService + "." + event.TypeTaxCalculated, ful.HandleTaxCalculated},
			{GroupFulfillment, event.SourcePaymentService + "." + event.TypePaymentCompleted, ful.HandlePaymentCompleted},
			{GroupFulfillment, event.SourceOrderService + "." + event.TypeOrderCanceled, ful.HandleOrderCanceled},
		},
	}
}

// Register binds every route on the bus. Must run before bus.Start.
func (r *Router) Register(bus eventbus.Bus) {
	for _, rt := range r.routes {
		bus.Subscribe(rt.group, rt.subject, rt.handler)
	}
}

// Subjects lists the distinct subjects a group consumes, mostly for
// logging and diagnostics.
func (r *Router) Subjects(group string) []string {
	var subjects []string
	for _, rt := range r.routes {
		if rt.group == group {
			subjects = append(subjects, rt.subject)
		}
	}
	return subjects
}
