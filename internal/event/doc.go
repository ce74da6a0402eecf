// Package event provides the typed pub-sub bus that decouples the router
// from peripheral listeners such as nav highlighting, titles and visit
// counters.
//
// Event kinds form a closed enum ([Type]); each kind has one payload struct.
// Handlers run synchronously, in registration order, and a panicking
// handler never prevents delivery to the others.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//
//	event.On(bus, func(e event.RouteChangedEvent) {
//	    highlight(e.Path)
//	})
//
//	bus.SubscribeAll(func(e event.Event) {
//	    logger.Debug("event", "type", e.EventType().String())
//	})
//
//	bus.Publish(event.NewRouteChangedEvent("/news", "news"))
package event
