// Package websocket maintains a streaming session against the Propheseer
// real-time API.
//
// A Session dials the endpoint, authenticates, and dispatches inbound
// messages to registered event handlers. It keeps the connection alive with
// periodic pings and, when enabled, reconnects with exponential backoff
// after a drop, replaying the full subscription set on every successful
// reconnect:
//
//	ws, err := websocket.New(websocket.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	ws.On(websocket.EventMarketUpdate, func(msg websocket.Message) {
//		process(msg.Market)
//	})
//	if err := ws.Connect(ctx); err != nil {
//		return err
//	}
//	ws.Subscribe([]string{"pm_12345"})
//	defer ws.Close()
package websocket
