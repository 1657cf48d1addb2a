// Package wamp implements the signaling.Transport interface using a WAMP
// realm as the room-based messaging substrate. Each room maps to a WAMP
// topic; every device joined to the room publishes and subscribes to the
// same topic, so any device can observe any other device's signaling
// events, including in the multi-device race that select_answer resolves.
//
// If TLS is used (NewServer/NewClient with insecureSkipVerify=false) then
// the client's certificate should be trusted by the platform, or skip
// verification should be used for testing only via NewInsecureServer.
package wamp
