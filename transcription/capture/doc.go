// Package capture turns a live microphone stream into an encoded audio
// payload.
//
// The platform is injected: a Device opens a Stream of PCM frames, a
// RecorderFactory encodes that stream into a container, and a SupportProbe
// reports which containers the platform claims to support. Encoding
// negotiation is the pure function SelectEncoding.
//
//	a := capture.New(device, newRecorder, probe, capture.Config{})
//	c, err := a.Start(ctx)
//	go func() { for lvl := range c.Levels() { render(lvl) } }()
//	src, err := c.Stop()
package capture
