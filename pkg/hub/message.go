// Package hub fans websocket messages out to every connected viewer.
// Slow viewers lose messages instead of stalling the camera loop.
package hub

import "github.com/gofiber/websocket/v2"

// Kind tells the write pump which websocket frame type to use.
type Kind uint8

const (
	// KindJSON is a text frame carrying encoded JSON (detection results).
	KindJSON Kind = iota
	// KindJPEG is a binary frame carrying one encoded video frame.
	KindJPEG
)

// Message is one broadcast payload. Data is shared between clients and must
// not be modified after Broadcast.
type Message struct {
	Kind Kind
	Data []byte
}

func (m Message) frameType() int {
	if m.Kind == KindJPEG {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
