package transport

import (
	"babble/domain"
	"babble/protocol"
)

// Deliver writes an answer to ep.
// A set answer sends its true count, then only the most recent timelineMax items.
func Deliver(ep domain.Endpoint, answer domain.Answer, timelineMax int) error {
	switch answer.Shape {
	case domain.SingleAnswer:
		return ep.Send(protocol.EncodeMessage(answer.Messages[0]))
	case domain.SetAnswer:
		items := answer.Messages
		if len(items) > timelineMax {
			items = items[len(items)-timelineMax:]
		}
		frames := make([][]byte, 0, len(items)+1)
		frames = append(frames, protocol.EncodeCount(answer.Count))
		for _, item := range items {
			frames = append(frames, protocol.EncodeMessage(item))
		}
		return ep.Send(frames...)
	default:
		return nil
	}
}
