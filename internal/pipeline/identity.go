package pipeline

import (
	"strconv"

	"github.com/theirongolddev/cstats/internal/source"
)

// identityStrategy derives a message identity from an event, or "" when the
// event lacks the field the strategy relies on.
type identityStrategy func(ev source.Event) string

// Identity chains, tried in order; the first non-empty result wins. The final
// synthetic strategy always succeeds, so every event has an identity.
//
//	assistant: message.id → uuid → <session>:<line>:assistant
//	user:      uuid → <session>:<line>:user
var (
	assistantIdentity = []identityStrategy{byMessageID, byUUID, synthetic(source.KindAssistant)}
	userIdentity      = []identityStrategy{byUUID, synthetic(source.KindUser)}
)

func byMessageID(ev source.Event) string { return ev.MessageID }

func byUUID(ev source.Event) string { return ev.UUID }

func synthetic(kind source.Kind) identityStrategy {
	suffix := ":" + kind.String()
	return func(ev source.Event) string {
		return ev.SessionID + ":" + strconv.Itoa(ev.Index) + suffix
	}
}

// resolveIdentity applies strategies in order.
func resolveIdentity(strategies []identityStrategy, ev source.Event) string {
	for _, s := range strategies {
		if id := s(ev); id != "" {
			return id
		}
	}
	return ""
}

// identityFor picks the chain matching the event's kind.
func identityFor(ev source.Event) string {
	if ev.Kind == source.KindAssistant {
		return resolveIdentity(assistantIdentity, ev)
	}
	return resolveIdentity(userIdentity, ev)
}
