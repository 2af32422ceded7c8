package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is a ledger mutation. The set of events is closed.
type Event interface {
	EventType() string
	isEvent()
}

type WordCompleted struct {
	WordID WordID `json:"wordId"`
}

type FavoriteToggled struct {
	WordID WordID `json:"wordId"`
}

type TierAcknowledged struct {
	TierID TierID `json:"tierId"`
}

// QuizRecorded appends a finished quiz to the ledger history.
type QuizRecorded struct {
	Result QuizResult `json:"result"`
}

// DayClosed is the daily streak tick: activity at or after Since extends the
// streak, otherwise it resets.
type DayClosed struct {
	Since time.Time `json:"since"`
}

func (WordCompleted) EventType() string    { return "word_completed" }
func (FavoriteToggled) EventType() string  { return "favorite_toggled" }
func (TierAcknowledged) EventType() string { return "tier_acknowledged" }
func (QuizRecorded) EventType() string     { return "quiz_recorded" }
func (DayClosed) EventType() string        { return "day_closed" }

func (WordCompleted) isEvent()    {}
func (FavoriteToggled) isEvent()  {}
func (TierAcknowledged) isEvent() {}
func (QuizRecorded) isEvent()     {}
func (DayClosed) isEvent()        {}

// EventEnvelope is the wire form of an Event.
type EventEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeEvent turns an envelope into a concrete Event. Only user-driven events
// are accepted from the wire.
func DecodeEvent(env EventEnvelope) (Event, error) {
	var (
		ev  Event
		err error
	)
	switch env.Type {
	case "word_completed":
		var e WordCompleted
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case "favorite_toggled":
		var e FavoriteToggled
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case "tier_acknowledged":
		var e TierAcknowledged
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	default:
		return nil, fmt.Errorf("unsupported event type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return ev, nil
}
