// World event types produced by the environment engine
package world

import "time"

// EventType classifies a world development.
type EventType string

const (
	// EventSeed replays one caller-provided seed record into the narrative.
	EventSeed EventType = "seed"
	// EventSpawn adds a being to one of the populations.
	EventSpawn EventType = "spawn"
	// EventExtinction removes a being from one of the populations.
	EventExtinction EventType = "extinction"
	// EventEncounter is a population-neutral development.
	EventEncounter EventType = "encounter"
	// EventGod is a rare large swing, catastrophe or boon.
	EventGod EventType = "god_event"
)

// Event is one world development. Sentients and NonSentients carry the
// population counts after the event was applied. Notice, when set,
// flags a condition the controller should surface as a system record,
// such as the population cap being hit.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	Description  string    `json:"description"`
	Sentients    int       `json:"sentients"`
	NonSentients int       `json:"non_sentients"`
	Notice       string    `json:"notice,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
