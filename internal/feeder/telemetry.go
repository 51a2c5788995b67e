package feeder

// Telemetry constants for counters
const (
	// telemetryEventsReceived counts normalized events received from the feed
	telemetryEventsReceived = "feed.events.received"

	// telemetryEventsJournaled counts events written to the journal
	telemetryEventsJournaled = "feed.events.journaled"

	// telemetryEventsFiltered counts events dropped below the notional threshold
	telemetryEventsFiltered = "feed.events.filtered"

	// telemetryFeedErrors counts stream-level errors (reconnects, bad payloads)
	telemetryFeedErrors = "feed.errors"

	// telemetryJournalErrors counts failed journal appends
	telemetryJournalErrors = "feed.journal.errors"
)
