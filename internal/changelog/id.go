package changelog

import (
	"crypto/rand"
	"time"
)

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// IDLength is the length of a client-generated entity id. Six base62
// characters give a collision space of roughly 56 billion values.
const IDLength = 6

// NewID returns a random base62 entity id.
//
// Every client-generated id uses this scheme. Millisecond-timestamp ids
// collide under rapid sequential creation and must not be reintroduced.
func NewID() string {
	buf := make([]byte, IDLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; treat a
		// failure as unrecoverable rather than degrade to weak ids.
		panic("changelog: reading random bytes: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}

// TimestampLayout is the ISO8601 layout every client stamps events with.
// Millisecond precision in UTC keeps the strings lexicographically
// sortable across clients.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t as an event timestamp string.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// DateLayout is the calendar-date form used to key dated partitions.
const DateLayout = "2006-01-02"

// PartitionDate returns the local calendar date for t, the key of a
// dated partition. It is recomputed from the wall clock at every call
// site, never derived from a stored epoch.
func PartitionDate(t time.Time) string {
	return t.Format(DateLayout)
}
