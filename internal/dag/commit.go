package dag

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Commit is an immutable snapshot record. Hash is the content digest of the
// tensor collection, not a hash of the record, so two commits over identical
// tensors share a key.
type Commit struct {
	Hash       Digest      `json:"hash"`
	ParentHash *Digest     `json:"parent_hash"`
	Timestamp  Timestamp   `json:"timestamp"`
	Message    string      `json:"message"`
	Metadata   interface{} `json:"metadata"`
}

// Parent returns the parent digest, if any.
func (c *Commit) Parent() (Digest, bool) {
	if c.ParentHash == nil {
		return Digest{}, false
	}
	return *c.ParentHash, true
}

// IsRoot reports whether the commit has no parent.
func (c *Commit) IsRoot() bool {
	return c.ParentHash == nil
}

// Timestamp is a UTC instant with microsecond precision, serialized as
// seconds since the epoch with six decimals: "1700000000.123456".
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to microseconds in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Microsecond)}
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("%d.%06d", ts.Unix(), ts.Nanosecond()/int(time.Microsecond))
}

// ParseTimestamp parses the "<seconds>.<micros>" text form.
func ParseTimestamp(s string) (Timestamp, error) {
	secs, frac, ok := strings.Cut(s, ".")
	if !ok || len(frac) != 6 {
		return Timestamp{}, fmt.Errorf("timestamp %q: expected <seconds>.<6 digits>", s)
	}
	sec, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	micros, err := strconv.ParseUint(frac, 10, 32)
	if err != nil {
		return Timestamp{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return Timestamp{Time: time.Unix(sec, int64(micros)*int64(time.Microsecond)).UTC()}, nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(ts.String())), nil
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
