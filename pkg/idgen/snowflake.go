package idgen

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	machineIDBits = 10
	sequenceBits  = 12

	maxMachineID = (1 << machineIDBits) - 1 // 1023
	maxSequence  = (1 << sequenceBits) - 1  // 4095

	machineIDShift = sequenceBits
	timestampShift = sequenceBits + machineIDBits
)

// DefaultEpoch is 2024-01-01T00:00:00Z in unix milliseconds.
const DefaultEpoch int64 = 1704067200000

// Snowflake generates 64-bit ids laid out as
// 41 bits of milliseconds since epoch | 10 bits machine id | 12 bits sequence.
type Snowflake struct {
	mu        sync.Mutex
	epoch     int64
	machineID int64
	sequence  int64
	lastTime  int64
	now       func() int64
}

// NewSnowflake creates a generator. machineID must be in [0, 1023].
func NewSnowflake(machineID, epoch int64) (*Snowflake, error) {
	if machineID < 0 || machineID > maxMachineID {
		return nil, fmt.Errorf("machine_id must be between 0 and %d, got %d", maxMachineID, machineID)
	}
	return &Snowflake{
		epoch:     epoch,
		machineID: machineID,
		now:       func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// Generate returns the next id in decimal form.
func (g *Snowflake) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now < g.epoch {
		return "", fmt.Errorf("current time is before custom epoch")
	}
	if now < g.lastTime {
		return "", fmt.Errorf("clock moved backwards: current=%d, last=%d", now, g.lastTime)
	}

	if now == g.lastTime {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// Sequence exhausted, wait for next millisecond
			for now <= g.lastTime {
				now = g.now()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTime = now

	id := ((now - g.epoch) << timestampShift) | (g.machineID << machineIDShift) | g.sequence
	return strconv.FormatInt(id, 10), nil
}

// Time extracts the creation time encoded in an id.
func (g *Snowflake) Time(id string) (time.Time, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid snowflake id: %w", err)
	}
	if n < 0 {
		return time.Time{}, fmt.Errorf("invalid snowflake id: negative")
	}
	return time.UnixMilli((n >> timestampShift) + g.epoch), nil
}
