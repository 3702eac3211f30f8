package trace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// Reader reads traces back from the stream, newest first.
type Reader struct {
	client *redis.Client
	stream string
}

// NewReader creates a reader over stream; empty means DefaultStream.
func NewReader(client *redis.Client, stream string) *Reader {
	if stream == "" {
		stream = DefaultStream
	}
	return &Reader{client: client, stream: stream}
}

// Recent returns up to n traces, newest first.
func (r *Reader) Recent(ctx context.Context, n int) ([]Trace, error) {
	if n <= 0 {
		return nil, nil
	}
	msgs, err := r.client.XRevRangeN(ctx, r.stream, "+", "-", int64(n)).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange: %w", err)
	}
	out := make([]Trace, 0, len(msgs))
	for _, m := range msgs {
		t, err := decode(m)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Get finds the trace of runID, scanning from the newest entry.
func (r *Reader) Get(ctx context.Context, runID string) (Trace, error) {
	end, last := "+", ""
	for {
		msgs, err := r.client.XRevRangeN(ctx, r.stream, end, "-", scanBatch).Result()
		if err != nil {
			return Trace{}, fmt.Errorf("xrevrange: %w", err)
		}
		fresh := 0
		for _, m := range msgs {
			if m.ID == last {
				continue
			}
			fresh++
			if id, _ := m.Values["run_id"].(string); id == runID {
				return decode(m)
			}
		}
		if fresh == 0 || len(msgs) < scanBatch {
			return Trace{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		// The range end is inclusive, so the next page repeats this entry.
		last = msgs[len(msgs)-1].ID
		end = last
	}
}

func decode(m redis.XMessage) (Trace, error) {
	raw, ok := m.Values["envelope"].(string)
	if !ok {
		return Trace{}, fmt.Errorf("stream entry %s has no envelope", m.ID)
	}
	env, err := UnmarshalEnvelope([]byte(raw))
	if err != nil {
		return Trace{}, err
	}
	if env.EventType != EventType {
		return Trace{}, fmt.Errorf("stream entry %s: unexpected event type %s", m.ID, env.EventType)
	}
	var t Trace
	if err := json.Unmarshal(env.Data, &t); err != nil {
		return Trace{}, fmt.Errorf("decode trace %s: %w", m.ID, err)
	}
	t.StreamID = m.ID
	return t, nil
}
