package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox"
)

// ErrNoDecoder reports an event type/version pair with no registered decoder.
var ErrNoDecoder = errors.New("no decoder registered")

// Decoder turns the data section of a payload envelope into a typed event.
type Decoder func(data json.RawMessage) (any, error)

type decoderKey struct {
	event   enums.OutboxEventType
	version int
}

// DecoderRegistry resolves versioned payload decoders for consumers.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[decoderKey]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[decoderKey]Decoder{}}
}

// Register binds decoder to (eventType, version). Re-registering a pair is an error.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder Decoder) error {
	switch {
	case !eventType.IsValid():
		return fmt.Errorf("register decoder: unknown event type %q", eventType)
	case version < 1:
		return fmt.Errorf("register decoder: version must be positive, got %d", version)
	case decoder == nil:
		return errors.New("register decoder: nil decoder")
	}

	key := decoderKey{event: eventType, version: version}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.decoders[key]; dup {
		return fmt.Errorf("register decoder: %s@v%d already registered", eventType, version)
	}
	r.decoders[key] = decoder
	return nil
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	r.mu.RLock()
	decoder, ok := r.decoders[decoderKey{event: eventType, version: version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s@v%d", ErrNoDecoder, eventType, version)
	}
	return decoder(data)
}

// DecodeEnvelope decodes envelope.Data. Envelopes written before versioning
// carry version 0 and are read as v1.
func (r *DecoderRegistry) DecodeEnvelope(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (any, error) {
	version := envelope.Version
	if version == 0 {
		version = 1
	}
	return r.Decode(eventType, version, envelope.Data)
}

// JSONDecoder unmarshals data into a new T and returns *T.
func JSONDecoder[T any]() Decoder {
	return func(data json.RawMessage) (any, error) {
		if len(data) == 0 {
			return nil, errors.New("empty event data")
		}
		out := new(T)
		if err := json.Unmarshal(data, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
