package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingType is returned by Create when the JSON object has no "type"
// discriminator field.
var ErrMissingType = errors.New("event has no \"type\" field")

// DecodeFunc turns one raw event object into a typed Event. The raw data is
// known to be well-formed JSON carrying the decoder's registered type.
type DecodeFunc func(raw json.RawMessage) (Event, error)

// Factory builds typed events from raw stream-events JSON objects.
//
// The zero value is not usable; construct with NewFactory, which seeds the
// decoders for every event type the upstream server emits. Additional types
// can be registered before the factory is shared between goroutines.
type Factory struct {
	decoders map[string]DecodeFunc
}

// NewFactory returns a factory with all built-in event decoders registered.
func NewFactory() *Factory {
	f := &Factory{decoders: make(map[string]DecodeFunc)}
	for name, decode := range builtinDecoders {
		// Built-in names are unique by construction.
		_ = f.Register(name, decode)
	}
	return f
}

// Register adds a decoder for the given event type. Registering a type
// twice is an error: a silent override would make event decoding depend on
// registration order.
func (f *Factory) Register(eventType string, decode DecodeFunc) error {
	if _, exists := f.decoders[eventType]; exists {
		return fmt.Errorf("duplicate event type %q", eventType)
	}
	f.decoders[eventType] = decode
	return nil
}

// Create decodes one event object. Objects without a "type" field fail with
// ErrMissingType; objects with an unregistered type become UnhandledEvent.
func (f *Factory) Create(data []byte) (Event, error) {
	var envelope struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed event data: %w", err)
	}
	if envelope.Type == nil {
		return nil, ErrMissingType
	}

	decode, ok := f.decoders[*envelope.Type]
	if !ok {
		return &UnhandledEvent{base: base{Type: *envelope.Type, Raw: data}}, nil
	}
	event, err := decode(data)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// decodeInto unmarshals raw into event and stamps the shared base fields.
func decodeInto(raw json.RawMessage, eventType string, event any, b *base) error {
	if err := json.Unmarshal(raw, event); err != nil {
		return fmt.Errorf("%s: %w", eventType, err)
	}
	b.Type = eventType
	b.Raw = raw
	return nil
}

var builtinDecoders = map[string]DecodeFunc{
	"error-event": func(raw json.RawMessage) (Event, error) {
		var e ErrorEvent
		if err := decodeInto(raw, "error-event", &e, &e.base); err != nil {
			return nil, err
		}
		return &e, nil
	},

	"patchset-created": func(raw json.RawMessage) (Event, error) {
		var e PatchsetCreatedEvent
		if err := decodeInto(raw, "patchset-created", &e, &e.base); err != nil {
			return nil, err
		}
		if e.Change == nil || e.Patchset == nil || e.Uploader == nil {
			return nil, errors.New("patchset-created: missing change, patchSet or uploader")
		}
		return &e, nil
	},

	"draft-published": func(raw json.RawMessage) (Event, error) {
		var e DraftPublishedEvent
		if err := decodeInto(raw, "draft-published", &e, &e.base); err != nil {
			return nil, err
		}
		if e.Change == nil || e.Patchset == nil || e.Uploader == nil {
			return nil, errors.New("draft-published: missing change, patchSet or uploader")
		}
		return &e, nil
	},

	"comment-added": func(raw json.RawMessage) (Event, error) {
		var e CommentAddedEvent
		if err := decodeInto(raw, "comment-added", &e, &e.base); err != nil {
			return nil, err
		}
		if e.Change == nil || e.Patchset == nil || e.Author == nil {
			return nil, errors.New("comment-added: missing change, patchSet or author")
		}
		return &e, nil
	},

	"change-merged": func(raw json.RawMessage) (Event, error) {
		var e ChangeMergedEvent
		if err := decodeInto(raw, "change-merged", &e, &e.base); err != nil {
			return nil, err
		}
		if e.Change == nil || e.Patchset == nil || e.Submitter == nil {
			return nil, errors.New("change-merged: missing change, patchSet or submitter")
		}
		return &e, nil
	},

	"merge-failed": func(raw json.RawMessage) (Event, error) {
		var e MergeFailedEvent
		if err := decodeInto(raw, "merge-failed", &e, &e.base); err != nil {
			return nil, err
		}
		if e.Change == nil || e.Patchset == nil || e.Submitter == nil {
			return nil, errors.New("merge-failed: missing change, patchSet or submitter")
		}
		return &e, nil
	},

	"change-abandoned": func(raw json.RawMessage) (Event, error) {
		var e ChangeAbandonedEvent
		if err := decodeInto(raw, "change-abandoned", &e, &e.base); err != nil {
			return nil, err
		}
		if e.Change == nil || e.Abandoner == nil {
			return nil, errors.New("change-abandoned: missing change or abandoner")
		}
		return &e, nil
	},

	"change-restored": func(raw json.RawMessage) (Event, error) {
		var e ChangeRestoredEvent
		if err := decodeInto(raw, "change-restored", &e, &e.base); err != nil {
			return nil, err
		}
		if e.Change == nil || e.Restorer == nil {
			return nil, errors.New("change-restored: missing change or restorer")
		}
		return &e, nil
	},

	"ref-updated": func(raw json.RawMessage) (Event, error) {
		var e RefUpdatedEvent
		if err := decodeInto(raw, "ref-updated", &e, &e.base); err != nil {
			return nil, err
		}
		if e.RefUpdate == nil {
			return nil, errors.New("ref-updated: missing refUpdate")
		}
		return &e, nil
	},

	"reviewer-added": func(raw json.RawMessage) (Event, error) {
		var e ReviewerAddedEvent
		if err := decodeInto(raw, "reviewer-added", &e, &e.base); err != nil {
			return nil, err
		}
		if e.Change == nil || e.Reviewer == nil {
			return nil, errors.New("reviewer-added: missing change or reviewer")
		}
		return &e, nil
	},

	"topic-changed": func(raw json.RawMessage) (Event, error) {
		var e TopicChangedEvent
		if err := decodeInto(raw, "topic-changed", &e, &e.base); err != nil {
			return nil, err
		}
		if e.Change == nil || e.Changer == nil {
			return nil, errors.New("topic-changed: missing change or changer")
		}
		return &e, nil
	},
}
