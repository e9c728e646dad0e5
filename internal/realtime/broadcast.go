package realtime

import (
	"context"
	"log"
	"reflect"

	"github.com/google/uuid"
)

// Op is a business operation producing a result that may deserve a push.
type Op[T any] func(ctx context.Context) (T, error)

// BroadcastConfig controls how a wrapped operation's result is turned into a
// push. Zero values fall back to defaults: EventName to EventNotification,
// UserSelector to a reflective lookup of User/UserID-shaped fields, and
// PayloadMapper to the identity mapping.
type BroadcastConfig[T any] struct {
	EventName     string
	UserSelector  func(result T) (uuid.UUID, bool)
	PayloadMapper func(result T) any
}

// Broadcast wraps op so that, after it completes successfully, the selected
// owner receives the mapped payload over their live connections. Whether the
// business action succeeded is decoupled from whether the push went out:
// selection, mapping, and delivery failures are logged and swallowed, and the
// wrapped operation's result is returned unchanged either way.
func Broadcast[T any](emitter Emitter, cfg BroadcastConfig[T], op Op[T]) Op[T] {
	eventName := cfg.EventName
	if eventName == "" {
		eventName = EventNotification
	}

	return func(ctx context.Context) (T, error) {
		result, err := op(ctx)
		if err != nil {
			return result, err
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("realtime: broadcast for %s panicked: %v", eventName, r)
				}
			}()

			owner, ok := selectOwner(cfg.UserSelector, result)
			if !ok {
				return
			}

			payload := any(result)
			if cfg.PayloadMapper != nil {
				payload = cfg.PayloadMapper(result)
			}
			emitter.EmitToUser(owner, eventName, payload)
		}()

		return result, nil
	}
}

func selectOwner[T any](selector func(T) (uuid.UUID, bool), result T) (uuid.UUID, bool) {
	if selector != nil {
		return selector(result)
	}
	return ownerFromResult(result)
}

// ownerFromResult inspects the result for a User/UserID-shaped field: a
// uuid-typed UserID, or a User struct carrying a uuid-typed ID.
func ownerFromResult(result any) (uuid.UUID, bool) {
	v := reflect.ValueOf(result)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return uuid.Nil, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return uuid.Nil, false
	}

	if id, ok := uuidField(v.FieldByName("UserID")); ok {
		return id, true
	}

	user := v.FieldByName("User")
	for user.Kind() == reflect.Pointer {
		if user.IsNil() {
			return uuid.Nil, false
		}
		user = user.Elem()
	}
	if user.Kind() == reflect.Struct {
		if id, ok := uuidField(user.FieldByName("ID")); ok {
			return id, true
		}
	}

	return uuid.Nil, false
}

var uuidType = reflect.TypeOf(uuid.UUID{})

func uuidField(v reflect.Value) (uuid.UUID, bool) {
	if !v.IsValid() || v.Type() != uuidType {
		return uuid.Nil, false
	}
	id := v.Interface().(uuid.UUID)
	if id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
