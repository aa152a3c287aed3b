package actor

import (
	"fmt"
	"reflect"
	"strings"
)

// ActorRefID is the logical identity of an actor: a name plus the prop id
// (fully qualified type name) of the actor kind that handles it. It is a
// weak, lookup-only key — holding one does not keep the actor alive and
// dropping one does not stop it; the System alone owns the actor's
// mailbox and worker.
type ActorRefID struct {
	Name   string
	PropID string
}

// String renders the "name:propId" identifier form.
func (r ActorRefID) String() string {
	return r.Name + ":" + r.PropID
}

// ParseActorRefID parses the "name:propId" form produced by String. It is
// the inverse of String for every ActorRefID whose Name contains no ":".
func ParseActorRefID(identifier string) (ActorRefID, error) {
	idx := strings.IndexByte(identifier, ':')
	if idx < 0 {
		return ActorRefID{}, fmt.Errorf("actor: malformed ref id %q: missing ':'", identifier)
	}
	return ActorRefID{Name: identifier[:idx], PropID: identifier[idx+1:]}, nil
}

// RefID builds the ActorRefID that Tell[A](sys, name, msg) would deliver
// to, without sending a message. Useful for Stop/Cancel, which need a ref
// rather than a message.
func RefID[A Actor](name string) ActorRefID {
	return ActorRefID{Name: name, PropID: propIDOf[A]()}
}

// propIDOf returns the fully qualified type name used as the prop id for
// actor kind A, e.g. "github.com/lguibr/keanu/actor_test.boomActor".
func propIDOf[A Actor]() string {
	var zero A
	t := reflect.TypeOf(&zero).Elem()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
