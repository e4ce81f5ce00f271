package core

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

var ownersMu sync.Mutex
var owners = map[uuid.UUID]interface{}{}

// IdentifierAquireNewID hands out a fresh id bound to owner.
func IdentifierAquireNewID(owner interface{}) uuid.UUID {
	ownersMu.Lock()
	defer ownersMu.Unlock()
	id := uuid.New()
	owners[id] = owner
	return id
}

// IdentifierOwner returns the owner registered for id, or nil.
func IdentifierOwner(id uuid.UUID) interface{} {
	ownersMu.Lock()
	defer ownersMu.Unlock()
	return owners[id]
}

func IdentifierReleaseID(id uuid.UUID) error {
	ownersMu.Lock()
	defer ownersMu.Unlock()
	if _, ok := owners[id]; !ok {
		err := errors.Newf("identifier_release_id: id '%s' is not registered. Nothing was done", id)
		LogWarn(err.Error())
		return err
	}
	delete(owners, id)
	return nil
}
