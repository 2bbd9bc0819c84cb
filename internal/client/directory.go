package client

import (
	"sync"

	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

// Directory is a local bidirectional username/id cache, populated from the
// same search responses that list users. It saves the client from
// re-querying the whole user list every time it needs to turn a selected
// name back into an id.
type Directory struct {
	mu     sync.RWMutex
	byName map[string]int64
	byID   map[int64]string
}

func NewDirectory() *Directory {
	return &Directory{
		byName: make(map[string]int64),
		byID:   make(map[int64]string),
	}
}

// Update merges a batch of users into the cache. A renamed user overwrites
// their previous entry in both directions.
func (d *Directory) Update(users []models.PublicUser) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range users {
		if old, ok := d.byID[u.ID]; ok && old != u.Username {
			delete(d.byName, old)
		}
		d.byName[u.Username] = u.ID
		d.byID[u.ID] = u.Username
	}
}

func (d *Directory) IDFor(username string) (int64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byName[username]
	return id, ok
}

func (d *Directory) NameFor(id int64) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.byID[id]
	return name, ok
}
