package engine

import (
	"sync"
	"time"
)

// domainEntry stores the preferred engine for a domain with a TTL.
type domainEntry struct {
	engineName string
	expiresAt  time.Time
}

// DomainMemory remembers which engine tier last worked for each domain.
// Entries expire after the configured TTL; expired entries are pruned on
// read, so no background goroutine is needed for a short-lived scrape run.
type DomainMemory struct {
	mu    sync.Mutex
	store map[string]domainEntry
	ttl   time.Duration
}

// NewDomainMemory creates a DomainMemory with the given TTL.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	return &DomainMemory{
		store: make(map[string]domainEntry),
		ttl:   ttl,
	}
}

// Get returns the remembered engine name for a domain, or "" if not found
// or expired.
func (dm *DomainMemory) Get(domain string) string {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	entry, ok := dm.store[domain]
	if !ok {
		return ""
	}
	if time.Now().After(entry.expiresAt) {
		delete(dm.store, domain)
		return ""
	}
	return entry.engineName
}

// Set records which engine succeeded for a domain.
func (dm *DomainMemory) Set(domain, engineName string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.store[domain] = domainEntry{
		engineName: engineName,
		expiresAt:  time.Now().Add(dm.ttl),
	}
}

// Delete removes the memory for a domain (e.g. after the remembered engine fails).
func (dm *DomainMemory) Delete(domain string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.store, domain)
}
