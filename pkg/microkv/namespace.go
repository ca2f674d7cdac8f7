package microkv

// Namespace is a handle to one namespace of a store. It shares the store's
// lock and auto-commit behaviour.
type Namespace struct {
	db   *MicroKV
	name string
}

// Name returns the namespace name; the default namespace is "".
func (n *Namespace) Name() string {
	return n.name
}

// Put encodes value as JSON, encrypts it and stores it under key.
// With auto-commit, a save failure is returned as *CommitError and the new
// value stays in memory.
func (n *Namespace) Put(key string, value any) error {
	n.db.guard.lock()
	defer n.db.guard.unlock()

	if err := n.db.put(n.name, key, value); err != nil {
		return err
	}
	return n.db.afterWrite()
}

// GetInto decrypts the value at key and decodes it into out.
func (n *Namespace) GetInto(key string, out any) error {
	n.db.guard.rlock()
	defer n.db.guard.runlock()

	return n.db.getInto(n.name, key, out)
}

// Delete removes key and reports whether it existed.
// Deleting an absent key changes nothing and does not commit.
func (n *Namespace) Delete(key string) (bool, error) {
	n.db.guard.lock()
	defer n.db.guard.unlock()

	deleted, err := n.db.delete(n.name, key)
	if err != nil || !deleted {
		return false, err
	}
	return true, n.db.afterWrite()
}

// Exists reports whether key is present
func (n *Namespace) Exists(key string) (bool, error) {
	n.db.guard.rlock()
	defer n.db.guard.runlock()

	return n.db.exists(n.name, key)
}

// Keys returns the keys in insertion order
func (n *Namespace) Keys() ([]string, error) {
	n.db.guard.rlock()
	defer n.db.guard.runlock()

	return n.db.keys(n.name, false)
}

// SortedKeys returns the keys in lexicographic order
func (n *Namespace) SortedKeys() ([]string, error) {
	n.db.guard.rlock()
	defer n.db.guard.runlock()

	return n.db.keys(n.name, true)
}

// Clear removes every key in the namespace.
func (n *Namespace) Clear() error {
	n.db.guard.lock()
	defer n.db.guard.unlock()

	cleared, err := n.db.clear(n.name)
	if err != nil || !cleared {
		return err
	}
	return n.db.afterWrite()
}
