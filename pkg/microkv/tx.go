package microkv

import (
	"errors"
)

// Tx gives a function exclusive (Update) or shared (View) access to the
// store for several operations. A Tx is bound to one namespace; use
// Namespace to reach another one within the same transaction.
// A Tx must not be used after its function returns, and the function must
// not call methods on the MicroKV itself.
type Tx struct {
	db       *MicroKV
	ns       string
	writable bool
	mutated  *bool
}

// Update runs fn under the write lock. With auto-commit the store is saved
// once after fn returns if anything changed, even when fn fails; partial
// changes are not rolled back.
func (db *MicroKV) Update(fn func(*Tx) error) error {
	db.guard.lock()
	defer db.guard.unlock()

	if db.closed {
		return ErrClosed
	}

	var mutated bool
	err := fn(&Tx{db: db, ns: DefaultNamespace, writable: true, mutated: &mutated})
	if !mutated {
		return err
	}
	return errors.Join(err, db.afterWrite())
}

// View runs fn under the read lock.
func (db *MicroKV) View(fn func(*Tx) error) error {
	db.guard.rlock()
	defer db.guard.runlock()

	if db.closed {
		return ErrClosed
	}

	var mutated bool
	return fn(&Tx{db: db, ns: DefaultNamespace, mutated: &mutated})
}

// Namespace returns a Tx bound to the named namespace.
func (tx *Tx) Namespace(name string) *Tx {
	return &Tx{db: tx.db, ns: name, writable: tx.writable, mutated: tx.mutated}
}

// Namespaces returns the names of all namespaces, sorted.
func (tx *Tx) Namespaces() ([]string, error) {
	return tx.db.namespaceNames(), nil
}

func (tx *Tx) Put(key string, value any) error {
	if !tx.writable {
		return ErrReadOnlyTx
	}
	if err := tx.db.put(tx.ns, key, value); err != nil {
		return err
	}
	*tx.mutated = true
	return nil
}

func (tx *Tx) GetInto(key string, out any) error {
	return tx.db.getInto(tx.ns, key, out)
}

func (tx *Tx) Delete(key string) (bool, error) {
	if !tx.writable {
		return false, ErrReadOnlyTx
	}
	deleted, err := tx.db.delete(tx.ns, key)
	if deleted {
		*tx.mutated = true
	}
	return deleted, err
}

func (tx *Tx) Exists(key string) (bool, error) {
	return tx.db.exists(tx.ns, key)
}

func (tx *Tx) Keys() ([]string, error) {
	return tx.db.keys(tx.ns, false)
}

func (tx *Tx) SortedKeys() ([]string, error) {
	return tx.db.keys(tx.ns, true)
}

func (tx *Tx) Clear() error {
	if !tx.writable {
		return ErrReadOnlyTx
	}
	cleared, err := tx.db.clear(tx.ns)
	if cleared {
		*tx.mutated = true
	}
	return err
}
