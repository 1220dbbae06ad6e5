package storage

// PrefixDB scopes a DB to one key namespace. Every ledger component
// (registry, sales, bank, tokens, access, events) owns one such view of
// the shared store. Keys seen by callers never include the namespace.
type PrefixDB struct {
	inner DB
	ns    []byte
}

// NewPrefixDB returns a view of inner restricted to keys starting with ns.
// Wrapping a PrefixDB again joins the namespaces rather than stacking views.
func NewPrefixDB(inner DB, ns []byte) *PrefixDB {
	if p, ok := inner.(*PrefixDB); ok {
		return &PrefixDB{inner: p.inner, ns: p.key(ns)}
	}
	return &PrefixDB{inner: inner, ns: append([]byte(nil), ns...)}
}

// Namespace returns a copy of the namespace prepended to every key.
func (p *PrefixDB) Namespace() []byte {
	return append([]byte(nil), p.ns...)
}

func (p *PrefixDB) key(k []byte) []byte {
	full := make([]byte, 0, len(p.ns)+len(k))
	return append(append(full, p.ns...), k...)
}

func (p *PrefixDB) Get(key []byte) ([]byte, error) { return p.inner.Get(p.key(key)) }

func (p *PrefixDB) Put(key, value []byte) error { return p.inner.Put(p.key(key), value) }

func (p *PrefixDB) Delete(key []byte) error { return p.inner.Delete(p.key(key)) }

func (p *PrefixDB) Has(key []byte) (bool, error) { return p.inner.Has(p.key(key)) }

// ForEach visits keys under prefix inside the namespace, namespace stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	n := len(p.ns)
	return p.inner.ForEach(p.key(prefix), func(k, v []byte) error {
		return fn(k[n:], v)
	})
}

// Close does nothing; the wrapped DB owns its lifecycle.
func (p *PrefixDB) Close() error { return nil }
