package jcalc

import (
	"sync"

	"github.com/jcalc/jcalc-go/jcalc/jdwp"
)

type methodKey struct {
	ref        jdwp.ReferenceTypeID
	name       string
	descriptor string
}

// idCache memoizes remote class and method lookups for the lifetime of one
// connection. At most one remote lookup happens per distinct key; lookups
// that fail are not cached, so a later attempt retries.
type idCache struct {
	c *conn

	mtx     sync.Mutex
	classes map[string]jdwp.ReferenceTypeID
	methods map[methodKey]jdwp.MethodID
}

func newIDCache(c *conn) *idCache {
	return &idCache{
		c:       c,
		classes: make(map[string]jdwp.ReferenceTypeID),
		methods: make(map[methodKey]jdwp.MethodID),
	}
}

// resolveClass returns the reference type id for a class signature,
// looking it up remotely on first use.
func (ic *idCache) resolveClass(signature string) (jdwp.ReferenceTypeID, error) {
	ic.mtx.Lock()
	ref, ok := ic.classes[signature]
	ic.mtx.Unlock()
	if ok {
		return ref, nil
	}

	classes, err := ic.c.classesBySignature(signature)
	if err != nil {
		return 0, err
	}
	if len(classes) == 0 {
		return 0, newErrorf(ErrCodeResolution, "class %s not loaded in remote VM", signature)
	}
	ref = classes[0].TypeID

	ic.mtx.Lock()
	ic.classes[signature] = ref
	ic.mtx.Unlock()
	ic.c.log.Verbosef("resolved class %s -> %d", signature, ref)
	return ref, nil
}

// resolveMethod returns the method id for name on ref. A non-empty
// descriptor disambiguates overloads; an empty descriptor matches by name
// alone.
func (ic *idCache) resolveMethod(ref jdwp.ReferenceTypeID, name, descriptor string) (jdwp.MethodID, error) {
	key := methodKey{ref: ref, name: name, descriptor: descriptor}
	ic.mtx.Lock()
	id, ok := ic.methods[key]
	ic.mtx.Unlock()
	if ok {
		return id, nil
	}

	methods, err := ic.c.methods(ref)
	if err != nil {
		return 0, err
	}
	found := false
	for _, m := range methods {
		if m.Name != name {
			continue
		}
		if descriptor != "" && m.Signature != descriptor {
			continue
		}
		id = m.ID
		found = true
		break
	}
	if !found {
		return 0, newErrorf(ErrCodeResolution, "method %s%s not found on reference type %d", name, descriptor, ref)
	}

	ic.mtx.Lock()
	ic.methods[key] = id
	ic.mtx.Unlock()
	ic.c.log.Verbosef("resolved method %s%s -> %d", name, descriptor, id)
	return id, nil
}
