package graph

import (
	"github.com/pepperpepperpepper/pipegraph/internal/conn"
	"github.com/pepperpepperpepper/pipegraph/internal/pod"
)

// binding is one active per-object subscription. At most one binding exists
// per object id; the table entry is the ownership record. A binding holds a
// plain reference back to the mirror through its callbacks; it never owns
// the mirror and is always destroyed before the mirror tears down.
type binding struct {
	kind conn.GlobalKind
	id   uint32

	node conn.NodeHandle
	meta conn.MetadataHandle
	prof conn.ProfilerHandle
}

// bindNode subscribes to a node's parameter stream and requests the current
// parameter set once. A duplicate request for an already-bound id is a
// no-op; when a concurrent duplicate slips past the first check, the loser
// is torn down immediately so the at-most-one invariant holds.
func (m *Mirror) bindNode(id uint32) {
	m.mu.RLock()
	_, bound := m.bindings[id]
	m.mu.RUnlock()
	if bound {
		return
	}

	h := m.conn.BindNode(id, func(paramID uint32, data []byte) {
		m.onNodeParam(id, paramID, data)
	})
	if h == nil {
		// Transiently gone or not permitted; a normal condition.
		m.logger.Debug("node bind yielded no handle", "node", id)
		return
	}

	m.mu.Lock()
	if _, bound := m.bindings[id]; bound {
		m.mu.Unlock()
		h.Destroy()
		return
	}
	m.bindings[id] = &binding{kind: conn.KindNode, id: id, node: h}
	m.mu.Unlock()

	h.EnumParams(pod.ParamProps)
}

// bindMetadata subscribes to a metadata object's property stream. The
// property table is registered first so that values replayed during the
// bind are captured; it is withdrawn again if the bind yields nothing.
func (m *Mirror) bindMetadata(id uint32, name string) {
	m.mu.Lock()
	if _, bound := m.bindings[id]; bound {
		m.mu.Unlock()
		return
	}
	if _, ok := m.metaProps[id]; !ok {
		m.metaProps[id] = make(map[string]string)
	}
	m.mu.Unlock()

	h := m.conn.BindMetadata(id, func(subject uint32, key, typ, value string) {
		m.onMetadataProperty(id, subject, key, typ, value)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if h == nil {
		delete(m.metaProps, id)
		m.logger.Debug("metadata bind yielded no handle", "metadata", id, "name", name)
		return
	}
	if _, bound := m.bindings[id]; bound {
		h.Destroy()
		return
	}
	m.bindings[id] = &binding{kind: conn.KindMetadata, id: id, meta: h}
	m.metaNames[id] = name
	m.recomputeRolesLocked()
	m.logger.Info("metadata bound", "metadata", id, "name", name)
}

// bindProfiler subscribes to the process-global profiler object.
func (m *Mirror) bindProfiler(id uint32) {
	m.mu.RLock()
	_, bound := m.bindings[id]
	alreadyBound := m.profilerID != 0
	m.mu.RUnlock()
	if bound || alreadyBound {
		return
	}

	h := m.conn.BindProfiler(id, m.onProfile)
	if h == nil {
		m.logger.Debug("profiler bind yielded no handle", "profiler", id)
		return
	}

	m.mu.Lock()
	if _, bound := m.bindings[id]; bound || m.profilerID != 0 {
		m.mu.Unlock()
		h.Destroy()
		return
	}
	m.bindings[id] = &binding{kind: conn.KindProfiler, id: id, prof: h}
	m.profilerID = id
	m.mu.Unlock()

	m.logger.Info("profiler bound", "profiler", id)
}

// releaseBindingLocked destroys a binding and clears any cached values that
// were sourced exclusively from it. Caller holds m.mu; runs on the loop.
func (m *Mirror) releaseBindingLocked(id uint32, b *binding) {
	delete(m.bindings, id)

	switch b.kind {
	case conn.KindNode:
		b.node.Destroy()

	case conn.KindMetadata:
		b.meta.Destroy()
		// Dropping the property table resets default-device values if this
		// was the "default" source; the clock fields reset in the role
		// recomputation below if it was the "settings" source.
		delete(m.metaProps, id)
		delete(m.metaNames, id)
		m.recomputeRolesLocked()

	case conn.KindProfiler:
		b.prof.Destroy()
		m.profilerID = 0
	}
}

// recomputeRolesLocked re-derives which bound metadata object serves the
// clock-settings role and which serves the default-device role. "settings"
// is the clock source; "default" is the default-device source, falling back
// to "settings" when no "default" exists. Lowest id wins on duplicates.
func (m *Mirror) recomputeRolesLocked() {
	var settingsID, defaultID uint32
	for id, name := range m.metaNames {
		switch name {
		case MetaNameSettings:
			if settingsID == 0 || id < settingsID {
				settingsID = id
			}
		case MetaNameDefault:
			if defaultID == 0 || id < defaultID {
				defaultID = id
			}
		}
	}
	if defaultID == 0 {
		defaultID = settingsID
	}
	m.settingsMetaID = settingsID
	m.defaultMetaID = defaultID
	m.recomputeClockLocked()
}

// teardownBindings releases everything in dependency order: node bindings,
// then metadata bindings, then the profiler. Runs under the loop lock, so
// no events interleave, and must complete before the registry listener is
// removed.
func (m *Mirror) teardownBindings() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, kind := range []conn.GlobalKind{conn.KindNode, conn.KindMetadata, conn.KindProfiler} {
		for id, b := range m.bindings {
			if b.kind == kind {
				m.releaseBindingLocked(id, b)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Mutation access for the control surface. Handles are used strictly under
// the loop lock; a handle that died between lookup and use fails cleanly.

// UseNodeBinding runs fn with the node's handle under the loop lock.
// Returns false when no binding exists or fn reports an error.
func (m *Mirror) UseNodeBinding(id uint32, fn func(conn.NodeHandle) error) bool {
	m.mu.RLock()
	b, ok := m.bindings[id]
	m.mu.RUnlock()
	if !ok || b.node == nil {
		return false
	}

	var err error
	m.conn.Loop().RunLocked(func() { err = fn(b.node) })
	return err == nil
}

// UseDefaultMetadata runs fn with the default-device metadata handle under
// the loop lock.
func (m *Mirror) UseDefaultMetadata(fn func(conn.MetadataHandle) error) bool {
	return m.useMetadataRole(func() uint32 { return m.defaultMetaID }, fn)
}

// UseSettingsMetadata runs fn with the clock-settings metadata handle under
// the loop lock.
func (m *Mirror) UseSettingsMetadata(fn func(conn.MetadataHandle) error) bool {
	return m.useMetadataRole(func() uint32 { return m.settingsMetaID }, fn)
}

func (m *Mirror) useMetadataRole(roleID func() uint32, fn func(conn.MetadataHandle) error) bool {
	m.mu.RLock()
	b, ok := m.bindings[roleID()]
	m.mu.RUnlock()
	if !ok || b.meta == nil {
		return false
	}

	var err error
	m.conn.Loop().RunLocked(func() { err = fn(b.meta) })
	return err == nil
}
