package conn

// GlobalKind classifies a registry object by its interface type.
type GlobalKind int

const (
	KindOther GlobalKind = iota
	KindNode
	KindPort
	KindLink
	KindModule
	KindMetadata
	KindProfiler
)

// String returns the kind name as used in logs.
func (k GlobalKind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindPort:
		return "port"
	case KindLink:
		return "link"
	case KindModule:
		return "module"
	case KindMetadata:
		return "metadata"
	case KindProfiler:
		return "profiler"
	default:
		return "other"
	}
}

// Well-known property keys carried on registry globals.
const (
	PropNodeName          = "node.name"
	PropNodeDescription   = "node.description"
	PropMediaClass        = "media.class"
	PropAppName           = "application.name"
	PropAppProcessBinary  = "application.process.binary"
	PropAudioChannels     = "audio.channels"
	PropAudioPosition     = "audio.position"
	PropObjectSerial      = "object.serial"
	PropObjectLinger      = "object.linger"
	PropPortName          = "port.name"
	PropPortAlias         = "port.alias"
	PropPortDirection     = "port.direction"
	PropPortAudioChannel  = "audio.channel"
	PropPortMediaType     = "media.type"
	PropPortFormatDSP     = "format.dsp"
	PropPortNodeID        = "node.id"
	PropLinkOutputNode    = "link.output.node"
	PropLinkOutputPort    = "link.output.port"
	PropLinkInputNode     = "link.input.node"
	PropLinkInputPort     = "link.input.port"
	PropModuleName        = "module.name"
	PropModuleDescription = "module.description"
	PropMetadataName      = "metadata.name"
)

// Global is one registry object announcement.
type Global struct {
	ID    uint32
	Kind  GlobalKind
	Props map[string]string
}

// RegistryListener receives registry events on the loop goroutine.
// A newly added listener first receives GlobalAdded for every object already
// present.
type RegistryListener interface {
	GlobalAdded(g Global)
	GlobalRemoved(id uint32)
}

// NodeHandle is an active binding to one node. All methods must run under
// the loop lock; operations on a destroyed handle fail cleanly.
type NodeHandle interface {
	// SetParam writes a parameter blob. The server may reject an encoding
	// it cannot apply (for example channel volumes on a scalar-only node);
	// the caller is expected to fall back rather than surface the error.
	SetParam(paramID uint32, data []byte) error

	// EnumParams requests the current value of a parameter; the result
	// arrives as an ordinary parameter event.
	EnumParams(paramID uint32)

	Destroy()
}

// MetadataHandle is an active binding to one metadata object.
type MetadataHandle interface {
	// SetProperty writes one key. An empty value clears the key.
	SetProperty(subject uint32, key, typ, value string) error

	Destroy()
}

// ProfilerHandle is an active binding to the profiler object.
type ProfilerHandle interface {
	Destroy()
}

// Conn is the server connection as seen by the graph engine.
//
// Bind* return nil when the object is not currently available (transiently
// gone, or not permitted); callers skip silently. All Bind*, Destroy and
// listener registrations must run on the loop goroutine; Create/Destroy
// helpers and Close take the loop lock themselves and may be called from
// any goroutine.
type Conn interface {
	// Loop returns the connection's event loop for RunLocked access.
	Loop() *Loop

	AddRegistryListener(l RegistryListener)
	RemoveRegistryListener(l RegistryListener)

	BindNode(id uint32, onParam func(paramID uint32, data []byte)) NodeHandle
	BindMetadata(id uint32, onProperty func(subject uint32, key, typ, value string)) MetadataHandle
	BindProfiler(id uint32, onProfile func(data []byte)) ProfilerHandle

	// CreateLink asks the server for a new link between the given ports.
	// The link is created with linger semantics: it survives this client's
	// disconnect.
	CreateLink(outputNode, outputPort, inputNode, inputPort uint32) bool

	// DestroyGlobal asks the server to remove an object (links, mostly).
	DestroyGlobal(id uint32) bool

	Close()
}
