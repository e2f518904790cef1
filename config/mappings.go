package config

// config/mappings.go — the fixed registries mapping symbolic protocol and
// loop names to resolvable references. An empty reference means "nothing to
// resolve" (no WebSocket support, no loop setup). Embedders may remap
// entries before New() to point at their own registered implementations.

// HTTPProtocols maps HTTP protocol names to importer references.
var HTTPProtocols = map[string]string{
	"auto": "vayu/protocols/httpone:Server",
	"h1":   "vayu/protocols/httpone:Server",
}

// WSProtocols maps WebSocket protocol names to importer references.
var WSProtocols = map[string]string{
	"auto":       "vayu/protocols/websockets:Server",
	"websockets": "vayu/protocols/websockets:Server",
	"none":       "",
}

// Lifespans maps lifespan names to importer references.
var Lifespans = map[string]string{
	"auto": "vayu/lifespan:Auto",
	"on":   "vayu/lifespan:On",
	"off":  "vayu/lifespan:Off",
}

// LoopSetups maps event-loop setup names to importer references. The Go
// runtime needs no loop installation, so both defaults resolve to nothing;
// embedders that tune the runtime before serving can register a setup
// function (func(useSubprocess bool)) and point a name at it.
var LoopSetups = map[string]string{
	"auto": "",
	"none": "",
}
