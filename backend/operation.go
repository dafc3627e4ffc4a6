package backend

// OperationType is the write mode requested for a batch.
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationIndex  OperationType = "index"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
	OperationAppend OperationType = "append"
)

// Policy declares which operation types a backend accepts; Write rejects
// anything not in Allowed with a NotSupported error before touching the
// data iterator.
type Policy struct {
	Allowed map[OperationType]bool
}

func (p Policy) Accepts(op OperationType) bool {
	return p.Allowed[op]
}

func NewPolicy(ops ...OperationType) Policy {
	m := make(map[OperationType]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return Policy{Allowed: m}
}

// Per-backend operation-type policies, spec §4.3.
var (
	ColumnStorePolicy = NewPolicy(OperationCreate)
	SearchClusterPolicy = NewPolicy(OperationCreate, OperationIndex, OperationUpdate, OperationDelete)
	ObjectStorePolicy = NewPolicy(OperationCreate, OperationIndex, OperationUpdate)
	LRSHTTPPolicy     = NewPolicy(OperationCreate, OperationIndex)
	DocumentStorePolicy = NewPolicy(OperationCreate, OperationIndex, OperationUpdate, OperationDelete)
	// LogArchivePolicy is empty: the backend is read-only, so every
	// operation type is rejected.
	LogArchivePolicy = NewPolicy()
)
