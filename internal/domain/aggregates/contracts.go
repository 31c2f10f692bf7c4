package aggregates

// WriteTxOwnership says who opens the transaction around a write.
type WriteTxOwnership string

// WriteTxOwnedByAggregate: the aggregate opens the transaction that covers
// load, append and projection. Callers pass only a context.
const WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"

// ReadPolicy says which reads an aggregate performs while writing.
type ReadPolicy string

// ReadPolicyInvariantScoped limits write-path reads to what the invariants
// need: the aggregate's own stream, parent rows for cycle checks and alias
// ownership lookups. Listing and resolution stay in the services.
const ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"

// Contract describes how an aggregate participates in a write.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	Notes            string
}

type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}
