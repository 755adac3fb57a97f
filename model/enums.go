package model

// QueryType classifies an incoming query for routing purposes
type QueryType string

const (
	QueryTypeSemantic   QueryType = "semantic"
	QueryTypeStructured QueryType = "structured"
	QueryTypeMultiHop   QueryType = "multi_hop"
	QueryTypeConstraint QueryType = "constraint"
)

// QueryTypes lists all query types in routing priority order
var QueryTypes = []QueryType{
	QueryTypeSemantic,
	QueryTypeStructured,
	QueryTypeMultiHop,
	QueryTypeConstraint,
}

// RetrievalMethod identifies the retrieval strategy used for a query
type RetrievalMethod string

const (
	MethodVectorSearch     RetrievalMethod = "vector_search"
	MethodGraphTraversal   RetrievalMethod = "graph_traversal"
	MethodLogicalFiltering RetrievalMethod = "logical_filtering"
	MethodHybrid           RetrievalMethod = "hybrid"
)

// BaseMethods lists the three directly invokable methods in tie-break
// priority order (hybrid is an ensemble of these, not a base method)
var BaseMethods = []RetrievalMethod{
	MethodVectorSearch,
	MethodGraphTraversal,
	MethodLogicalFiltering,
}

// RetrievalMethods lists every method effectiveness is tracked for
var RetrievalMethods = []RetrievalMethod{
	MethodVectorSearch,
	MethodGraphTraversal,
	MethodLogicalFiltering,
	MethodHybrid,
}

// RelationshipProvenance records how a relationship entered the graph
type RelationshipProvenance string

const (
	ProvenanceExplicit RelationshipProvenance = "explicit"
	ProvenanceImplicit RelationshipProvenance = "implicit"
	ProvenanceInferred RelationshipProvenance = "inferred"
)

// RelationshipStatus is the workflow state of a discovered relationship
type RelationshipStatus string

const (
	StatusPending       RelationshipStatus = "pending"
	StatusApproved      RelationshipStatus = "approved"
	StatusRejected      RelationshipStatus = "rejected"
	StatusAutoActivated RelationshipStatus = "auto_activated"
)

// IsTerminal reports whether the status allows no further transitions
func (s RelationshipStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusAutoActivated:
		return true
	}
	return false
}

// Materializes reports whether this terminal status writes the
// relationship into the graph store
func (s RelationshipStatus) Materializes() bool {
	return s == StatusApproved || s == StatusAutoActivated
}

// CanTransitionTo reports whether a transition from s to next is legal.
// Only PENDING has outgoing transitions; terminal states never revert.
func (s RelationshipStatus) CanTransitionTo(next RelationshipStatus) bool {
	if s != StatusPending {
		return false
	}
	return next.IsTerminal()
}
