// Package ast defines the parsed statement tree this layer accepts from the
// external query parser, and renders statements back to SQL text for
// connectors that speak a textual dialect. The parser itself lives outside
// this module; these node types are its interface.
package ast

// Node is the base interface for all statement tree nodes.
type Node interface {
	node()
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}
