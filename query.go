// Package foundry provides the query mechanisms for filtering entities by
// component composition.
package foundry

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
)

// Query is a composable filter over component composition, built up from
// And/Or/Not combinators (§4.3.7).
type Query interface {
	QueryNode
	And(items ...interface{}) QueryNode
	Or(items ...interface{}) QueryNode
	Not(items ...interface{}) QueryNode
}

// QueryNode is a node in a query tree, evaluated against one archetype at
// a time during Cursor.Initialize.
type QueryNode interface {
	Evaluate(arch *archetype, sto *Storage) bool
}

type queryOperation int

const (
	opAnd queryOperation = iota
	opOr
	opNot
)

type compositeNode struct {
	op         queryOperation
	children   []QueryNode
	components []Component
}

type leafNode struct {
	components []Component
}

type query struct {
	root QueryNode
}

func newQuery() Query {
	return &query{}
}

func newCompositeNode(op queryOperation, components []Component) *compositeNode {
	return &compositeNode{op: op, components: components}
}

func newLeafNode(components []Component) *leafNode {
	return &leafNode{components: components}
}

func maskOf(sto *Storage, components []Component) mask.Mask {
	var m mask.Mask
	for _, c := range components {
		m.Mark(sto.RowIndexFor(c))
	}
	return m
}

func (n *compositeNode) Evaluate(arch *archetype, sto *Storage) bool {
	nodeMask := maskOf(sto, n.components)
	archMask := arch.componentMask

	switch n.op {
	case opAnd:
		if !archMask.ContainsAll(nodeMask) {
			return false
		}
		for _, child := range n.children {
			if !child.Evaluate(arch, sto) {
				return false
			}
		}
		return true
	case opOr:
		if len(n.components) > 0 && archMask.ContainsAny(nodeMask) {
			return true
		}
		for _, child := range n.children {
			if child.Evaluate(arch, sto) {
				return true
			}
		}
		return false
	case opNot:
		if len(n.components) > 0 && !archMask.ContainsNone(nodeMask) {
			return false
		}
		for _, child := range n.children {
			if child.Evaluate(arch, sto) {
				return false
			}
		}
		return true
	}
	return false
}

func (n *leafNode) Evaluate(arch *archetype, sto *Storage) bool {
	nodeMask := maskOf(sto, n.components)
	return arch.componentMask.ContainsAll(nodeMask)
}

func (q *query) And(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(opAnd, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) Or(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(opOr, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) Not(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(opNot, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) validateQueryItems(items ...interface{}) error {
	for _, item := range items {
		switch item.(type) {
		case Component, []Component, QueryNode, Query:
			continue
		default:
			return fmt.Errorf("invalid query item type: %T. Only Component, []Component, or QueryNode are allowed", item)
		}
	}
	return nil
}

func (q *query) processItems(items ...interface{}) ([]Component, []QueryNode) {
	if err := q.validateQueryItems(items...); err != nil {
		panic(bark.AddTrace(err))
	}
	components := make([]Component, 0)
	children := make([]QueryNode, 0)
	for _, item := range items {
		switch v := item.(type) {
		case Component:
			components = append(components, v)
		case []Component:
			components = append(components, v...)
		case QueryNode:
			children = append(children, v)
		}
	}
	return components, children
}

func (q *query) Evaluate(arch *archetype, sto *Storage) bool {
	if q.root == nil {
		return false
	}
	return q.root.Evaluate(arch, sto)
}
