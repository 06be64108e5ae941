package plan

// Combine joins two plan nodes into a new internal node.
type Combine func(left, right NodeID) (NodeID, error)

// Folder decides the order in which the operands of an n-ary sum or
// product are combined pairwise. Different orders give different trees and,
// in general, different fingerprints.
type Folder interface {
	Fold(items []NodeID, combine Combine) (NodeID, error)
}

// LeftFold combines the first two operands, then the running result with
// each next operand, left to right:
//
//	((a b) c) d
type LeftFold struct{}

// Fold implements Folder.
func (LeftFold) Fold(items []NodeID, combine Combine) (NodeID, error) {
	acc := items[0]
	for _, next := range items[1:] {
		id, err := combine(acc, next)
		if err != nil {
			return NoNode, err
		}
		acc = id
	}
	return acc, nil
}

// BalancedFold combines neighbouring operands level by level, producing a
// tree of logarithmic depth:
//
//	(a b) (c d)
type BalancedFold struct{}

// Fold implements Folder.
func (BalancedFold) Fold(items []NodeID, combine Combine) (NodeID, error) {
	level := append([]NodeID(nil), items...)
	for len(level) > 1 {
		next := make([]NodeID, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			id, err := combine(level[i], level[i+1])
			if err != nil {
				return NoNode, err
			}
			next = append(next, id)
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}
	return level[0], nil
}

// FolderByName returns the folder registered under name: "left" (the
// default for an empty name) or "balanced".
func FolderByName(name string) (Folder, bool) {
	switch name {
	case "", "left":
		return LeftFold{}, true
	case "balanced":
		return BalancedFold{}, true
	}
	return nil, false
}
