// hierarchy.go — Component tree kept as a flat table keyed by id.
// Parents are referenced by id, children by ordered id lists, so the tree
// never holds owning pointers and exports without cycles.
//
// Policies:
//   - an unknown parent id, or a parent that would create a cycle, registers
//     the node as a root and logs a warning;
//   - re-registering an id moves it (and its subtree) under the new parent;
//   - unregistering removes the whole subtree, descendants first.
package tracker

import (
	"slices"

	log "github.com/sirupsen/logrus"

	"github.com/brennhill/renderlens/internal/types"
)

type node struct {
	name     string
	id       string
	parentID string
	depth    int
	children []string
}

// RegisterComponent adds id to the hierarchy under parentID (empty for a root)
// and publishes component:mounted.
func (t *Tracker) RegisterComponent(name, id, parentID string) {
	if id == "" {
		t.logger.WithField("component", name).Warn("register without component id ignored")
		return
	}

	t.mu.Lock()
	if parentID != "" && !t.validParentLocked(id, parentID) {
		t.logger.WithFields(log.Fields{
			"component":    name,
			"component_id": id,
			"parent_id":    parentID,
		}).Warn("unresolvable parent; registering as root")
		parentID = ""
	}

	n, exists := t.nodes[id]
	if exists {
		t.detachLocked(n)
		n.name = name
	} else {
		n = &node{name: name, id: id}
		t.nodes[id] = n
	}

	n.parentID = parentID
	if parent := t.nodes[parentID]; parent != nil {
		parent.children = append(parent.children, id)
		t.setDepthLocked(n, parent.depth+1)
	} else {
		t.roots = append(t.roots, id)
		t.setDepthLocked(n, 0)
	}
	payload := types.ComponentMountedPayload{
		ComponentName: name,
		ComponentID:   id,
		ParentID:      parentID,
		Depth:         n.depth,
	}
	t.mu.Unlock()

	t.publish(types.TopicComponentMounted, payload)
}

// UnregisterComponent removes id and all of its descendants, publishing one
// component:unmounted per removed node, descendants before ancestors.
// Unknown ids are ignored.
func (t *Tracker) UnregisterComponent(id string) {
	t.mu.Lock()
	n, ok := t.nodes[id]
	if !ok {
		t.mu.Unlock()
		t.logger.WithField("component_id", id).Debug("unregister of unknown component")
		return
	}

	t.detachLocked(n)
	var removed []types.ComponentUnmountedPayload
	t.walkPostOrderLocked(n, func(victim *node) {
		delete(t.nodes, victim.id)
		removed = append(removed, types.ComponentUnmountedPayload{
			ComponentName: victim.name,
			ComponentID:   victim.id,
		})
	})
	t.mu.Unlock()

	for _, p := range removed {
		t.publish(types.TopicComponentUnmounted, p)
	}
}

// Roots returns the hierarchy forest in registration order.
func (t *Tracker) Roots() []types.HierarchyNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.HierarchyNode, 0, len(t.roots))
	for _, id := range t.roots {
		out = append(out, t.exportLocked(t.nodes[id]))
	}
	return out
}

// Node returns id with its subtree.
func (t *Tracker) Node(id string) (types.HierarchyNode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return types.HierarchyNode{}, false
	}
	return t.exportLocked(n), true
}

// ComponentCount returns the number of registered components.
func (t *Tracker) ComponentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}

// validParentLocked reports whether parentID exists and is neither id nor one
// of id's descendants.
func (t *Tracker) validParentLocked(id, parentID string) bool {
	for cur := parentID; cur != ""; {
		if cur == id {
			return false
		}
		p, ok := t.nodes[cur]
		if !ok {
			return cur != parentID
		}
		cur = p.parentID
	}
	return true
}

// detachLocked unlinks n from its parent's children or from the root list.
func (t *Tracker) detachLocked(n *node) {
	if parent := t.nodes[n.parentID]; parent != nil {
		parent.children = slices.DeleteFunc(parent.children, func(c string) bool { return c == n.id })
		return
	}
	t.roots = slices.DeleteFunc(t.roots, func(r string) bool { return r == n.id })
}

func (t *Tracker) setDepthLocked(n *node, depth int) {
	n.depth = depth
	for _, c := range n.children {
		if child := t.nodes[c]; child != nil {
			t.setDepthLocked(child, depth+1)
		}
	}
}

func (t *Tracker) walkPostOrderLocked(n *node, fn func(*node)) {
	for _, c := range slices.Clone(n.children) {
		if child := t.nodes[c]; child != nil {
			t.walkPostOrderLocked(child, fn)
		}
	}
	fn(n)
}

func (t *Tracker) exportLocked(n *node) types.HierarchyNode {
	out := types.HierarchyNode{
		ComponentName: n.name,
		ComponentID:   n.id,
		Depth:         n.depth,
		ParentID:      n.parentID,
		Children:      make([]types.HierarchyNode, 0, len(n.children)),
	}
	for _, c := range n.children {
		if child := t.nodes[c]; child != nil {
			out.Children = append(out.Children, t.exportLocked(child))
		}
	}
	return out
}
