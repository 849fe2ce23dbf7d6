package provider

import (
	"sort"
	"sync"
)

// BlockList is the set of packages refused writes to recommendation rows.
// It is safe for concurrent use.
type BlockList struct {
	mu       sync.RWMutex
	packages map[string]struct{}
}

// NewBlockList returns a block list holding pkgs.
func NewBlockList(pkgs ...string) *BlockList {
	b := &BlockList{packages: make(map[string]struct{})}
	b.Load(pkgs)
	return b
}

// Load adds every package of pkgs.
func (b *BlockList) Load(pkgs []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range pkgs {
		if p != "" {
			b.packages[p] = struct{}{}
		}
	}
}

// Add blocks pkg. It reports whether pkg was newly added.
func (b *BlockList) Add(pkg string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.packages[pkg]; ok {
		return false
	}
	b.packages[pkg] = struct{}{}
	return true
}

// Remove unblocks pkg. It reports whether pkg was blocked.
func (b *BlockList) Remove(pkg string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.packages[pkg]; !ok {
		return false
	}
	delete(b.packages, pkg)
	return true
}

func (b *BlockList) Contains(pkg string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.packages[pkg]
	return ok
}

// List returns the blocked packages in sorted order.
func (b *BlockList) List() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.packages))
	for p := range b.packages {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
