// Package util
//
// This file provides a priority queue with key-based access.
//
// The implementation combines a binary heap with a hash map:
//   - O(log n) for priority operations (AddItem, PopMin, RemoveByKey)
//   - O(1) for key-based lookups and existence checks
//
// The cache middleware uses it to evict the oldest entries once the cache
// exceeds its configured size, while still being able to drop a single entry
// directly when it expires or is deleted.
//
// Note: This implementation is not thread-safe.
//
// Example usage:
//
//	ages := NewMapHeap[string]()
//	ages.AddItem("a", 1)
//	ages.AddItem("b", 2)
//
//	oldest, _ := ages.Peek() // "a"
//	ages.RemoveByKey("a")
package util

import (
	"container/heap"
	"fmt"
)

// Item is an entry of the MapHeap
type Item[K comparable] struct {
	Key      K      // Unique identifier for the item
	Priority uint64 // Priority of the item, lower values are popped first
	index    int    // Index in the heap, maintained by the heap package
}

func (i *Item[K]) String() string {
	return fmt.Sprintf("{Key: %v, Priority: %d}", i.Key, i.Priority)
}

// MapHeap is a min-heap of items that can also be accessed by key
type MapHeap[K comparable] struct {
	h *itemHeap[K]
}

// NewMapHeap creates a new, empty MapHeap
func NewMapHeap[K comparable]() *MapHeap[K] {
	return &MapHeap[K]{h: &itemHeap[K]{
		items:    make([]*Item[K], 0),
		itemsMap: make(map[K]*Item[K]),
	}}
}

// Len returns the number of items in the queue
func (m *MapHeap[K]) Len() int { return m.h.Len() }

// AddItem adds a new item to the queue or updates the priority of an existing one
func (m *MapHeap[K]) AddItem(key K, priority uint64) {
	if it, exists := m.h.itemsMap[key]; exists {
		it.Priority = priority
		heap.Fix(m.h, it.index)
		return
	}
	heap.Push(m.h, &Item[K]{Key: key, Priority: priority})
}

// RemoveByKey removes an item by its key and returns its priority
func (m *MapHeap[K]) RemoveByKey(key K) (uint64, bool) {
	it, exists := m.h.itemsMap[key]
	if !exists {
		return 0, false
	}
	heap.Remove(m.h, it.index)
	return it.Priority, true
}

// Peek returns the item with the lowest priority without removing it
func (m *MapHeap[K]) Peek() (*Item[K], bool) {
	if len(m.h.items) == 0 {
		return nil, false
	}
	return m.h.items[0], true
}

// PopMin removes and returns the item with the lowest priority
func (m *MapHeap[K]) PopMin() (*Item[K], bool) {
	if len(m.h.items) == 0 {
		return nil, false
	}
	return heap.Pop(m.h).(*Item[K]), true
}

// Contains checks if a key exists in the queue
func (m *MapHeap[K]) Contains(key K) bool {
	_, exists := m.h.itemsMap[key]
	return exists
}

// GetByKey retrieves an item by its key without removing it
func (m *MapHeap[K]) GetByKey(key K) (*Item[K], bool) {
	it, exists := m.h.itemsMap[key]
	return it, exists
}

// Reset removes all items
func (m *MapHeap[K]) Reset() {
	m.h.items = make([]*Item[K], 0)
	m.h.itemsMap = make(map[K]*Item[K])
}

// --------------------------------------------------------------------------
// heap.Interface
// --------------------------------------------------------------------------

type itemHeap[K comparable] struct {
	items    []*Item[K]
	itemsMap map[K]*Item[K]
}

func (h *itemHeap[K]) Len() int { return len(h.items) }

func (h *itemHeap[K]) Less(i, j int) bool {
	return h.items[i].Priority < h.items[j].Priority
}

func (h *itemHeap[K]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *itemHeap[K]) Push(x any) {
	it := x.(*Item[K])
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.itemsMap[it.Key] = it
}

func (h *itemHeap[K]) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // Avoid memory leak
	it.index = -1
	h.items = old[:n-1]
	delete(h.itemsMap, it.Key)
	return it
}
