// Package util
//
// This file provides a specialized priority queue for garbage collection purposes.
//
// The implementation combines a binary heap with a hash map so that items can
// be processed in priority order (oldest deadline first) while still being
// directly addressable by key when an entry is rewritten or removed manually.
//
// Complexity:
//   - O(log n) for priority operations (Push, Pop, Update)
//   - O(1) for key-based lookups and existence checks
//   - O(log n) for key-based removal
//
// Note: this implementation is not thread-safe; each database shard owns one
// heap and accesses it only from its GC goroutine.
package util

import (
	"container/heap"
	"strconv"
)

// item represents an item in the garbage collection queue, identified by the
// entry's key and ordered by a uint64 priority (a deadline timestamp).
type item struct {
	Key      string // Unique identifier for the item
	Priority uint64 // Priority used for ordering in the heap
	index    int    // Index in the heap, maintained by heap package
}

func (i *item) String() string {
	return "{Key: " + strconv.Quote(i.Key) + ", Priority: " + strconv.FormatUint(i.Priority, 10) + "}"
}

// MapHeap implements a priority queue for garbage collection
// with both heap operations and key-based access
type MapHeap struct {
	items    []*item          // The actual heap slice
	itemsMap map[string]*item // Map for O(1) access by key
}

// NewMapHeap creates a new garbage collection queue
func NewMapHeap() *MapHeap {
	return &MapHeap{
		items:    make([]*item, 0),
		itemsMap: make(map[string]*item),
	}
}

// Len returns the number of items in the queue (part of heap.Interface)
func (gcq *MapHeap) Len() int { return len(gcq.items) }

// Less compares items by priority (part of heap.Interface)
// Min-heap: the item with the earliest deadline comes first
func (gcq *MapHeap) Less(i, j int) bool {
	return gcq.items[i].Priority < gcq.items[j].Priority
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (gcq *MapHeap) Swap(i, j int) {
	gcq.items[i], gcq.items[j] = gcq.items[j], gcq.items[i]
	gcq.items[i].index = i
	gcq.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (gcq *MapHeap) Push(x interface{}) {
	n := len(gcq.items)
	item := x.(*item)
	item.index = n
	gcq.items = append(gcq.items, item)
	gcq.itemsMap[item.Key] = item
}

// Pop removes and returns the minimum item (part of heap.Interface)
func (gcq *MapHeap) Pop() interface{} {
	old := gcq.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	item.index = -1 // For safety
	gcq.items = old[:n-1]
	delete(gcq.itemsMap, item.Key)
	return item
}

// AddItem adds a new item to the queue or updates the priority of an existing one
func (gcq *MapHeap) AddItem(key string, priority uint64) {
	// Check if item already exists
	if item, exists := gcq.itemsMap[key]; exists {
		// Update priority and fix heap
		item.Priority = priority
		heap.Fix(gcq, item.index)
		return
	}

	// Create and add new item
	item := &item{
		Key:      key,
		Priority: priority,
	}
	heap.Push(gcq, item)
}

// RemoveByKey removes an item by its key
func (gcq *MapHeap) RemoveByKey(key string) (uint64, bool) {
	item, exists := gcq.itemsMap[key]
	if !exists {
		return 0, false
	}

	// Remove from heap
	heap.Remove(gcq, item.index)
	return item.Priority, true
}

// Peek returns the minimum priority item without removing it
func (gcq *MapHeap) Peek() (*item, bool) {
	if len(gcq.items) == 0 {
		return nil, false
	}
	return gcq.items[0], true
}

// Contains checks if a key exists in the queue
func (gcq *MapHeap) Contains(key string) bool {
	_, exists := gcq.itemsMap[key]
	return exists
}

// GetByKey retrieves an item by its key without removing it
func (gcq *MapHeap) GetByKey(key string) (*item, bool) {
	item, exists := gcq.itemsMap[key]
	return item, exists
}
