package queue

// Queue represents a basic queue.
type Queue interface {
	// Enqueue adds an item to the end of the queue.
	Enqueue(item interface{}) error
	// ReadAllMessages drains and returns all pending items.
	ReadAllMessages() ([]interface{}, error)
	// Size returns the current size of the queue.
	Size() int
	// Clear discards all pending items.
	Clear()
}
