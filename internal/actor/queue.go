package actor

import "sync"

const (
	commandQueueOccupancyMetricKey = "actor_command_queue_occupancy"
	commandQueueOverflowMetricKey  = "actor_command_queue_overflow_total"
)

// DefaultQueueCapacity bounds each actor's pending commands.
const DefaultQueueCapacity = 64

type queueMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// CommandQueue stores an actor's pending commands in a fixed-size ring. It
// is safe for concurrent producers and a single consumer.
type CommandQueue struct {
	mu      sync.Mutex
	data    []Command
	head    int
	tail    int
	count   int
	metrics queueMetrics
}

// NewCommandQueue constructs a ring buffer with the provided capacity.
func NewCommandQueue(capacity int, metrics queueMetrics) *CommandQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandQueue{
		data:    make([]Command, capacity),
		metrics: metrics,
	}
}

// Capacity reports the maximum number of commands the queue can hold.
func (q *CommandQueue) Capacity() int {
	if q == nil {
		return 0
	}
	return len(q.data)
}

// Push stages a command, returning false if the queue is full.
func (q *CommandQueue) Push(cmd Command) bool {
	if q == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.data) {
		if q.metrics != nil {
			q.metrics.Add(commandQueueOverflowMetricKey, 1)
		}
		return false
	}
	q.data[q.tail] = cmd
	q.tail = (q.tail + 1) % len(q.data)
	q.count++
	q.storeOccupancyLocked()
	return true
}

// Drain returns all staged commands in FIFO order and clears the queue.
func (q *CommandQueue) Drain() []Command {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	commands := make([]Command, q.count)
	for i := 0; i < q.count; i++ {
		commands[i] = q.data[(q.head+i)%len(q.data)]
		q.data[(q.head+i)%len(q.data)] = Command{}
	}
	q.head = 0
	q.tail = 0
	q.count = 0
	q.storeOccupancyLocked()
	return commands
}

// Len reports the number of staged commands.
func (q *CommandQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *CommandQueue) storeOccupancyLocked() {
	if q.metrics == nil {
		return
	}
	q.metrics.Store(commandQueueOccupancyMetricKey, uint64(q.count))
}
