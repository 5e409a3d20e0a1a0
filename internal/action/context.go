package action

import (
	"strings"
	"sync"
)

// Well-known context keys. The global context is shared by reference into
// every tick-local context so actions can exchange cross-tick state.
const (
	KeyGlobal      = "global"        // *Context: the long-lived global context
	KeyRegistry    = "registry"      // *Registry: live action registry handle
	KeyScreenshot  = "screenshot"    // Screenshot handle for this tick
	KeyTaskContent = "task_content"  // *strings.Builder: contributor prompt buffer
	KeyWillChat    = "will_chat"     // bool: whether screen analysis runs this tick
	KeyChatBlocked = "chat_blocked"  // []string: reasons blocking the default chat
	KeyOutputQueue = "output_queue"  // *OutputQueue: deferred raw model outputs
	KeyExpected    = "expected_pfx"  // []string: bracket prefixes expected this tick
)

// Context is a typed key/value bag passed between actions. Two lifetimes
// exist: tick-local (fresh each tick) and global (process lifetime).
type Context struct {
	mu   sync.RWMutex
	data map[string]interface{}
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{data: make(map[string]interface{})}
}

// Put stores a value under key.
func (c *Context) Put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Get returns the raw value for key, or nil.
func (c *Context) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data[key]
}

// Contains reports whether key is present.
func (c *Context) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.data[key]
	return ok
}

// Clear removes all entries.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]interface{})
}

// GetString returns the string under key, or "" when absent or mistyped.
func (c *Context) GetString(key string) string {
	s, _ := c.Get(key).(string)
	return s
}

// GetBool returns the bool under key, or false when absent or mistyped.
func (c *Context) GetBool(key string) bool {
	b, _ := c.Get(key).(bool)
	return b
}

// Global returns the global context stored under KeyGlobal, or nil.
func (c *Context) Global() *Context {
	g, _ := c.Get(KeyGlobal).(*Context)
	return g
}

// TaskContent returns the shared contributor buffer, creating it on first use.
// Contributor actions append instructional text here; the screen-analysis
// action folds it into the composite prompt.
func (c *Context) TaskContent() *strings.Builder {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sb, ok := c.data[KeyTaskContent].(*strings.Builder); ok {
		return sb
	}
	sb := &strings.Builder{}
	c.data[KeyTaskContent] = sb
	return sb
}

// OutputQueue holds raw model outputs queued for deferred bracket routing.
// In the steady state routing happens inline after each call; the queue is a
// safety net drained at the start of every tick.
type OutputQueue struct {
	mu   sync.Mutex
	raws []string
}

// Push queues a raw model output.
func (q *OutputQueue) Push(raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.raws = append(q.raws, raw)
}

// Drain returns all queued outputs and empties the queue.
func (q *OutputQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.raws
	q.raws = nil
	return out
}
