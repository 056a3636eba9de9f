package cache

// lru is an in-memory LRU of decoded entries. It is not safe for concurrent
// use; Store guards it.
type lru struct {
	items   map[string]*listItem
	head    *listItem // most recently accessed
	tail    *listItem // least recently accessed
	maxSize int
}

type listItem struct {
	entry *Entry
	prev  *listItem
	next  *listItem
}

func newLRU(maxSize int) *lru {
	return &lru{items: make(map[string]*listItem), maxSize: maxSize}
}

func (l *lru) get(key string) (*Entry, bool) {
	item, ok := l.items[key]
	if !ok {
		return nil, false
	}
	l.unlink(item)
	l.pushFront(item)
	return item.entry, true
}

func (l *lru) set(e *Entry) {
	if item, ok := l.items[e.Key]; ok {
		item.entry = e
		l.unlink(item)
		l.pushFront(item)
		return
	}
	item := &listItem{entry: e}
	l.items[e.Key] = item
	l.pushFront(item)
	for l.maxSize > 0 && len(l.items) > l.maxSize {
		back := l.tail
		l.unlink(back)
		delete(l.items, back.entry.Key)
	}
}

func (l *lru) clear() {
	l.items = make(map[string]*listItem)
	l.head, l.tail = nil, nil
}

func (l *lru) len() int {
	return len(l.items)
}

func (l *lru) unlink(item *listItem) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		l.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		l.tail = item.prev
	}
	item.prev, item.next = nil, nil
}

func (l *lru) pushFront(item *listItem) {
	item.next = l.head
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
}
