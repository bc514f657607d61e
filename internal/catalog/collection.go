package catalog

// Collection is the whole catalog as it is persisted: entries in upload order.
// The methods never modify the receiver.
type Collection []Entry

// Clone returns a deep copy of c.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for i, e := range c {
		out[i] = e.Clone()
	}
	return out
}

// Find returns the entry with the given id.
func (c Collection) Find(id string) (Entry, bool) {
	for _, e := range c {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Append returns a collection with e added at the end.
func (c Collection) Append(e Entry) Collection {
	out := make(Collection, 0, len(c)+1)
	out = append(out, c...)
	return append(out, e)
}

// WithWatchTime returns a collection where the entry id has its watch time
// replaced. The second result is false when id is unknown.
func (c Collection) WithWatchTime(id string, t float64) (Collection, bool) {
	return c.update(id, func(e *Entry) { e.WatchTimeSeconds = t })
}

// WithMediaRef returns a collection where the entry id points at ref.
func (c Collection) WithMediaRef(id, ref string) (Collection, bool) {
	return c.update(id, func(e *Entry) { e.MediaRef = ref })
}

// Without returns a collection with the entry id removed.
func (c Collection) Without(id string) (Collection, bool) {
	out := make(Collection, 0, len(c))
	found := false
	for _, e := range c {
		if e.ID == id {
			found = true
			continue
		}
		out = append(out, e)
	}
	return out, found
}

func (c Collection) update(id string, fn func(*Entry)) (Collection, bool) {
	out := make(Collection, len(c))
	copy(out, c)
	for i := range out {
		if out[i].ID == id {
			fn(&out[i])
			return out, true
		}
	}
	return out, false
}
