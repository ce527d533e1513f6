package ichiban

// ArenaLen reports how many term references are live.
func (a *Adapter) ArenaLen() int { return len(a.arena) }
