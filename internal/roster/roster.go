package roster

// Roster bundles the three persisted stores and keeps the references between
// them consistent: budgets of removed classes are deleted and teachers lose
// the names of meetings that no longer exist. Class references inside
// teachers are maintained by Store itself.
type Roster struct {
	Store    *Store
	Meetings *MeetingStore
	Hours    *HoursStore

	opts options
}

// Open creates and loads every store on p and wires reconciliation.
func Open(p Persistence, opts ...Option) *Roster {
	r := &Roster{
		Store:    NewStore(p, opts...),
		Meetings: NewMeetingStore(p, opts...),
		Hours:    NewHoursStore(p, opts...),
		opts:     buildOptions(opts),
	}
	r.Store.Load()
	r.Meetings.Load()
	r.Hours.Load()

	r.Store.Subscribe(r.onStoreChange)
	r.Meetings.Subscribe(r.onMeetingsChange)
	return r
}

func (r *Roster) onStoreChange(c Change) {
	if len(c.Removed) == 0 {
		return
	}
	n, err := r.Hours.Prune(c.Removed)
	if err != nil {
		r.opts.logger.Warn("failed to prune hours of removed classes", "error", err)
		return
	}
	if n > 0 {
		r.opts.logger.Debug("pruned hours of removed classes", "count", n)
	}
}

func (r *Roster) onMeetingsChange(c Change) {
	if len(c.Removed) == 0 {
		return
	}
	n, err := r.Store.RemoveMeetingRefs(c.Removed)
	if err != nil {
		r.opts.logger.Warn("failed to drop removed meetings from teachers", "error", err)
		return
	}
	if n > 0 {
		r.opts.logger.Debug("dropped removed meetings from teachers", "teachers", n)
	}
}

// Save persists every store in its current state.
func (r *Roster) Save() error {
	if err := r.Store.Save(); err != nil {
		return err
	}

	r.Meetings.mu.Lock()
	err := r.Meetings.commitLocked()
	r.Meetings.mu.Unlock()
	if err != nil {
		return err
	}

	r.Hours.mu.Lock()
	defer r.Hours.mu.Unlock()
	return r.Hours.commitLocked()
}

// Reload re-reads every store from storage, dropping unsaved in-memory state.
func (r *Roster) Reload() {
	r.Store.Reload()
	r.Meetings.Load()
	r.Hours.Load()
}

// Summary is a count of every roster collection.
type Summary struct {
	Teachers       int
	Classes        int
	ActiveClasses  int
	SpecialClasses int
	Subjects       int
	Meetings       int
	HoursConfigs   int
}

// Summarize counts the current roster.
func (r *Roster) Summarize() Summary {
	return Summary{
		Teachers:       len(r.Store.Teachers()),
		Classes:        len(r.Store.Classes()),
		ActiveClasses:  len(r.Store.GetActiveClasses()),
		SpecialClasses: len(r.Store.SpecialSupportClasses()),
		Subjects:       len(r.Store.Subjects()),
		Meetings:       len(r.Meetings.Meetings()),
		HoursConfigs:   len(r.Hours.ClassIDs()),
	}
}
