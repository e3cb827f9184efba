package session

import "github.com/example/taskboard/domain/user"

// directory is the cached list of known users used by assignment pickers.
// It is replaced wholesale on a successful fetch and kept on failure.
type directory struct {
	users    []user.User
	err      error
	seq      uint64
	inflight int
}

// begin records a new fetch and returns its sequence number.
func (d *directory) begin() uint64 {
	d.seq++
	d.inflight++
	return d.seq
}

// resolve applies the outcome of fetch seq. It reports false when a newer
// fetch was issued after seq, in which case nothing is applied.
func (d *directory) resolve(seq uint64, users []user.User, err error) bool {
	d.inflight--
	if seq != d.seq {
		return false
	}
	if err != nil {
		d.err = err
		return true
	}
	d.users = make([]user.User, len(users))
	copy(d.users, users)
	d.err = nil
	return true
}

// reset empties the cache and orphans any fetch in flight.
func (d *directory) reset() {
	d.users = nil
	d.err = nil
	d.seq++
	d.inflight = 0
}

// snapshot copies the cache into s.
func (d *directory) snapshot(s *State) {
	s.Users = make([]user.User, len(d.users))
	copy(s.Users, d.users)
	s.DirectoryLoading = d.inflight > 0
	s.DirectoryErr = d.err
}
