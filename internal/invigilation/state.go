package invigilation

type memberKey struct {
	pool Pool
	name string
}

type dayKey struct {
	member memberKey
	date   string
}

type interval struct {
	start Clock
	end   Clock
}

// loadState is the running load of one run: totals, per-day counts and the
// booked intervals used for overlap checks. It is owned by a single run.
type loadState struct {
	totals map[memberKey]int
	daily  map[dayKey]int
	booked map[dayKey][]interval
}

func newLoadState() *loadState {
	return &loadState{
		totals: make(map[memberKey]int),
		daily:  make(map[dayKey]int),
		booked: make(map[dayKey][]interval),
	}
}

func keyOf(s Supervisor) memberKey {
	return memberKey{pool: s.Pool, name: s.Name}
}

func (l *loadState) total(s Supervisor) int {
	return l.totals[keyOf(s)]
}

func (l *loadState) onDay(s Supervisor, date string) int {
	return l.daily[dayKey{member: keyOf(s), date: date}]
}

// Conflicts reports whether the supervisor is already booked on the session's
// date for a time range overlapping the session.
func (l *loadState) Conflicts(s Supervisor, session Session) bool {
	for _, booked := range l.booked[dayKey{member: keyOf(s), date: DateKey(session.Date)}] {
		if Overlaps(booked.start, booked.end, session.Start, session.End) {
			return true
		}
	}
	return false
}

// Reserve records a placement. It must run before the next slot is filled.
func (l *loadState) Reserve(s Supervisor, session Session) {
	member := keyOf(s)
	day := dayKey{member: member, date: DateKey(session.Date)}
	l.totals[member]++
	l.daily[day]++
	l.booked[day] = append(l.booked[day], interval{start: session.Start, end: session.End})
}
