package message

import "manuvr-go/value"

// SerializeArgs appends every attached argument's wire framing, in order, to
// out. Non-exportable or pointer-kind arguments abort the whole message with
// the underlying error, matching the single-record "all or nothing" framing
// spec.md §4.1 implies for export.
func (m *Message) SerializeArgs(out *[]byte) error {
	for a := m.args; a != nil; a = a.Next() {
		if err := a.Serialize(out); err != nil {
			return err
		}
	}
	return nil
}

// InflateArgumentsFromBuffer parses a sequence of [tag][len][bytes] frames
// out of buf and appends the resulting Arguments to m, in wire order. It
// returns the number of arguments inflated.
func InflateArgumentsFromBuffer(m *Message, buf []byte) (int, error) {
	n := 0
	for len(buf) > 0 {
		a, consumed, err := value.ParseArgument(buf)
		if err != nil {
			return n, err
		}
		if m.args == nil {
			m.args = a
			m.argsTail = a
		} else {
			m.argsTail.SetNext(a)
			m.argsTail = a
		}
		buf = buf[consumed:]
		n++
	}
	return n, nil
}
